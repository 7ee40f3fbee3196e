package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

// Sends a signed Stripe invoice event at a locally running
// billing-service, for testing the webhook path without Stripe CLI.
func main() {
	var (
		baseURL  = flag.String("base-url", getenv("BASE_URL", "http://localhost:8082"), "billing-service base url")
		evtType  = flag.String("type", getenv("STRIPE_EVENT_TYPE", "invoice.paid"), "stripe event type")
		stripeID = flag.String("stripe-invoice-id", getenv("STRIPE_INVOICE_ID", ""), "stripe invoice id (in_...)")
		orderID  = flag.String("order-id", getenv("ORDER_ID", ""), "order_id metadata")
		secret   = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*stripeID) == "" {
		fatal("STRIPE_INVOICE_ID is required")
	}

	now := time.Now().UTC()
	eventID := fmt.Sprintf("evt_test_%d", now.UnixNano())

	payload, err := buildEventJSON(eventID, *evtType, now, *stripeID, *orderID)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	fmt.Printf("status=%d\n", resp.StatusCode)
}

func buildEventJSON(eventID, eventType string, t time.Time, stripeInvoiceID, orderID string) ([]byte, error) {
	created := t.Unix()
	switch eventType {
	case "invoice.paid", "invoice.payment_succeeded", "invoice.voided", "invoice.marked_uncollectible", "invoice.payment_failed":
		return json.Marshal(map[string]any{
			"id":          eventID,
			"object":      "event",
			"created":     created,
			"type":        eventType,
			"api_version": "2020-08-27",
			"data": map[string]any{
				"object": map[string]any{
					"id":     stripeInvoiceID,
					"object": "invoice",
					"status": invoiceStatusFor(eventType),
					"metadata": map[string]any{
						"order_id": orderID,
					},
					"status_transitions": map[string]any{
						"paid_at":   created,
						"voided_at": created,
					},
				},
			},
		})
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}

func invoiceStatusFor(eventType string) string {
	switch eventType {
	case "invoice.voided", "invoice.marked_uncollectible":
		return "void"
	case "invoice.payment_failed":
		return "open"
	default:
		return "paid"
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
