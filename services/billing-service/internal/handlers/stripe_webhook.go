package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/storage"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeWebhook handles Stripe invoice webhooks. Signature verification
// is the auth; the path is exposed publicly.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.stripeWebhookSecret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	occurredAt := time.Unix(evt.Created, 0).UTC()
	evtType := string(evt.Type)
	h.logger.Info("billing provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
		"occurred_at", occurredAt.Format(time.RFC3339),
	)

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Replayed Stripe deliveries stop here.
	if err := h.repo.InsertProviderEvent(ctx, tx, storage.ProviderEvent{
		Provider:        "stripe",
		ProviderEventID: evt.ID,
		EventType:       evtType,
		Payload:         body,
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicateProviderEvent) {
			h.logger.Info("billing provider event duplicate ignored", "provider", "stripe", "provider_event_id", evt.ID)
			_ = tx.Commit(ctx)
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
		http.Error(w, "failed to record provider event", http.StatusInternalServerError)
		return
	}

	switch evtType {
	case "invoice.paid", "invoice.payment_succeeded":
		var stripeInv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &stripeInv); err != nil {
			h.logger.Error("stripe: invalid invoice payload", "err", err)
			break
		}
		inv, err := h.repo.GetInvoiceForUpdateByStripeID(ctx, tx, stripeInv.ID)
		if err != nil {
			if storage.IsNotFound(err) {
				h.logger.Warn("stripe: paid event for unknown invoice", "stripe_invoice_id", stripeInv.ID)
				break
			}
			http.Error(w, "failed to load invoice", http.StatusInternalServerError)
			return
		}
		if err := h.invSvc.ApplyPaid(ctx, tx, inv, occurredAt); err != nil {
			http.Error(w, "failed to apply payment", http.StatusInternalServerError)
			return
		}

	case "invoice.voided", "invoice.marked_uncollectible":
		var stripeInv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &stripeInv); err != nil {
			h.logger.Error("stripe: invalid invoice payload", "err", err)
			break
		}
		inv, err := h.repo.GetInvoiceForUpdateByStripeID(ctx, tx, stripeInv.ID)
		if err != nil {
			if storage.IsNotFound(err) {
				h.logger.Warn("stripe: void event for unknown invoice", "stripe_invoice_id", stripeInv.ID)
				break
			}
			http.Error(w, "failed to load invoice", http.StatusInternalServerError)
			return
		}
		if err := h.invSvc.ApplyVoided(ctx, tx, inv, occurredAt); err != nil {
			http.Error(w, "failed to apply void", http.StatusInternalServerError)
			return
		}

	case "invoice.payment_failed":
		var stripeInv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &stripeInv); err != nil {
			h.logger.Error("stripe: invalid invoice payload", "err", err)
			break
		}
		// Payment failures stay open; Stripe retries. Log for the ops
		// dashboard and move on.
		h.logger.Warn("stripe: invoice payment failed", "stripe_invoice_id", stripeInv.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
