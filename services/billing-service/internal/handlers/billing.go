package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/libs/outbox"
	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/invoices"
	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/storage"
	"github.com/stripe/stripe-go/v79"
	stripeinvoice "github.com/stripe/stripe-go/v79/invoice"
	invoiceitem "github.com/stripe/stripe-go/v79/invoiceitem"
)

type Handler struct {
	repo                   *storage.Repository
	outboxRepo             *outbox.Repository
	invSvc                 *invoices.Service
	logger                 *slog.Logger
	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
	stripeSecretKey        string
	stripeCustomerID       string
}

type Config struct {
	StripeWebhookSecret           string
	StripeWebhookToleranceSeconds int
	StripeSecretKey               string
	// StripeCustomerID is the studio's house customer; client billing
	// contacts live on the invoice metadata, not as Stripe customers.
	StripeCustomerID string
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg Config) *Handler {
	tolSeconds := cfg.StripeWebhookToleranceSeconds
	if tolSeconds <= 0 {
		tolSeconds = 300
	}
	return &Handler{
		repo:                   repo,
		outboxRepo:             outboxRepo,
		invSvc:                 invoices.New(repo, outboxRepo),
		logger:                 logger,
		stripeWebhookSecret:    strings.TrimSpace(cfg.StripeWebhookSecret),
		stripeWebhookTolerance: time.Duration(tolSeconds) * time.Second,
		stripeSecretKey:        strings.TrimSpace(cfg.StripeSecretKey),
		stripeCustomerID:       strings.TrimSpace(cfg.StripeCustomerID),
	}
}

func (h *Handler) InvoiceService() *invoices.Service {
	return h.invSvc
}

type invoiceItem struct {
	InvoiceID       string `json:"invoice_id"`
	OrderID         string `json:"order_id"`
	ClientName      string `json:"client_name"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	StripeInvoiceID string `json:"stripe_invoice_id,omitempty"`
	PaidAt          string `json:"paid_at,omitempty"`
	VoidedAt        string `json:"voided_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	switch status {
	case "", storage.InvoiceStatusDraft, storage.InvoiceStatusOpen, storage.InvoiceStatusPaid, storage.InvoiceStatusVoid:
	default:
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	invs, err := h.repo.ListInvoices(r.Context(), status, limit)
	if err != nil {
		http.Error(w, "failed to list invoices", http.StatusInternalServerError)
		return
	}

	items := make([]invoiceItem, 0, len(invs))
	for _, inv := range invs {
		items = append(items, invoiceToItem(inv))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("invoice_id"))
	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if id == "" && orderID == "" {
		http.Error(w, "invoice_id or order_id required", http.StatusBadRequest)
		return
	}

	var inv storage.Invoice
	var err error
	if id != "" {
		inv, err = h.repo.GetInvoice(r.Context(), id)
	} else {
		inv, err = h.repo.GetInvoiceByOrder(r.Context(), orderID)
	}
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load invoice", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, invoiceToItem(inv))
}

type issueInvoiceRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// IssueInvoice pushes a draft invoice to Stripe and opens it. Without a
// Stripe key the invoice opens locally and is settled by hand.
func (h *Handler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req issueInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.InvoiceID = strings.TrimSpace(req.InvoiceID)
	if req.InvoiceID == "" {
		http.Error(w, "invoice_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := h.repo.GetInvoiceForUpdate(ctx, tx, req.InvoiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load invoice", http.StatusInternalServerError)
		return
	}
	if inv.Status != storage.InvoiceStatusDraft {
		http.Error(w, "only draft invoices can be issued", http.StatusConflict)
		return
	}

	stripeInvoiceID := ""
	if h.stripeSecretKey != "" && h.stripeCustomerID != "" {
		stripeInvoiceID, err = h.createStripeInvoice(inv)
		if err != nil {
			h.logger.Error("stripe invoice create failed", "err", err, "invoice_id", inv.ID)
			http.Error(w, "payment provider unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	if err := h.repo.MarkOpen(ctx, tx, inv.ID, stripeInvoiceID); err != nil {
		http.Error(w, "failed to open invoice", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	inv.Status = storage.InvoiceStatusOpen
	inv.StripeInvoiceID = stripeInvoiceID
	writeJSON(w, http.StatusOK, invoiceToItem(inv))
}

type markPaidRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// MarkPaid settles an invoice out of band (check, cash, bank transfer).
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req markPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.InvoiceID = strings.TrimSpace(req.InvoiceID)
	if req.InvoiceID == "" {
		http.Error(w, "invoice_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := h.repo.GetInvoiceForUpdate(ctx, tx, req.InvoiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load invoice", http.StatusInternalServerError)
		return
	}
	if inv.Status == storage.InvoiceStatusVoid {
		http.Error(w, "invoice is void", http.StatusConflict)
		return
	}

	paidAt := time.Now().UTC()
	if err := h.invSvc.ApplyPaid(ctx, tx, inv, paidAt); err != nil {
		http.Error(w, "failed to mark invoice paid", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	inv.Status = storage.InvoiceStatusPaid
	inv.PaidAt = &paidAt
	writeJSON(w, http.StatusOK, invoiceToItem(inv))
}

func (h *Handler) createStripeInvoice(inv storage.Invoice) (string, error) {
	stripe.Key = h.stripeSecretKey

	_, err := invoiceitem.New(&stripe.InvoiceItemParams{
		Customer: stripe.String(h.stripeCustomerID),
		Amount:   stripe.Int64(inv.AmountCents),
		Currency: stripe.String(inv.Currency),
		Params: stripe.Params{
			Metadata: map[string]string{
				"invoice_id":  inv.ID,
				"order_id":    inv.OrderID,
				"client_name": inv.ClientName,
			},
		},
	})
	if err != nil {
		return "", err
	}

	created, err := stripeinvoice.New(&stripe.InvoiceParams{
		Customer:    stripe.String(h.stripeCustomerID),
		AutoAdvance: stripe.Bool(true),
		Params: stripe.Params{
			Metadata: map[string]string{
				"invoice_id": inv.ID,
				"order_id":   inv.OrderID,
			},
		},
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func invoiceToItem(inv storage.Invoice) invoiceItem {
	item := invoiceItem{
		InvoiceID:       inv.ID,
		OrderID:         inv.OrderID,
		ClientName:      inv.ClientName,
		AmountCents:     inv.AmountCents,
		Currency:        inv.Currency,
		Status:          inv.Status,
		StripeInvoiceID: inv.StripeInvoiceID,
		CreatedAt:       inv.CreatedAt.UTC().Format(time.RFC3339),
	}
	if inv.PaidAt != nil {
		item.PaidAt = inv.PaidAt.UTC().Format(time.RFC3339)
	}
	if inv.VoidedAt != nil {
		item.VoidedAt = inv.VoidedAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
