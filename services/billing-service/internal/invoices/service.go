package invoices

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shutterdesk/shutterdesk/libs/outbox"
	"github.com/shutterdesk/shutterdesk/services/billing-service/internal/storage"
)

// Service holds the invoice state transitions and their outbox side
// effects, shared by the order-completed consumer, the Stripe webhook
// and the reconciler.
type Service struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository) *Service {
	return &Service{repo: repo, outboxRepo: outboxRepo}
}

// ApplyOrderCompleted drafts an invoice for a finished shoot. Replayed
// events collapse on the order_id key and emit nothing.
func (s *Service) ApplyOrderCompleted(ctx context.Context, tx pgx.Tx, orderID, clientName string, amountCents int64, currency string) error {
	if currency == "" {
		currency = "usd"
	}
	id, created, err := s.repo.CreateInvoice(ctx, tx, storage.Invoice{
		OrderID:     orderID,
		ClientName:  clientName,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      storage.InvoiceStatusDraft,
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"invoice_id":   id,
		"order_id":     orderID,
		"client_name":  clientName,
		"amount_cents": amountCents,
		"currency":     currency,
	})
	if err != nil {
		return err
	}
	return s.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "invoice",
		AggregateID:   id,
		EventType:     "billing.invoice.created.v1",
		Payload:       payload,
	})
}

// ApplyPaid marks an invoice paid. Emits only on the transition, so a
// webhook retry after the reconciler already healed the row is silent.
func (s *Service) ApplyPaid(ctx context.Context, tx pgx.Tx, inv storage.Invoice, paidAt time.Time) error {
	if inv.Status == storage.InvoiceStatusPaid {
		return nil
	}
	if err := s.repo.MarkPaid(ctx, tx, inv.ID, paidAt); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"invoice_id":   inv.ID,
		"order_id":     inv.OrderID,
		"client_name":  inv.ClientName,
		"amount_cents": inv.AmountCents,
		"currency":     inv.Currency,
		"paid_at":      paidAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "invoice",
		AggregateID:   inv.ID,
		EventType:     "billing.invoice.paid.v1",
		Payload:       payload,
	})
}

func (s *Service) ApplyVoided(ctx context.Context, tx pgx.Tx, inv storage.Invoice, voidedAt time.Time) error {
	if inv.Status == storage.InvoiceStatusVoid || inv.Status == storage.InvoiceStatusPaid {
		return nil
	}
	if err := s.repo.MarkVoid(ctx, tx, inv.ID, voidedAt); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"invoice_id": inv.ID,
		"order_id":   inv.OrderID,
		"voided_at":  voidedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "invoice",
		AggregateID:   inv.ID,
		EventType:     "billing.invoice.voided.v1",
		Payload:       payload,
	})
}
