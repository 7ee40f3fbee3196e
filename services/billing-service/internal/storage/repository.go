package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shutterdesk/shutterdesk/libs/db"
)

// Invoice statuses. Draft invoices have not been pushed to the payment
// provider yet; open ones await payment.
const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusOpen  = "open"
	InvoiceStatusPaid  = "paid"
	InvoiceStatusVoid  = "void"
)

type Invoice struct {
	ID              string
	OrderID         string
	ClientName      string
	AmountCents     int64
	Currency        string
	Status          string
	StripeInvoiceID string
	PaidAt          *time.Time
	VoidedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ProviderEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
}

var ErrDuplicateProviderEvent = errors.New("provider event already recorded")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// InsertProviderEvent is the replay guard for webhook deliveries: the
// (provider, provider_event_id) unique key turns duplicates into
// ErrDuplicateProviderEvent.
func (r *Repository) InsertProviderEvent(ctx context.Context, tx pgx.Tx, evt ProviderEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO billing_provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, evt.Provider, evt.ProviderEventID, evt.EventType, evt.Payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateProviderEvent
		}
		return err
	}
	return nil
}

const invoiceColumns = `
	id, order_id, COALESCE(client_name, ''), amount_cents, currency, status,
	COALESCE(stripe_invoice_id, ''), paid_at, voided_at, created_at, updated_at`

// CreateInvoice inserts a draft invoice for an order. The unique key on
// order_id makes replayed order-completed events a no-op.
func (r *Repository) CreateInvoice(ctx context.Context, tx pgx.Tx, inv Invoice) (string, bool, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO invoices (order_id, client_name, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING id
	`, inv.OrderID, inv.ClientName, inv.AmountCents, inv.Currency, inv.Status).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (r *Repository) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

func (r *Repository) GetInvoiceByOrder(ctx context.Context, orderID string) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1`, orderID)
	return scanInvoice(row)
}

func (r *Repository) GetInvoiceForUpdateByStripeID(ctx context.Context, tx pgx.Tx, stripeInvoiceID string) (Invoice, error) {
	row := tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE stripe_invoice_id = $1 FOR UPDATE`, stripeInvoiceID)
	return scanInvoice(row)
}

func (r *Repository) GetInvoiceForUpdate(ctx context.Context, tx pgx.Tx, id string) (Invoice, error) {
	row := tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
	return scanInvoice(row)
}

func (r *Repository) ListInvoices(ctx context.Context, status string, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return invoices, nil
}

func (r *Repository) MarkOpen(ctx context.Context, tx pgx.Tx, id, stripeInvoiceID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE invoices
		SET status = 'open',
			stripe_invoice_id = $2,
			updated_at = now()
		WHERE id = $1 AND status = 'draft'
	`, id, stripeInvoiceID)
	return err
}

func (r *Repository) MarkPaid(ctx context.Context, tx pgx.Tx, id string, paidAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE invoices
		SET status = 'paid',
			paid_at = $2,
			updated_at = now()
		WHERE id = $1 AND status <> 'paid'
	`, id, paidAt)
	return err
}

func (r *Repository) MarkVoid(ctx context.Context, tx pgx.Tx, id string, voidedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE invoices
		SET status = 'void',
			voided_at = $2,
			updated_at = now()
		WHERE id = $1 AND status IN ('draft', 'open')
	`, id, voidedAt)
	return err
}

// ListOpenStripeInvoices feeds the reconciler: open invoices that have a
// provider-side counterpart to compare against.
func (r *Repository) ListOpenStripeInvoices(ctx context.Context, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE status = 'open' AND stripe_invoice_id <> ''
		ORDER BY updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return invoices, nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var paidAt, voidedAt *time.Time
	err := row.Scan(
		&inv.ID,
		&inv.OrderID,
		&inv.ClientName,
		&inv.AmountCents,
		&inv.Currency,
		&inv.Status,
		&inv.StripeInvoiceID,
		&paidAt,
		&voidedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return Invoice{}, err
	}
	inv.PaidAt = paidAt
	inv.VoidedAt = voidedAt
	return inv, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
