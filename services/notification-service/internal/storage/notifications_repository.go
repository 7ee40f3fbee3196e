package storage

import (
	"context"

	"github.com/shutterdesk/shutterdesk/libs/db"
)

// Notification is the delivery ledger row: one per attempted send,
// success or failure, for the ops dashboard.
type Notification struct {
	OrderID   string
	EventType string
	Channel   string
	Recipient string
	Subject   string
	Body      string
	Status    string
	Error     string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (order_id, event_type, channel, recipient, subject, body, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.OrderID, n.EventType, n.Channel, n.Recipient, n.Subject, n.Body, n.Status, n.Error)
	return err
}
