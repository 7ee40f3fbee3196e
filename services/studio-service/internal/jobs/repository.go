package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	otelx "github.com/shutterdesk/shutterdesk/libs/otel"
)

// ReminderJob is a scheduled shoot-day reminder. Jobs are inserted in
// the same transaction as the order they remind about and drained by
// the Worker once due.
type ReminderJob struct {
	ID             int64
	IdempotencyKey string
	OrderID        string
	ClientName     string
	Photographer   string
	Address        string
	ShootDate      time.Time
	StartDisplay   string
	RemindAt       time.Time
	Traceparent    string
	Tracestate     string
	Attempts       int
	MaxAttempts    int
	NextRunAt      time.Time
}

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert is idempotent on the key; a replay changes nothing. A cancelled
// row under the same key is revived instead, so rescheduling back onto a
// previously used date still leaves a pending reminder.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, job ReminderJob) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO reminder_jobs (idempotency_key, order_id, client_name, photographer, address, shoot_date, start_display, remind_at, next_run_at, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9, $10)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			status = 'pending',
			client_name = EXCLUDED.client_name,
			photographer = EXCLUDED.photographer,
			address = EXCLUDED.address,
			shoot_date = EXCLUDED.shoot_date,
			start_display = EXCLUDED.start_display,
			remind_at = EXCLUDED.remind_at,
			next_run_at = EXCLUDED.next_run_at,
			attempts = 0,
			traceparent = EXCLUDED.traceparent,
			tracestate = EXCLUDED.tracestate
		WHERE reminder_jobs.status = 'cancelled'
	`, job.IdempotencyKey, job.OrderID, job.ClientName, job.Photographer, job.Address,
		job.ShootDate, job.StartDisplay, job.RemindAt, traceparent, tracestate)
	return err
}

// Key derives the idempotency key for one reminder of one order. The
// start minutes are part of the key so moving a shoot to a different
// time on the same date schedules a fresh reminder rather than
// colliding with the old one.
func Key(orderID string, shootDate time.Time, startMinutes int, offset time.Duration) string {
	return fmt.Sprintf("%s/%s/%d/%s", orderID, shootDate.Format("2006-01-02"), startMinutes, offset)
}

func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]ReminderJob, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, idempotency_key, order_id, COALESCE(client_name, ''), COALESCE(photographer, ''),
			COALESCE(address, ''), shoot_date, COALESCE(start_display, ''), remind_at,
			COALESCE(traceparent, ''), COALESCE(tracestate, ''), attempts, max_attempts, next_run_at
		FROM reminder_jobs
		WHERE status = 'pending' AND next_run_at <= now()
		ORDER BY next_run_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dueJobs []ReminderJob
	for rows.Next() {
		var j ReminderJob
		if err := rows.Scan(&j.ID, &j.IdempotencyKey, &j.OrderID, &j.ClientName, &j.Photographer,
			&j.Address, &j.ShootDate, &j.StartDisplay, &j.RemindAt,
			&j.Traceparent, &j.Tracestate, &j.Attempts, &j.MaxAttempts, &j.NextRunAt); err != nil {
			return nil, err
		}
		dueJobs = append(dueJobs, j)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return dueJobs, nil
}

func (r *Repository) MarkProcessed(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'processed', updated_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts, maxAttempts int, nextRunAt time.Time, lastError string) error {
	status := "pending"
	if attempts >= maxAttempts {
		status = "failed"
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET attempts = $2,
		    status = $3,
		    next_run_at = $4,
		    last_error = $5,
		    updated_at = now()
		WHERE id = $1
	`, id, attempts, status, nextRunAt, lastError)
	return err
}

// CancelForOrder drops pending reminders when an order is cancelled or
// rescheduled; new reminders are inserted for the new time.
func (r *Repository) CancelForOrder(ctx context.Context, tx pgx.Tx, orderID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'cancelled', updated_at = now()
		WHERE order_id = $1 AND status = 'pending'
	`, orderID)
	return err
}
