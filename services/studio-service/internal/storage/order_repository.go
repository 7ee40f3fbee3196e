package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shutterdesk/shutterdesk/libs/db"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/model"
)

type OrderRepository struct {
	pool *db.Pool
}

func NewOrderRepository(pool *db.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const orderColumns = `
	id, client_id, COALESCE(client_name, ''), COALESCE(address, ''),
	shoot_date, COALESCE(start_raw, ''), start_minutes, COALESCE(duration_minutes, 0),
	COALESCE(photographer, ''), COALESCE(photographer_id, ''), COALESCE(driving_time_minutes, 0),
	COALESCE(price_cents, 0), status, completed_at, cancelled_at, COALESCE(cancel_reason, ''),
	created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, tx pgx.Tx, o *model.Order) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO orders
			(id, client_id, client_name, address, shoot_date, start_raw, start_minutes,
			 duration_minutes, photographer, photographer_id, driving_time_minutes, price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, id, nullIfEmpty(o.ClientID), o.ClientName, o.Address, o.ShootDate, o.StartRaw, o.StartMinutes,
		o.DurationMin, o.Photographer, o.PhotographerID, o.DrivingTimeMin, o.PriceCents, o.Status)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

// ListByDateRange returns orders whose shoot day falls inside [from, to),
// the query behind every calendar view. Cancelled orders are excluded;
// they no longer occupy the grid.
func (r *OrderRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE shoot_date >= $1 AND shoot_date < $2 AND status <> 'cancelled'
		ORDER BY shoot_date, start_minutes, created_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

func (r *OrderRepository) List(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY shoot_date DESC, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// Reschedule moves an order to a new day and normalized start. Only
// scheduled orders move; completed and cancelled ones are immutable.
func (r *OrderRepository) Reschedule(ctx context.Context, tx pgx.Tx, id string, day time.Time, startRaw string, startMinutes int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET shoot_date = $2,
			start_raw = $3,
			start_minutes = $4,
			updated_at = now()
		WHERE id = $1 AND status = 'scheduled'
	`, id, day, startRaw, startMinutes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *OrderRepository) Complete(ctx context.Context, tx pgx.Tx, id string) (time.Time, error) {
	var completedAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE orders
		SET status = 'completed',
			completed_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING completed_at
	`, id).Scan(&completedAt)
	return completedAt, err
}

func (r *OrderRepository) Cancel(ctx context.Context, tx pgx.Tx, id, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE orders
		SET status = 'cancelled',
			cancelled_at = now(),
			cancel_reason = $2,
			updated_at = now()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING cancelled_at
	`, id, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// AttachAsset links an uploaded gallery asset to its order. Duplicate
// deliveries collapse on the (order_id, asset_id) key.
func (r *OrderRepository) AttachAsset(ctx context.Context, tx pgx.Tx, orderID, assetID, objectKey, contentHash string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_assets (order_id, asset_id, object_key, content_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, asset_id) DO NOTHING
	`, orderID, assetID, objectKey, contentHash)
	return err
}

func scanOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	var clientID *string
	var completedAt, cancelledAt *time.Time
	err := row.Scan(
		&o.ID,
		&clientID,
		&o.ClientName,
		&o.Address,
		&o.ShootDate,
		&o.StartRaw,
		&o.StartMinutes,
		&o.DurationMin,
		&o.Photographer,
		&o.PhotographerID,
		&o.DrivingTimeMin,
		&o.PriceCents,
		&o.Status,
		&completedAt,
		&cancelledAt,
		&o.CancelReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return model.Order{}, err
	}
	if clientID != nil {
		o.ClientID = *clientID
	}
	o.CompletedAt = completedAt
	o.CancelledAt = cancelledAt
	return o, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
