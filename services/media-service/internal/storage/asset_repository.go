package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shutterdesk/shutterdesk/libs/db"
)

type Asset struct {
	ID          string
	OrderID     string
	ObjectKey   string
	ContentHash string
	Filename    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

type AssetRepository struct {
	pool *db.Pool
}

func NewAssetRepository(pool *db.Pool) *AssetRepository {
	return &AssetRepository{pool: pool}
}

func (r *AssetRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts the asset row. The (order_id, content_hash) unique key
// makes re-uploads of the same file report the existing row.
func (r *AssetRepository) Create(ctx context.Context, tx pgx.Tx, a *Asset) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO assets (id, order_id, object_key, content_hash, filename, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, a.OrderID, a.ObjectKey, a.ContentHash, a.Filename, a.ContentType, a.SizeBytes)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AssetRepository) GetByHash(ctx context.Context, orderID, contentHash string) (Asset, error) {
	var a Asset
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, object_key, content_hash, COALESCE(filename, ''), COALESCE(content_type, ''), size_bytes, created_at
		FROM assets
		WHERE order_id = $1 AND content_hash = $2
	`, orderID, contentHash).Scan(&a.ID, &a.OrderID, &a.ObjectKey, &a.ContentHash, &a.Filename, &a.ContentType, &a.SizeBytes, &a.CreatedAt)
	if err != nil {
		return Asset{}, err
	}
	return a, nil
}

func (r *AssetRepository) ListByOrder(ctx context.Context, orderID string) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, object_key, content_hash, COALESCE(filename, ''), COALESCE(content_type, ''), size_bytes, created_at
		FROM assets
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.OrderID, &a.ObjectKey, &a.ContentHash, &a.Filename, &a.ContentType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return assets, nil
}

func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
