package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shutterdesk/shutterdesk/libs/db"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/model"
)

type ClientRepository struct {
	pool *db.Pool
}

func NewClientRepository(pool *db.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

func (r *ClientRepository) Create(ctx context.Context, c *model.Client) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone, address, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, c.Name, c.Email, c.Phone, c.Address, c.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ClientRepository) Get(ctx context.Context, id string) (model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), COALESCE(notes, ''), created_at
		FROM clients
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
	if err != nil {
		return model.Client{}, err
	}
	return c, nil
}

func (r *ClientRepository) List(ctx context.Context, limit int) ([]model.Client, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), COALESCE(notes, ''), created_at
		FROM clients
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return clients, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *model.Client) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clients
		SET name = $2, email = $3, phone = $4, address = $5, notes = $6
		WHERE id = $1
	`, c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
