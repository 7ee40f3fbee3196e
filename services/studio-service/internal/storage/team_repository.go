package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shutterdesk/shutterdesk/libs/db"
	"github.com/shutterdesk/shutterdesk/services/studio-service/internal/model"
)

type TeamRepository struct {
	pool *db.Pool
}

func NewTeamRepository(pool *db.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

func (r *TeamRepository) Create(ctx context.Context, m *model.TeamMember) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO team_members (name, email, phone, role, color, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.Name, m.Email, m.Phone, m.Role, m.Color, m.Active).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *TeamRepository) List(ctx context.Context, activeOnly bool) ([]model.TeamMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(role, ''), COALESCE(color, ''), active, created_at
		FROM team_members
		WHERE ($1 = false OR active)
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Role, &m.Color, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return members, nil
}

func (r *TeamRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE team_members
		SET active = $2
		WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
