package setting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

const settingColumns = `key, value, type, category, label, description, is_public, updated_by, created_at, updated_at`

type repoPG struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{q: q}
}

func (r *repoPG) scan(row pgx.Row) (*Setting, error) {
	var s Setting
	var typ string
	err := row.Scan(&s.Key, &s.Value, &typ, &s.Category, &s.Label, &s.Description,
		&s.IsPublic, &s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Type = Type(typ)
	return &s, nil
}

func (r *repoPG) Get(ctx context.Context, key string) (*Setting, error) {
	s, err := r.scan(r.q.QueryRow(ctx, `SELECT `+settingColumns+` FROM system_settings WHERE key = $1`, key))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *repoPG) List(ctx context.Context, category string) ([]*Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM system_settings`
	var args []any
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY category, key`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Setting
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, s *Setting) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO system_settings (key, value, type, category, label, description, is_public, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		s.Key, s.Value, string(s.Type), s.Category, s.Label, s.Description, s.IsPublic, s.UpdatedBy,
	)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrExists
		}
		return err
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, s *Setting, expected Type) error {
	row := r.q.QueryRow(ctx, `
		UPDATE system_settings SET
			value = $2, type = $3, category = $4, label = $5, description = $6,
			is_public = $7, updated_by = $8, updated_at = NOW()
		WHERE key = $1 AND type = $9
		RETURNING created_at, updated_at`,
		s.Key, s.Value, string(s.Type), s.Category, s.Label, s.Description,
		s.IsPublic, s.UpdatedBy, string(expected),
	)
	err := row.Scan(&s.CreatedAt, &s.UpdatedAt)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return err
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM system_settings WHERE key = $1)`, s.Key).Scan(&exists); err != nil {
		return fmt.Errorf("check setting %s: %w", s.Key, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrTypeChanged
}

func (r *repoPG) Delete(ctx context.Context, key string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM system_settings WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
