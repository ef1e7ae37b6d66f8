package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

const adminColumns = `id, email, full_name, password_hash, role, is_active, last_login_at, created_at, updated_at`

type repoPG struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{q: q}
}

func scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.Role, &a.IsActive,
		&a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Admin) error {
	a.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO admins (id, email, full_name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.Email, a.FullName, a.PasswordHash, a.Role, a.IsActive,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrExists
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return scanAdmin(r.q.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	return scanAdmin(r.q.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE lower(email) = lower($1)`, email))
}

func (r *repoPG) TouchLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `UPDATE admins SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// RolesByIDs implements audit.RoleLookup. Unknown ids are absent from the map.
func (r *repoPG) RolesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `SELECT id, role FROM admins WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var role string
		if err := rows.Scan(&id, &role); err != nil {
			return nil, err
		}
		out[id] = role
	}
	return out, rows.Err()
}
