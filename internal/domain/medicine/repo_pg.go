package medicine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

const medicineColumns = `id, name, generic_name, manufacturer, category, dosage_form, strength, description,
	image_key, status, submitted_by_doctor_id, reviewed_by, reviewed_at, rejection_reason, created_at, updated_at`

type repoPG struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{q: q}
}

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	var status string
	err := row.Scan(&m.ID, &m.Name, &m.GenericName, &m.Manufacturer, &m.Category, &m.DosageForm,
		&m.Strength, &m.Description, &m.ImageKey, &status, &m.SubmittedByDoctorID, &m.ReviewedBy,
		&m.ReviewedAt, &m.RejectionReason, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Status = Status(status)
	return &m, nil
}

func (r *repoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO medicines (id, name, generic_name, manufacturer, category, dosage_form, strength,
			description, image_key, status, reviewed_by, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.GenericName, m.Manufacturer, m.Category, m.DosageForm, m.Strength,
		m.Description, m.ImageKey, string(m.Status), m.ReviewedBy, m.ReviewedAt,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrExists
	}
	return err
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, err := scanMedicine(r.q.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return m, err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Medicine, int, error) {
	var w db.Where
	if f.Status != "" {
		w.Add("status = $%d", string(f.Status))
	}
	if f.Category != "" {
		w.Add("category ILIKE $%d", f.Category)
	}
	if f.Search != "" {
		w.Add("(name ILIKE $%[1]d OR generic_name ILIKE $%[1]d OR manufacturer ILIKE $%[1]d)", db.LikePattern(f.Search))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM medicines`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, args := w.Page(limit, offset)
	rows, err := r.q.Query(ctx, `SELECT `+medicineColumns+` FROM medicines`+w.SQL()+` ORDER BY name ASC, id ASC`+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, m *Medicine) error {
	err := r.q.QueryRow(ctx, `
		UPDATE medicines SET name = $2, generic_name = $3, manufacturer = $4, category = $5,
			dosage_form = $6, strength = $7, description = $8, image_key = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.Name, m.GenericName, m.Manufacturer, m.Category, m.DosageForm, m.Strength,
		m.Description, m.ImageKey,
	).Scan(&m.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return ErrNotFound
	case db.IsUniqueViolation(err):
		return ErrExists
	}
	return err
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, rv Review) (*Medicine, error) {
	from := make([]string, len(rv.From))
	for i, s := range rv.From {
		from[i] = string(s)
	}
	m, err := scanMedicine(r.q.QueryRow(ctx, `
		UPDATE medicines SET status = $2, reviewed_by = $3, reviewed_at = NOW(), rejection_reason = $4,
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($5)
		RETURNING `+medicineColumns,
		id, string(rv.To), rv.Reviewer, rv.Reason, from,
	))
	if err == nil {
		return m, nil
	}
	if !db.IsNoRows(err) {
		return nil, err
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM medicines WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check medicine %s: %w", id, err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrWrongState
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
