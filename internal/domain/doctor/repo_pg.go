package doctor

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

const doctorColumns = `id, full_name, specialization, qualification, experience_years,
	consultation_fee::float8, languages, bio, profile_photo, registration_number, is_available,
	rating::float8, created_at`

type repoPG struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{q: q}
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FullName, &d.Specialization, &d.Qualification, &d.ExperienceYears,
		&d.ConsultationFee, &d.Languages, &d.Bio, &d.ProfilePhoto, &d.RegistrationNumber, &d.IsAvailable,
		&d.Rating, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if d.Languages == nil {
		d.Languages = []string{}
	}
	return &d, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Doctor, int, error) {
	var w db.Where
	w.Add("status = $%d", StatusVerified)
	if f.Search != "" {
		w.Add("(full_name ILIKE $%[1]d OR specialization ILIKE $%[1]d OR bio ILIKE $%[1]d)", db.LikePattern(f.Search))
	}
	if f.Specialization != "" {
		w.Add("lower(specialization) = lower($%d)", f.Specialization)
	}
	if f.Language != "" {
		w.Add("EXISTS (SELECT 1 FROM unnest(languages) AS l WHERE lower(l) = lower($%d))", f.Language)
	}
	if f.Available != nil {
		w.Add("is_available = $%d", *f.Available)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := orderBy[f.Sort]
	if !ok {
		order = orderBy[SortRating]
	}
	page, args := w.Page(limit, offset)
	rows, err := r.q.Query(ctx, `SELECT `+doctorColumns+` FROM doctors`+w.SQL()+` ORDER BY `+order+`, id ASC`+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	doctors := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, rows.Err()
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.q.QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE id = $1 AND status = $2`, id, StatusVerified))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *repoPG) Specializations(ctx context.Context) ([]Specialization, error) {
	rows, err := r.q.Query(ctx, `
		SELECT specialization, COUNT(*)
		FROM doctors
		WHERE status = $1
		GROUP BY specialization
		ORDER BY specialization ASC`, StatusVerified)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Specialization{}
	for rows.Next() {
		var s Specialization
		if err := rows.Scan(&s.Name, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
