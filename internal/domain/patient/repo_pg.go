package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

const patientColumns = `id, phone, full_name, age, gender, account_type, email, pin_hash,
	phone_verified, last_login_at, created_at, updated_at`

type repoPG struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{q: q}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Phone, &p.FullName, &p.Age, &p.Gender, &p.AccountType, &p.Email,
		&p.PINHash, &p.PhoneVerified, &p.LastLoginAt, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO patients (id, phone, full_name, age, gender, account_type, email, pin_hash, phone_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.Phone, p.FullName, p.Age, p.Gender, p.AccountType, p.Email, p.PINHash, p.PhoneVerified,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrExists
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.q.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	return scanPatient(r.q.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE phone = $1`, phone))
}

func (r *repoPG) UpdateProfile(ctx context.Context, p *Patient) error {
	err := r.q.QueryRow(ctx, `
		UPDATE patients SET full_name = $2, age = $3, gender = $4, account_type = $5, email = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.Age, p.Gender, p.AccountType, p.Email,
	).Scan(&p.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) UpdatePIN(ctx context.Context, id uuid.UUID, pinHash string) error {
	tag, err := r.q.Exec(ctx, `UPDATE patients SET pin_hash = $2, updated_at = NOW() WHERE id = $1`, id, pinHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) TouchLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `UPDATE patients SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// -- OTP Repository --

type otpRepoPG struct {
	q db.Querier
}

func NewOTPRepo(q db.Querier) OTPRepository {
	return &otpRepoPG{q: q}
}

func (r *otpRepoPG) Create(ctx context.Context, o *OTP) error {
	o.ID = uuid.New()
	return r.q.QueryRow(ctx, `
		INSERT INTO patient_otps (id, phone, purpose, code_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		o.ID, o.Phone, o.Purpose, o.CodeHash, o.ExpiresAt,
	).Scan(&o.CreatedAt)
}

func (r *otpRepoPG) Latest(ctx context.Context, phone, purpose string) (*OTP, error) {
	var o OTP
	err := r.q.QueryRow(ctx, `
		SELECT id, phone, purpose, code_hash, expires_at, attempts, verified_at, consumed_at, created_at
		FROM patient_otps
		WHERE phone = $1 AND purpose = $2 AND consumed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, phone, purpose,
	).Scan(&o.ID, &o.Phone, &o.Purpose, &o.CodeHash, &o.ExpiresAt, &o.Attempts,
		&o.VerifiedAt, &o.ConsumedAt, &o.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNoOTP
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *otpRepoPG) ClaimAttempt(ctx context.Context, id uuid.UUID, max int) (bool, error) {
	var attempts int
	err := r.q.QueryRow(ctx, `
		UPDATE patient_otps SET attempts = attempts + 1
		WHERE id = $1 AND attempts < $2 AND consumed_at IS NULL
		RETURNING attempts`, id, max,
	).Scan(&attempts)
	if db.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *otpRepoPG) MarkVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `UPDATE patient_otps SET verified_at = NOW() WHERE id = $1 AND verified_at IS NULL`, id)
	return err
}

func (r *otpRepoPG) Consume(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `UPDATE patient_otps SET consumed_at = NOW() WHERE id = $1 AND consumed_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOTP
	}
	return nil
}

func (r *otpRepoPG) ConsumeVerified(ctx context.Context, phone, purpose string, since time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE patient_otps SET consumed_at = NOW()
		WHERE id = (
			SELECT id FROM patient_otps
			WHERE phone = $1 AND purpose = $2 AND verified_at IS NOT NULL
				AND consumed_at IS NULL AND verified_at >= $3
			ORDER BY verified_at DESC
			LIMIT 1
		) AND consumed_at IS NULL`, phone, purpose, since)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOTP
	}
	return nil
}
