package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("patient not found")
	ErrExists   = errors.New("phone number already registered")
	ErrNoOTP    = errors.New("no pending otp")
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	UpdateProfile(ctx context.Context, p *Patient) error
	UpdatePIN(ctx context.Context, id uuid.UUID, pinHash string) error
	TouchLogin(ctx context.Context, id uuid.UUID) error
}

type OTPRepository interface {
	Create(ctx context.Context, o *OTP) error
	// Latest returns the newest unconsumed code for phone and purpose.
	Latest(ctx context.Context, phone, purpose string) (*OTP, error)
	// ClaimAttempt counts one verification attempt against an unconsumed
	// code. It reports false once max attempts have been claimed.
	ClaimAttempt(ctx context.Context, id uuid.UUID, max int) (bool, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	// Consume marks a code used. It returns ErrNoOTP when the code was
	// already consumed.
	Consume(ctx context.Context, id uuid.UUID) error
	// ConsumeVerified consumes the newest code verified at or after since.
	// It returns ErrNoOTP when none qualifies.
	ConsumeVerified(ctx context.Context, phone, purpose string, since time.Time) error
}
