package medicine

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("medicine not found")
	ErrExists   = errors.New("medicine with this name and strength already exists")
	// ErrWrongState is returned when a moderation transition does not apply
	// to the medicine's current status.
	ErrWrongState = errors.New("medicine status does not allow this action")
)

// Review is a moderation decision.
type Review struct {
	From     []Status
	To       Status
	Reviewer uuid.UUID
	Reason   string
}

type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	Get(ctx context.Context, id uuid.UUID) (*Medicine, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Medicine, int, error)
	Update(ctx context.Context, m *Medicine) error
	// SetStatus applies r only when the current status is one of r.From.
	SetStatus(ctx context.Context, id uuid.UUID, r Review) (*Medicine, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
