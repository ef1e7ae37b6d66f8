package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("doctor not found")

// Repository reads verified doctors only.
type Repository interface {
	List(ctx context.Context, f Filter, limit, offset int) ([]*Doctor, int, error)
	Get(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Specializations(ctx context.Context) ([]Specialization, error)
}
