package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("admin not found")
	ErrExists   = errors.New("admin email already registered")
)

type Repository interface {
	Create(ctx context.Context, a *Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	TouchLogin(ctx context.Context, id uuid.UUID) error
	RolesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}
