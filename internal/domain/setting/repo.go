package setting

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("setting not found")
	ErrExists   = errors.New("setting already exists")
	// ErrTypeChanged means the row's type tag changed between read and write.
	ErrTypeChanged = errors.New("setting type changed concurrently")
)

type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context, category string) ([]*Setting, error)
	Create(ctx context.Context, s *Setting) error
	// Update writes s only while the stored type still equals expected.
	Update(ctx context.Context, s *Setting, expected Type) error
	Delete(ctx context.Context, key string) error
}
