package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, l *Log) error
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Log, int, error)
	InsertAccess(ctx context.Context, l *AccessLog) error
	SearchAccess(ctx context.Context, f AccessFilter, limit, offset int) ([]*AccessLog, int, error)
	CountAction(ctx context.Context, action string, since time.Time) (int, error)
	CountAccess(ctx context.Context, accessType string, since time.Time) (int, error)
	RecentByAction(ctx context.Context, action string, since time.Time, n int) ([]*Log, error)
}

// RoleLookup resolves the current role of admins in one call.
type RoleLookup interface {
	RolesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}
