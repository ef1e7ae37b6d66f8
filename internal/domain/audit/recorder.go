package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/middleware"
)

// Recorder appends audit trail rows. Write failures are logged and never
// reach the caller.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, e Event) {
	l := &Log{
		ActorID:      e.ActorID,
		ActorType:    e.ActorType,
		ActorName:    e.ActorName,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.Origin.IPAddress,
		UserAgent:    e.Origin.UserAgent,
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
	}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			r.logger.Warn().Err(err).Str("action", e.Action).Msg("audit details not serialisable, dropping")
		} else {
			l.Details = b
		}
	}
	if l.ActorType == "" {
		l.ActorType = ActorSystem
	}

	if err := r.repo.Insert(context.WithoutCancel(ctx), l); err != nil {
		r.logger.Error().Err(err).
			Str("action", e.Action).
			Str("actor_id", e.ActorID).
			Msg("failed to write audit log")
	}
}

// RecordAccess implements middleware.AccessRecorder.
func (r *Recorder) RecordAccess(ctx context.Context, entry middleware.AccessEntry) error {
	return r.repo.InsertAccess(ctx, &AccessLog{
		AdminID:      entry.AdminID,
		AdminEmail:   entry.AdminEmail,
		AccessType:   entry.AccessType,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Reason:       entry.Reason,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
	})
}
