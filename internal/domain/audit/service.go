package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

const (
	// MaxExportRows caps a CSV export.
	MaxExportRows = 5000
	// DefaultStatsDays is the stats window when ?days is omitted.
	DefaultStatsDays = 30
)

const recentFailedLogins = 10

type Service struct {
	repo   Repository
	roles  RoleLookup
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, roles RoleLookup, logger zerolog.Logger) *Service {
	return &Service{repo: repo, roles: roles, logger: logger, now: time.Now}
}

// Search returns one page of audit logs, newest first, with admin rows
// carrying the admin's current role.
func (s *Service) Search(ctx context.Context, f Filter, p pagination.Params) ([]*Log, int, error) {
	logs, total, err := s.repo.Search(ctx, f, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("search audit logs: %w", err)
	}
	s.enrichRoles(ctx, logs)
	return logs, total, nil
}

// Export returns up to MaxExportRows matching logs for download.
func (s *Service) Export(ctx context.Context, f Filter) ([]*Log, error) {
	logs, _, err := s.repo.Search(ctx, f, MaxExportRows, 0)
	if err != nil {
		return nil, fmt.Errorf("export audit logs: %w", err)
	}
	s.enrichRoles(ctx, logs)
	return logs, nil
}

// enrichRoles sets ActorRole on ADMIN rows with one batched lookup. A failed
// lookup or an unknown admin degrades to "ADMIN".
func (s *Service) enrichRoles(ctx context.Context, logs []*Log) {
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, l := range logs {
		if l.ActorType != ActorAdmin {
			continue
		}
		id, err := uuid.Parse(l.ActorID)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	var roles map[uuid.UUID]string
	if len(ids) > 0 && s.roles != nil {
		var err error
		roles, err = s.roles.RolesByIDs(ctx, ids)
		if err != nil {
			s.logger.Warn().Err(err).Int("admins", len(ids)).Msg("admin role lookup failed, defaulting to ADMIN")
			roles = nil
		}
	}

	for _, l := range logs {
		if l.ActorType != ActorAdmin {
			continue
		}
		l.ActorRole = ActorAdmin
		if id, err := uuid.Parse(l.ActorID); err == nil {
			if role, ok := roles[id]; ok && role != "" {
				l.ActorRole = role
			}
		}
	}
}

func (s *Service) SearchAccess(ctx context.Context, f AccessFilter, p pagination.Params) ([]*AccessLog, int, error) {
	logs, total, err := s.repo.SearchAccess(ctx, f, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("search admin access logs: %w", err)
	}
	return logs, total, nil
}

// Stats counts activity over the last days days. The counters are independent
// queries and run concurrently.
func (s *Service) Stats(ctx context.Context, days int) (*Stats, error) {
	since := s.now().UTC().AddDate(0, 0, -days)
	st := &Stats{}
	st.Period.Days = days
	st.Period.Since = since

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, action string) {
		g.Go(func() error {
			n, err := s.repo.CountAction(gctx, action, since)
			if err != nil {
				return fmt.Errorf("count %s: %w", action, err)
			}
			*dst = n
			return nil
		})
	}
	count(&st.Logins, ActionLoginSuccess)
	count(&st.FailedLogins, ActionLoginFailed)
	count(&st.PrescriptionsCreated, ActionPrescriptionCreated)
	count(&st.PaymentsConfirmed, ActionPaymentConfirmed)
	g.Go(func() error {
		n, err := s.repo.CountAccess(gctx, AccessReveal, since)
		if err != nil {
			return fmt.Errorf("count reveals: %w", err)
		}
		st.SensitiveReveals = n
		return nil
	})
	g.Go(func() error {
		logs, err := s.repo.RecentByAction(gctx, ActionLoginFailed, since, recentFailedLogins)
		if err != nil {
			return fmt.Errorf("recent failed logins: %w", err)
		}
		st.RecentFailedLogins = logs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}
