package medicine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/blobstore"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

var ErrInvalid = errors.New("invalid medicine input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// AuditRecorder writes audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Event)
}

// URLResolver turns a stored image key into a fetchable URL.
type URLResolver interface {
	ResolveOrEmpty(ctx context.Context, stored string) string
}

type Service struct {
	repo      Repository
	audit     AuditRecorder
	urls      URLResolver
	presigner blobstore.Presigner
	uploadTTL time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a Service. presigner may be nil when object storage is
// not configured; image uploads then fail with blobstore.ErrDisabled.
func NewService(repo Repository, rec AuditRecorder, urls URLResolver, presigner blobstore.Presigner,
	uploadTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		audit:     rec,
		urls:      urls,
		presigner: presigner,
		uploadTTL: uploadTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Catalog lists approved medicines for public browsing.
func (s *Service) Catalog(ctx context.Context, search, category string, p pagination.Params) ([]*Medicine, int, error) {
	return s.list(ctx, Filter{Status: StatusApproved, Search: strings.TrimSpace(search), Category: strings.TrimSpace(category)}, p)
}

// List returns medicines in any status for moderation.
func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) ([]*Medicine, int, error) {
	f.Status = Status(strings.ToUpper(string(f.Status)))
	if f.Status != "" && !f.Status.Known() {
		return nil, 0, invalidf("status must be %s, %s or %s", StatusPending, StatusApproved, StatusRejected)
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.list(ctx, f, p)
}

func (s *Service) list(ctx context.Context, f Filter, p pagination.Params) ([]*Medicine, int, error) {
	items, total, err := s.repo.List(ctx, f, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list medicines: %w", err)
	}
	for _, m := range items {
		s.resolve(ctx, m)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolve(ctx, m)
	return m, nil
}

// Create adds an admin-authored medicine, approved on creation.
func (s *Service) Create(ctx context.Context, admin auth.Admin, origin audit.Origin, req CreateRequest) (*Medicine, error) {
	now := s.now()
	m := &Medicine{
		Name:         strings.TrimSpace(req.Name),
		GenericName:  strings.TrimSpace(req.GenericName),
		Manufacturer: strings.TrimSpace(req.Manufacturer),
		Category:     strings.TrimSpace(req.Category),
		DosageForm:   strings.TrimSpace(req.DosageForm),
		Strength:     strings.TrimSpace(req.Strength),
		Description:  strings.TrimSpace(req.Description),
		Status:       StatusApproved,
		ReviewedBy:   &admin.ID,
		ReviewedAt:   &now,
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	s.record(ctx, admin, origin, audit.ActionMedicineCreated, m, map[string]any{"name": m.Name, "strength": m.Strength})
	return m, nil
}

// Update applies the non-nil fields of req. Status is changed only through
// Approve and Reject.
func (s *Service) Update(ctx context.Context, admin auth.Admin, origin audit.Origin, id uuid.UUID, req UpdateRequest) (*Medicine, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	set := func(field string, dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			changed = append(changed, field)
		}
	}
	set("name", &m.Name, req.Name)
	set("genericName", &m.GenericName, req.GenericName)
	set("manufacturer", &m.Manufacturer, req.Manufacturer)
	set("category", &m.Category, req.Category)
	set("dosageForm", &m.DosageForm, req.DosageForm)
	set("strength", &m.Strength, req.Strength)
	set("description", &m.Description, req.Description)
	set("imageKey", &m.ImageKey, req.ImageKey)
	if len(changed) == 0 {
		s.resolve(ctx, m)
		return m, nil
	}

	if err := validate(m); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	s.record(ctx, admin, origin, audit.ActionMedicineUpdated, m, map[string]any{"fields": changed})
	s.resolve(ctx, m)
	return m, nil
}

// Approve moves a PENDING or REJECTED medicine to APPROVED.
func (s *Service) Approve(ctx context.Context, admin auth.Admin, origin audit.Origin, id uuid.UUID) (*Medicine, error) {
	m, err := s.repo.SetStatus(ctx, id, Review{
		From:     []Status{StatusPending, StatusRejected},
		To:       StatusApproved,
		Reviewer: admin.ID,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, admin, origin, audit.ActionMedicineApproved, m, nil)
	s.resolve(ctx, m)
	return m, nil
}

// Reject moves a PENDING or APPROVED medicine to REJECTED with a reason.
func (s *Service) Reject(ctx context.Context, admin auth.Admin, origin audit.Origin, id uuid.UUID, reason string) (*Medicine, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalidf("a rejection reason is required")
	}
	if len(reason) > 500 {
		return nil, invalidf("reason must be at most 500 characters")
	}
	m, err := s.repo.SetStatus(ctx, id, Review{
		From:     []Status{StatusPending, StatusApproved},
		To:       StatusRejected,
		Reviewer: admin.ID,
		Reason:   reason,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, admin, origin, audit.ActionMedicineRejected, m, map[string]any{"reason": reason})
	s.resolve(ctx, m)
	return m, nil
}

func (s *Service) Delete(ctx context.Context, admin auth.Admin, origin audit.Origin, id uuid.UUID) error {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, admin, origin, audit.ActionMedicineDeleted, m, map[string]any{"name": m.Name, "strength": m.Strength})
	return nil
}

// ImageUpload issues a presigned PUT for a new image of medicine id. The
// returned key is attached with Update once the upload completes.
func (s *Service) ImageUpload(ctx context.Context, id uuid.UUID, contentType string) (*blobstore.Upload, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return blobstore.ImageUpload(ctx, s.presigner, ImagePrefix, contentType, s.uploadTTL)
}

func (s *Service) resolve(ctx context.Context, m *Medicine) {
	if s.urls != nil {
		m.ImageURL = s.urls.ResolveOrEmpty(ctx, m.ImageKey)
	}
}

func (s *Service) record(ctx context.Context, admin auth.Admin, origin audit.Origin, action string, m *Medicine, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, audit.Event{
		ActorID:      admin.ID.String(),
		ActorType:    audit.ActorAdmin,
		ActorName:    admin.Name,
		Action:       action,
		ResourceType: "Medicine",
		ResourceID:   m.ID.String(),
		Details:      details,
		Origin:       origin,
		Success:      true,
	})
}

func validate(m *Medicine) error {
	switch {
	case m.Name == "":
		return invalidf("name is required")
	case len(m.Name) > 200:
		return invalidf("name must be at most 200 characters")
	case len(m.Strength) > 100:
		return invalidf("strength must be at most 100 characters")
	case len(m.Description) > 2000:
		return invalidf("description must be at most 2000 characters")
	case m.ImageKey != "" && !strings.HasPrefix(m.ImageKey, ImagePrefix+"/"):
		return invalidf("imageKey must be a key issued by the image upload endpoint")
	}
	return nil
}
