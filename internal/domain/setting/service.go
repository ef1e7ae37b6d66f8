package setting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/featureflag"
)

// ErrInvalid wraps every write validation failure.
var ErrInvalid = errors.New("invalid setting")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// AuditRecorder writes audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Event)
}

// EnvSource supplies environment fallback values for known flag keys.
type EnvSource interface {
	EnvValue(key string) (string, bool)
}

type Service struct {
	repo   Repository
	audit  AuditRecorder
	logger zerolog.Logger
}

func NewService(repo Repository, rec AuditRecorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, audit: rec, logger: logger}
}

// GetValue implements featureflag.Store.
func (s *Service) GetValue(ctx context.Context, key string) (string, bool, error) {
	st, err := s.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.Value, true, nil
}

func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	return s.repo.Get(ctx, key)
}

func (s *Service) List(ctx context.Context, category string) ([]*Setting, error) {
	return s.repo.List(ctx, category)
}

// Public returns a public setting value. Rows flagged non-public are hidden.
// When no row exists, or the read fails, known flags fall back to env.
func (s *Service) Public(ctx context.Context, key string, env EnvSource) (*PublicValue, error) {
	st, err := s.repo.Get(ctx, key)
	switch {
	case err == nil:
		if !st.IsPublic {
			return nil, ErrNotFound
		}
		return &PublicValue{Key: key, Value: Coerce(st.Value, st.Type), Source: featureflag.SourceDatabase}, nil
	case errors.Is(err, ErrNotFound):
	default:
		s.logger.Warn().Err(err).Str("key", key).Msg("setting lookup failed, using environment")
	}

	raw, ok := env.EnvValue(key)
	if !ok {
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return &PublicValue{Key: key, Value: Coerce(raw, TypeBoolean), Source: featureflag.SourceEnvironment}, nil
}

func (s *Service) Create(ctx context.Context, admin auth.Admin, origin audit.Origin, req CreateRequest) (*Setting, error) {
	key := strings.TrimSpace(req.Key)
	if !validKey(key) {
		return nil, invalidf("key must be 1-100 characters of letters, digits, '_', '.' or '-'")
	}
	if req.Type == "" {
		req.Type = TypeString
	}
	if !req.Type.Known() {
		return nil, invalidf("unsupported setting type %q", req.Type)
	}
	raw, err := RawValue(req.Value)
	if err != nil {
		return nil, invalidf("%s", err.Error())
	}
	if err := ValidateValue(raw, req.Type); err != nil {
		return nil, invalidf("%s", err.Error())
	}

	st := &Setting{
		Key:         key,
		Value:       raw,
		Type:        req.Type,
		Category:    strings.TrimSpace(req.Category),
		Label:       req.Label,
		Description: req.Description,
		IsPublic:    true,
		UpdatedBy:   &admin.ID,
	}
	if st.Category == "" {
		st.Category = "GENERAL"
	}
	if req.IsPublic != nil {
		st.IsPublic = *req.IsPublic
	}

	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	s.record(ctx, admin, origin, audit.ActionSettingCreated, st.Key, map[string]any{"value": st.Value, "type": st.Type})
	return st, nil
}

// Update validates the new value against the effective type and writes it
// with a conditional update on the type read here.
func (s *Service) Update(ctx context.Context, admin auth.Admin, origin audit.Origin, key string, req UpdateRequest) (*Setting, error) {
	current, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.Type != nil {
		if !req.Type.Known() {
			return nil, invalidf("unsupported setting type %q", *req.Type)
		}
		next.Type = *req.Type
	}
	if req.Value != nil {
		raw, err := RawValue(req.Value)
		if err != nil {
			return nil, invalidf("%s", err.Error())
		}
		next.Value = raw
	}
	if err := ValidateValue(next.Value, next.Type); err != nil {
		return nil, invalidf("%s", err.Error())
	}
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.Label != nil {
		next.Label = *req.Label
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.IsPublic != nil {
		next.IsPublic = *req.IsPublic
	}
	next.UpdatedBy = &admin.ID

	if err := s.repo.Update(ctx, &next, current.Type); err != nil {
		return nil, err
	}
	s.record(ctx, admin, origin, audit.ActionSettingUpdated, key, map[string]any{
		"oldValue": current.Value,
		"newValue": next.Value,
		"type":     next.Type,
	})
	return &next, nil
}

func (s *Service) Delete(ctx context.Context, admin auth.Admin, origin audit.Origin, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.record(ctx, admin, origin, audit.ActionSettingDeleted, key, nil)
	return nil
}

func (s *Service) record(ctx context.Context, admin auth.Admin, origin audit.Origin, action, key string, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, audit.Event{
		ActorID:      admin.ID.String(),
		ActorType:    audit.ActorAdmin,
		ActorName:    admin.Name,
		Action:       action,
		ResourceType: "SystemSetting",
		ResourceID:   key,
		Details:      details,
		Origin:       origin,
		Success:      true,
	})
}
