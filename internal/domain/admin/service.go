package admin

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/limiter"
)

var (
	ErrInvalid            = errors.New("invalid admin input")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// TokenIssuer signs admin tokens.
type TokenIssuer interface {
	Issue(a auth.Admin) (string, time.Time, error)
}

// AuditRecorder writes audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Event)
}

type Service struct {
	repo    Repository
	tokens  TokenIssuer
	limiter limiter.Limiter
	audit   AuditRecorder
	logger  zerolog.Logger
}

func NewService(repo Repository, tokens TokenIssuer, lim limiter.Limiter, rec AuditRecorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, limiter: lim, audit: rec, logger: logger}
}

// Login checks credentials and issues an admin token. Repeated failures for
// the same email and client lock the pair out.
func (s *Service) Login(ctx context.Context, req LoginRequest, origin audit.Origin) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalid)
	}

	key := "admin:" + email
	ipHash := limiter.HashIP(origin.IPAddress)
	ok, retry, err := s.limiter.Allow(ctx, key, ipHash)
	if err != nil {
		return nil, fmt.Errorf("check login limiter: %w", err)
	}
	if !ok {
		return nil, &limiter.LockedError{RetryAfter: retry}
	}

	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	var passwordHash string
	if a != nil {
		passwordHash = a.PasswordHash
	}
	if !auth.CheckSecretOrDummy(passwordHash, req.Password) || !a.IsActive {
		return nil, s.loginFailed(ctx, key, ipHash, email, a, origin)
	}

	if err := s.limiter.Success(ctx, key, ipHash); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reset admin login limiter")
	}
	if err := s.repo.TouchLogin(ctx, a.ID); err != nil {
		s.logger.Warn().Err(err).Str("admin_id", a.ID.String()).Msg("failed to update last login")
	}

	token, exp, err := s.tokens.Issue(a.Identity())
	if err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}
	s.record(ctx, audit.Event{
		ActorID:      a.ID.String(),
		ActorType:    audit.ActorAdmin,
		ActorName:    a.FullName,
		Action:       audit.ActionLoginSuccess,
		ResourceType: "Admin",
		ResourceID:   a.ID.String(),
		Origin:       origin,
		Success:      true,
	})
	return &LoginResponse{Token: token, ExpiresAt: exp, Admin: a}, nil
}

func (s *Service) loginFailed(ctx context.Context, key string, ipHash []byte, email string, a *Admin, origin audit.Origin) error {
	e := audit.Event{
		ActorType:    audit.ActorAdmin,
		ActorName:    email,
		Action:       audit.ActionLoginFailed,
		ResourceType: "Admin",
		Origin:       origin,
		ErrorMessage: "invalid credentials",
	}
	if a != nil {
		e.ActorID = a.ID.String()
		e.ResourceID = a.ID.String()
		if !a.IsActive {
			e.ErrorMessage = "account inactive"
		}
	}
	s.record(ctx, e)

	locked, retry, err := s.limiter.Failure(ctx, key, ipHash)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to record admin login failure")
		return ErrInvalidCredentials
	}
	if locked {
		return &limiter.LockedError{RetryAfter: retry}
	}
	return ErrInvalidCredentials
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return s.repo.GetByID(ctx, id)
}

// Create provisions an admin account. It backs the admin create command.
func (s *Service) Create(ctx context.Context, email, fullName, password, role string) (*Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalid)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrInvalid, email)
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalid)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, MinPasswordLength)
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if !auth.ValidAdminRole(role) {
		return nil, fmt.Errorf("%w: role must be %s or %s", ErrInvalid, auth.RoleSuperAdmin, auth.RoleAdmin)
	}

	hash, err := auth.HashSecret(password)
	if err != nil {
		return nil, err
	}
	a := &Admin{Email: email, FullName: fullName, PasswordHash: hash, Role: role, IsActive: true}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.audit != nil {
		s.audit.Record(ctx, e)
	}
}
