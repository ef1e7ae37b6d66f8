package patient

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/limiter"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/notification"
)

var (
	ErrInvalid            = errors.New("invalid patient input")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPAttempts        = errors.New("too many otp attempts")
	ErrNotVerified        = errors.New("phone number not verified")
	ErrInvalidCredentials = errors.New("invalid phone or pin")
)

// ResendError is returned when a code was sent too recently.
type ResendError struct {
	RetryAfter time.Duration
}

func (e *ResendError) Error() string {
	return fmt.Sprintf("otp resend allowed in %s", e.RetryAfter.Round(time.Second))
}

// Tokens issues and verifies patient tokens.
type Tokens interface {
	Issue(p auth.Patient) (*auth.TokenPair, error)
	VerifyRefresh(token string) (uuid.UUID, error)
}

// Notifier delivers templated SMS.
type Notifier interface {
	Send(ctx context.Context, phone, templateID string, data map[string]string) error
}

// AuditRecorder writes audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Event)
}

type Config struct {
	OTPLength      int
	OTPTTL         time.Duration
	ResendInterval time.Duration
	MaxAttempts    int
	// SignupWindow bounds how long a verified SIGNUP code stays usable.
	SignupWindow time.Duration
}

type Service struct {
	cfg      Config
	repo     Repository
	otps     OTPRepository
	tokens   Tokens
	limiter  limiter.Limiter
	notifier Notifier
	audit    AuditRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(cfg Config, repo Repository, otps OTPRepository, tokens Tokens, lim limiter.Limiter,
	notifier Notifier, rec AuditRecorder, logger zerolog.Logger) *Service {
	if cfg.OTPLength == 0 {
		cfg.OTPLength = 6
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.SignupWindow == 0 {
		cfg.SignupWindow = 15 * time.Minute
	}
	return &Service{
		cfg:      cfg,
		repo:     repo,
		otps:     otps,
		tokens:   tokens,
		limiter:  lim,
		notifier: notifier,
		audit:    rec,
		logger:   logger,
		now:      time.Now,
	}
}

// SendOTP generates a code for phone and purpose and delivers it by SMS.
// SIGNUP codes are refused for registered numbers, LOGIN codes for unknown ones.
func (s *Service) SendOTP(ctx context.Context, req SendOTPRequest) (*SendOTPResponse, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	purpose := strings.ToUpper(strings.TrimSpace(req.Purpose))
	if purpose == "" {
		purpose = PurposeSignup
	}
	if !validPurpose(purpose) {
		return nil, fmt.Errorf("%w: purpose must be %s or %s", ErrInvalid, PurposeSignup, PurposeLogin)
	}

	_, err = s.repo.GetByPhone(ctx, phone)
	switch {
	case err == nil && purpose == PurposeSignup:
		return nil, ErrExists
	case errors.Is(err, ErrNotFound) && purpose == PurposeLogin:
		return nil, ErrNotFound
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	now := s.now()
	if s.cfg.ResendInterval > 0 {
		last, err := s.otps.Latest(ctx, phone, purpose)
		if err != nil && !errors.Is(err, ErrNoOTP) {
			return nil, err
		}
		if last != nil {
			if wait := last.CreatedAt.Add(s.cfg.ResendInterval).Sub(now); wait > 0 {
				return nil, &ResendError{RetryAfter: wait}
			}
		}
	}

	code, err := generateCode(s.cfg.OTPLength)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := auth.HashSecret(code)
	if err != nil {
		return nil, err
	}
	otp := &OTP{Phone: phone, Purpose: purpose, CodeHash: hash, ExpiresAt: now.Add(s.cfg.OTPTTL)}
	if err := s.otps.Create(ctx, otp); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	template := notification.TemplateSignupOTP
	if purpose == PurposeLogin {
		template = notification.TemplateLoginOTP
	}
	minutes := strconv.Itoa(int(s.cfg.OTPTTL.Minutes()))
	if err := s.notifier.Send(ctx, phone, template, map[string]string{"code": code, "minutes": minutes}); err != nil {
		// An undelivered code must not hold the resend interval.
		if cerr := s.otps.Consume(ctx, otp.ID); cerr != nil {
			s.logger.Warn().Err(cerr).Str("otp_id", otp.ID.String()).Msg("failed to retire undelivered otp")
		}
		return nil, fmt.Errorf("send otp: %w", err)
	}

	return &SendOTPResponse{Phone: phone, Purpose: purpose, ExpiresIn: int(s.cfg.OTPTTL.Seconds())}, nil
}

// VerifyOTP checks a code. A verified SIGNUP code is held for Signup; a
// verified LOGIN code signs the patient in.
func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest, origin audit.Origin) (*VerifyOTPResponse, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: otp is required", ErrInvalid)
	}
	purpose := strings.ToUpper(strings.TrimSpace(req.Purpose))
	if purpose == "" {
		purpose = PurposeSignup
	}
	if !validPurpose(purpose) {
		return nil, fmt.Errorf("%w: purpose must be %s or %s", ErrInvalid, PurposeSignup, PurposeLogin)
	}

	otp, err := s.otps.Latest(ctx, phone, purpose)
	if errors.Is(err, ErrNoOTP) {
		return nil, ErrInvalidOTP
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(otp.ExpiresAt) {
		return nil, ErrOTPExpired
	}
	// The attempt is claimed in the same statement that checks the cap, so
	// concurrent guesses cannot all slip under it.
	claimed, err := s.otps.ClaimAttempt(ctx, otp.ID, s.cfg.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("claim otp attempt: %w", err)
	}
	if !claimed {
		return nil, ErrOTPAttempts
	}
	if !auth.CheckSecret(otp.CodeHash, code) {
		return nil, ErrInvalidOTP
	}
	if err := s.otps.MarkVerified(ctx, otp.ID); err != nil {
		return nil, fmt.Errorf("mark otp verified: %w", err)
	}

	res := &VerifyOTPResponse{Verified: true, Purpose: purpose}
	if purpose != PurposeLogin {
		return res, nil
	}

	if err := s.otps.Consume(ctx, otp.ID); errors.Is(err, ErrNoOTP) {
		return nil, ErrInvalidOTP
	} else if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	p, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	tokens, err := s.signIn(ctx, p, origin, "otp")
	if err != nil {
		return nil, err
	}
	res.Patient = p
	res.Tokens = tokens
	return res, nil
}

// Signup creates an account for a phone verified through a SIGNUP code.
func (s *Service) Signup(ctx context.Context, req SignupRequest, origin audit.Origin) (*AuthResponse, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	p := &Patient{
		Phone:         phone,
		FullName:      strings.TrimSpace(req.FullName),
		Age:           req.Age,
		Gender:        strings.ToUpper(strings.TrimSpace(req.Gender)),
		AccountType:   strings.ToUpper(strings.TrimSpace(req.AccountType)),
		Email:         trimOptional(req.Email),
		PhoneVerified: true,
	}
	if p.AccountType == "" {
		p.AccountType = AccountIndividual
	}
	if err := validateProfile(p); err != nil {
		return nil, err
	}
	if !ValidPIN(req.PIN) {
		return nil, fmt.Errorf("%w: pin must be 4 to 6 digits", ErrInvalid)
	}

	if _, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return nil, ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.otps.ConsumeVerified(ctx, phone, PurposeSignup, s.now().Add(-s.cfg.SignupWindow)); err != nil {
		if errors.Is(err, ErrNoOTP) {
			return nil, ErrNotVerified
		}
		return nil, err
	}

	hash, err := auth.HashSecret(req.PIN)
	if err != nil {
		return nil, err
	}
	p.PINHash = hash
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.Issue(p.Identity())
	if err != nil {
		return nil, fmt.Errorf("issue patient tokens: %w", err)
	}
	s.record(ctx, audit.Event{
		ActorID:      p.ID.String(),
		ActorType:    audit.ActorPatient,
		ActorName:    p.FullName,
		Action:       audit.ActionPatientSignup,
		ResourceType: "Patient",
		ResourceID:   p.ID.String(),
		Details:      map[string]any{"accountType": p.AccountType},
		Origin:       origin,
		Success:      true,
	})
	return &AuthResponse{Patient: p, Tokens: tokens}, nil
}

// Login checks phone and PIN. Repeated failures for the same phone and
// client lock the pair out.
func (s *Service) Login(ctx context.Context, req LoginRequest, origin audit.Origin) (*AuthResponse, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	if req.PIN == "" {
		return nil, fmt.Errorf("%w: pin is required", ErrInvalid)
	}

	key := "patient:" + phone
	ipHash := limiter.HashIP(origin.IPAddress)
	ok, retry, err := s.limiter.Allow(ctx, key, ipHash)
	if err != nil {
		return nil, fmt.Errorf("check login limiter: %w", err)
	}
	if !ok {
		return nil, &limiter.LockedError{RetryAfter: retry}
	}

	p, err := s.repo.GetByPhone(ctx, phone)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	var pinHash string
	if p != nil {
		pinHash = p.PINHash
	}
	if !auth.CheckSecretOrDummy(pinHash, req.PIN) {
		return nil, s.loginFailed(ctx, key, ipHash, phone, p, origin)
	}

	if err := s.limiter.Success(ctx, key, ipHash); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reset patient login limiter")
	}
	tokens, err := s.signIn(ctx, p, origin, "pin")
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Patient: p, Tokens: tokens}, nil
}

func (s *Service) signIn(ctx context.Context, p *Patient, origin audit.Origin, method string) (*auth.TokenPair, error) {
	if err := s.repo.TouchLogin(ctx, p.ID); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("failed to update last login")
	}
	tokens, err := s.tokens.Issue(p.Identity())
	if err != nil {
		return nil, fmt.Errorf("issue patient tokens: %w", err)
	}
	s.record(ctx, audit.Event{
		ActorID:      p.ID.String(),
		ActorType:    audit.ActorPatient,
		ActorName:    p.FullName,
		Action:       audit.ActionLoginSuccess,
		ResourceType: "Patient",
		ResourceID:   p.ID.String(),
		Details:      map[string]any{"method": method},
		Origin:       origin,
		Success:      true,
	})
	return tokens, nil
}

func (s *Service) loginFailed(ctx context.Context, key string, ipHash []byte, phone string, p *Patient, origin audit.Origin) error {
	e := audit.Event{
		ActorType:    audit.ActorPatient,
		ActorName:    notification.MaskPhone(phone),
		Action:       audit.ActionLoginFailed,
		ResourceType: "Patient",
		Details:      map[string]any{"method": "pin"},
		Origin:       origin,
		ErrorMessage: "invalid credentials",
	}
	if p != nil {
		e.ActorID = p.ID.String()
		e.ResourceID = p.ID.String()
	}
	s.record(ctx, e)

	locked, retry, err := s.limiter.Failure(ctx, key, ipHash)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to record patient login failure")
		return ErrInvalidCredentials
	}
	if locked {
		return &limiter.LockedError{RetryAfter: retry}
	}
	return ErrInvalidCredentials
}

// Refresh exchanges a refresh token for a new token pair. Token errors are
// returned unchanged so callers can map them with auth.HTTPError.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, fmt.Errorf("%w: refreshToken is required", ErrInvalid)
	}
	id, err := s.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tokens, err := s.tokens.Issue(p.Identity())
	if err != nil {
		return nil, fmt.Errorf("issue patient tokens: %w", err)
	}
	return &AuthResponse{Patient: p, Tokens: tokens}, nil
}

func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies the non-nil fields of req.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest, origin audit.Origin) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if req.FullName != nil {
		p.FullName = strings.TrimSpace(*req.FullName)
		changed = append(changed, "fullName")
	}
	if req.Age != nil {
		p.Age = *req.Age
		changed = append(changed, "age")
	}
	if req.Gender != nil {
		p.Gender = strings.ToUpper(strings.TrimSpace(*req.Gender))
		changed = append(changed, "gender")
	}
	if req.AccountType != nil {
		p.AccountType = strings.ToUpper(strings.TrimSpace(*req.AccountType))
		changed = append(changed, "accountType")
	}
	if req.Email != nil {
		p.Email = trimOptional(req.Email)
		changed = append(changed, "email")
	}
	if len(changed) == 0 {
		return p, nil
	}
	if err := validateProfile(p); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event{
		ActorID:      p.ID.String(),
		ActorType:    audit.ActorPatient,
		ActorName:    p.FullName,
		Action:       audit.ActionProfileUpdated,
		ResourceType: "Patient",
		ResourceID:   p.ID.String(),
		Details:      map[string]any{"fields": changed},
		Origin:       origin,
		Success:      true,
	})
	return p, nil
}

// ChangePIN replaces the PIN after checking the current one.
func (s *Service) ChangePIN(ctx context.Context, id uuid.UUID, req ChangePINRequest, origin audit.Origin) error {
	if req.CurrentPIN == "" {
		return fmt.Errorf("%w: currentPin is required", ErrInvalid)
	}
	if !ValidPIN(req.NewPIN) {
		return fmt.Errorf("%w: new pin must be 4 to 6 digits", ErrInvalid)
	}
	if req.NewPIN == req.CurrentPIN {
		return fmt.Errorf("%w: new pin must differ from the current pin", ErrInvalid)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckSecret(p.PINHash, req.CurrentPIN) {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashSecret(req.NewPIN)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePIN(ctx, id, hash); err != nil {
		return err
	}

	if err := s.notifier.Send(ctx, p.Phone, notification.TemplatePINChanged, map[string]string{"name": p.FullName}); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("failed to send pin change notice")
	}
	s.record(ctx, audit.Event{
		ActorID:      p.ID.String(),
		ActorType:    audit.ActorPatient,
		ActorName:    p.FullName,
		Action:       audit.ActionPINChanged,
		ResourceType: "Patient",
		ResourceID:   p.ID.String(),
		Origin:       origin,
		Success:      true,
	})
	return nil
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.audit != nil {
		s.audit.Record(ctx, e)
	}
}

func validateProfile(p *Patient) error {
	switch {
	case p.FullName == "":
		return fmt.Errorf("%w: fullName is required", ErrInvalid)
	case len(p.FullName) > 120:
		return fmt.Errorf("%w: fullName must be at most 120 characters", ErrInvalid)
	case p.Age < 1 || p.Age > 120:
		return fmt.Errorf("%w: age must be between 1 and 120", ErrInvalid)
	case !validGender(p.Gender):
		return fmt.Errorf("%w: gender must be %s, %s or %s", ErrInvalid, GenderMale, GenderFemale, GenderOther)
	case !validAccountType(p.AccountType):
		return fmt.Errorf("%w: accountType must be %s or %s", ErrInvalid, AccountIndividual, AccountFamily)
	case p.Email != nil && !validEmail(*p.Email):
		return fmt.Errorf("%w: invalid email", ErrInvalid)
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func generateCode(n int) (string, error) {
	ten := big.NewInt(10)
	b := make([]byte, n)
	for i := range b {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b[i] = byte('0' + d.Int64())
	}
	return string(b), nil
}
