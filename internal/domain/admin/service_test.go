package admin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/limiter"
)

// -- Mocks --

type mockRepo struct {
	admins  map[uuid.UUID]*Admin
	touched int
}

func newMockRepo() *mockRepo {
	return &mockRepo{admins: map[uuid.UUID]*Admin{}}
}

func (m *mockRepo) Create(_ context.Context, a *Admin) error {
	for _, existing := range m.admins {
		if existing.Email == a.Email {
			return ErrExists
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.admins[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Admin, error) {
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Admin, error) {
	for _, a := range m.admins {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) TouchLogin(_ context.Context, _ uuid.UUID) error {
	m.touched++
	return nil
}

func (m *mockRepo) RolesByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if a, ok := m.admins[id]; ok {
			out[id] = a.Role
		}
	}
	return out, nil
}

type mockLimiter struct {
	fails     map[string]int
	maxFails  int
	blocked   map[string]bool
	successes int
}

func newMockLimiter(maxFails int) *mockLimiter {
	return &mockLimiter{fails: map[string]int{}, blocked: map[string]bool{}, maxFails: maxFails}
}

func (m *mockLimiter) Allow(_ context.Context, id string, _ []byte) (bool, time.Duration, error) {
	if m.blocked[id] {
		return false, time.Minute, nil
	}
	return true, 0, nil
}

func (m *mockLimiter) Success(_ context.Context, id string, _ []byte) error {
	m.successes++
	m.fails[id] = 0
	return nil
}

func (m *mockLimiter) Failure(_ context.Context, id string, _ []byte) (bool, time.Duration, error) {
	m.fails[id]++
	if m.fails[id] >= m.maxFails {
		m.blocked[id] = true
		return true, 15 * time.Minute, nil
	}
	return false, 0, nil
}

type mockAudit struct {
	events []audit.Event
}

func (m *mockAudit) Record(_ context.Context, e audit.Event) {
	m.events = append(m.events, e)
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockLimiter, *mockAudit) {
	t.Helper()
	repo := newMockRepo()
	lim := newMockLimiter(3)
	rec := &mockAudit{}
	tokens := auth.NewAdminTokens(auth.NewSigner([]byte("admin-test-secret"), 8*time.Hour))
	return NewService(repo, tokens, lim, rec, zerolog.Nop()), repo, lim, rec
}

func TestService_CreateAndLogin(t *testing.T) {
	svc, repo, lim, rec := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, " Root@Bhishak.test ", "Root User", "correct-horse-battery", auth.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Email != "root@bhishak.test" || a.PasswordHash == "correct-horse-battery" {
		t.Errorf("unexpected admin %+v", a)
	}

	res, err := svc.Login(ctx, LoginRequest{Email: "ROOT@bhishak.test", Password: "correct-horse-battery"}, audit.Origin{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || res.Admin.ID != a.ID {
		t.Errorf("unexpected login response %+v", res)
	}

	verified, err := auth.NewAdminTokens(auth.NewSigner([]byte("admin-test-secret"), time.Hour)).Verify(res.Token)
	if err != nil {
		t.Fatalf("token should verify: %v", err)
	}
	if verified.Role != auth.RoleSuperAdmin || verified.ID != a.ID {
		t.Errorf("unexpected identity %+v", verified)
	}
	if repo.touched != 1 || lim.successes != 1 {
		t.Errorf("expected last login touched and limiter reset, got %d/%d", repo.touched, lim.successes)
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionLoginSuccess {
		t.Errorf("expected LOGIN_SUCCESS event, got %+v", rec.events)
	}
}

func TestService_Login_FailuresLockOut(t *testing.T) {
	svc, _, _, rec := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "ops@bhishak.test", "Ops", "correct-horse-battery", auth.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, LoginRequest{Email: "ops@bhishak.test", Password: "wrong-password"}, audit.Origin{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	_, err := svc.Login(ctx, LoginRequest{Email: "ops@bhishak.test", Password: "wrong-password"}, audit.Origin{})
	var locked *limiter.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected lockout on third failure, got %v", err)
	}

	// correct password is still refused while locked
	_, err = svc.Login(ctx, LoginRequest{Email: "ops@bhishak.test", Password: "correct-horse-battery"}, audit.Origin{})
	if !errors.As(err, &locked) {
		t.Fatalf("expected lockout to hold, got %v", err)
	}

	failed := 0
	for _, e := range rec.events {
		if e.Action == audit.ActionLoginFailed {
			failed++
		}
	}
	if failed != 3 {
		t.Errorf("expected 3 LOGIN_FAILED events, got %d", failed)
	}
}

func TestService_Login_UnknownAndInactive(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Login(ctx, LoginRequest{Email: "ghost@bhishak.test", Password: "whatever-pass"}, audit.Origin{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	a, _ := svc.Create(ctx, "former@bhishak.test", "Former", "correct-horse-battery", auth.RoleAdmin)
	repo.admins[a.ID].IsActive = false
	if _, err := svc.Login(ctx, LoginRequest{Email: "former@bhishak.test", Password: "correct-horse-battery"}, audit.Origin{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for inactive admin, got %v", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "", Password: ""}, audit.Origin{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for empty input, got %v", err)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct{ email, name, password, role string }{
		{"", "A", "long-enough-pass", auth.RoleAdmin},
		{"not-an-email", "A", "long-enough-pass", auth.RoleAdmin},
		{"a@b.test", " ", "long-enough-pass", auth.RoleAdmin},
		{"a@b.test", "", "long-enough-pass", auth.RoleAdmin},
		{"a@b.test", "A", "short", auth.RoleAdmin},
		{"a@b.test", "A", "long-enough-pass", "OWNER"},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.email, tc.name, tc.password, tc.role); !errors.Is(err, ErrInvalid) {
			t.Errorf("Create(%+v): expected ErrInvalid, got %v", tc, err)
		}
	}
}

func TestService_Create_Normalizes(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	a, err := svc.Create(context.Background(), "  Ops@Example.COM ", " Ops Lead ", "long-enough-secret", " super_admin ")
	if err != nil {
		t.Fatal(err)
	}
	if a.Email != "ops@example.com" || a.FullName != "Ops Lead" {
		t.Errorf("expected trimmed lowercase email and trimmed name, got %q %q", a.Email, a.FullName)
	}
	if a.Role != auth.RoleSuperAdmin {
		t.Errorf("expected role %s, got %s", auth.RoleSuperAdmin, a.Role)
	}
	if !a.IsActive || a.PasswordHash == "long-enough-secret" || !auth.CheckSecret(a.PasswordHash, "long-enough-secret") {
		t.Error("expected an active account with a hashed password")
	}
}

func TestService_Create_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "ops@example.com", "Ops", "long-enough-secret", auth.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "OPS@example.com", "Ops Again", "long-enough-secret", auth.RoleAdmin); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}
