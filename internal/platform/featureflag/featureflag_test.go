package featureflag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
)

type mockStore struct {
	values map[string]string
	err    error
	calls  int
}

func (m *mockStore) GetValue(_ context.Context, key string) (string, bool, error) {
	m.calls++
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func TestGate_Lookup(t *testing.T) {
	tests := []struct {
		name       string
		stored     map[string]string
		storeErr   error
		env        map[string]string
		wantOn     bool
		wantSource string
	}{
		{"absent row, env true", nil, nil, map[string]string{PatientSignup: "true"}, true, SourceEnvironment},
		{"absent row, env false", nil, nil, map[string]string{PatientSignup: "false"}, false, SourceEnvironment},
		{"absent row, env unset", nil, nil, nil, false, SourceEnvironment},
		{"absent row, env TRUE is not true", nil, nil, map[string]string{PatientSignup: "TRUE"}, false, SourceEnvironment},
		{"row true beats env false", map[string]string{PatientSignup: "true"}, nil, map[string]string{PatientSignup: "false"}, true, SourceDatabase},
		{"row false beats env true", map[string]string{PatientSignup: "false"}, nil, map[string]string{PatientSignup: "true"}, false, SourceDatabase},
		{"row garbage is false", map[string]string{PatientSignup: "yes"}, nil, map[string]string{PatientSignup: "true"}, false, SourceDatabase},
		{"store error falls back", map[string]string{PatientSignup: "false"}, errors.New("connection reset"), map[string]string{PatientSignup: "true"}, true, SourceEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(&mockStore{values: tt.stored, err: tt.storeErr}, tt.env, zerolog.Nop())
			on, source := g.Lookup(context.Background(), PatientSignup)
			if on != tt.wantOn {
				t.Errorf("expected enabled=%v, got %v", tt.wantOn, on)
			}
			if source != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, source)
			}
		})
	}
}

func runSignup(t *testing.T, g *Gate) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler(zerolog.Nop())

	reached := false
	e.POST("/signup", func(c echo.Context) error {
		reached = true
		return c.JSON(http.StatusCreated, map[string]bool{"success": true})
	}, g.RequirePatientSignup())

	req := httptest.NewRequest(http.MethodPost, "/signup", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, reached
}

func TestRequirePatientSignup_EnvTrueProceeds(t *testing.T) {
	g := NewGate(&mockStore{}, map[string]string{PatientSignup: "true"}, zerolog.Nop())

	rec, reached := runSignup(t, g)
	if !reached {
		t.Fatal("expected signup handler to run")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestRequirePatientSignup_DisabledResponse(t *testing.T) {
	for _, env := range []map[string]string{
		{PatientSignup: "false"},
		nil,
	} {
		g := NewGate(&mockStore{}, env, zerolog.Nop())

		rec, reached := runSignup(t, g)
		if reached {
			t.Fatal("signup handler must not run when disabled")
		}
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["success"] != false {
			t.Errorf("expected success=false, got %v", body["success"])
		}
		if body["code"] != "PATIENT_SIGNUP_DISABLED" {
			t.Errorf("expected PATIENT_SIGNUP_DISABLED, got %v", body["code"])
		}
		if body["message"] != "Patient signup is not yet available" {
			t.Errorf("unexpected message %v", body["message"])
		}
	}
}

func TestRequirePatientSignup_DatabaseWins(t *testing.T) {
	store := &mockStore{values: map[string]string{PatientSignup: "false"}}
	g := NewGate(store, map[string]string{PatientSignup: "true"}, zerolog.Nop())

	rec, reached := runSignup(t, g)
	if reached || rec.Code != http.StatusForbidden {
		t.Errorf("expected persisted false to win, got %d reached=%v", rec.Code, reached)
	}
	if store.calls != 1 {
		t.Errorf("expected one store lookup, got %d", store.calls)
	}
}
