// Package featureflag decides whether gated code paths are enabled. Persisted
// settings win; the process environment is the fallback.
package featureflag

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
)

// PatientSignup gates patient OTP sending and account creation.
const PatientSignup = "ENABLE_PATIENT_SIGNUP"

const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
)

// Store reads persisted flag values.
type Store interface {
	GetValue(ctx context.Context, key string) (value string, found bool, err error)
}

// Gate resolves boolean feature flags.
type Gate struct {
	store  Store
	env    map[string]string
	logger zerolog.Logger
}

// NewGate creates a Gate. env maps flag keys to their raw environment values;
// a key missing from env is treated as unset.
func NewGate(store Store, env map[string]string, logger zerolog.Logger) *Gate {
	if env == nil {
		env = map[string]string{}
	}
	return &Gate{store: store, env: env, logger: logger}
}

// Lookup returns whether key is enabled and where the answer came from.
// Store failures are logged and fall back to the environment.
func (g *Gate) Lookup(ctx context.Context, key string) (bool, string) {
	value, found, err := g.store.GetValue(ctx, key)
	if err != nil {
		g.logger.Warn().Err(err).Str("flag", key).Msg("feature flag lookup failed, using environment")
	} else if found {
		return value == "true", SourceDatabase
	}
	env, _ := g.EnvValue(key)
	return env == "true", SourceEnvironment
}

// Enabled reports whether key is enabled.
func (g *Gate) Enabled(ctx context.Context, key string) bool {
	enabled, _ := g.Lookup(ctx, key)
	return enabled
}

// EnvValue returns the raw environment value for key.
func (g *Gate) EnvValue(key string) (string, bool) {
	v, ok := g.env[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Require returns middleware that rejects requests with 403 and code when
// key is disabled. The guarded handler is never called in that case.
func (g *Gate) Require(key, code, message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.Enabled(c.Request().Context(), key) {
				return httpx.New(http.StatusForbidden, code, message)
			}
			return next(c)
		}
	}
}

// RequirePatientSignup gates the patient signup endpoints.
func (g *Gate) RequirePatientSignup() echo.MiddlewareFunc {
	return g.Require(PatientSignup, httpx.CodePatientSignupDisabled,
		"Patient signup is not yet available")
}
