package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
)

const (
	patientKey = "auth.patient"
	adminKey   = "auth.admin"

	// ActorIDKey and ActorTypeKey are set for request logging.
	ActorIDKey   = "actor_id"
	ActorTypeKey = "actor_type"
)

// PatientVerifier verifies patient access tokens.
type PatientVerifier interface {
	VerifyAccess(token string) (Patient, error)
}

// AdminVerifier verifies admin tokens.
type AdminVerifier interface {
	Verify(token string) (Admin, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// HTTPError maps a token verification error to its client-facing error.
func HTTPError(err error) *httpx.Error {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return httpx.Unauthorized(httpx.CodeTokenExpired, "Token has expired")
	case errors.Is(err, ErrWrongTokenType):
		return httpx.New(http.StatusForbidden, httpx.CodeInvalidTokenType, "Token is not valid for this endpoint")
	case errors.Is(err, ErrInvalidToken):
		return httpx.New(http.StatusForbidden, httpx.CodeInvalidToken, "Invalid token")
	default:
		return httpx.Unauthorized(httpx.CodeNoToken, "Authentication required")
	}
}

// RequirePatient verifies the patient bearer token before calling next.
func RequirePatient(v PatientVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c.Request())
			if err != nil {
				return HTTPError(err)
			}
			p, err := v.VerifyAccess(token)
			if err != nil {
				return HTTPError(err)
			}
			c.Set(patientKey, p)
			c.Set(ActorIDKey, p.ID.String())
			c.Set(ActorTypeKey, "PATIENT")
			return next(c)
		}
	}
}

// RequireAdmin verifies the admin bearer token before calling next.
func RequireAdmin(v AdminVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c.Request())
			if err != nil {
				return HTTPError(err)
			}
			a, err := v.Verify(token)
			if err != nil {
				return HTTPError(err)
			}
			c.Set(adminKey, a)
			c.Set(ActorIDKey, a.ID.String())
			c.Set(ActorTypeKey, "ADMIN")
			return next(c)
		}
	}
}

// PatientHandlerFunc is a handler that receives the verified patient.
type PatientHandlerFunc func(c echo.Context, p Patient) error

// AdminHandlerFunc is a handler that receives the verified admin.
type AdminHandlerFunc func(c echo.Context, a Admin) error

// WithPatient adapts h to echo, passing the identity set by RequirePatient.
func WithPatient(h PatientHandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := PatientFrom(c)
		if !ok {
			return HTTPError(ErrNoToken)
		}
		return h(c, p)
	}
}

// WithAdmin adapts h to echo, passing the identity set by RequireAdmin.
func WithAdmin(h AdminHandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, ok := AdminFrom(c)
		if !ok {
			return HTTPError(ErrNoToken)
		}
		return h(c, a)
	}
}

// PatientFrom returns the patient verified for this request, if any.
func PatientFrom(c echo.Context) (Patient, bool) {
	p, ok := c.Get(patientKey).(Patient)
	return p, ok
}

// AdminFrom returns the admin verified for this request, if any.
func AdminFrom(c echo.Context) (Admin, bool) {
	a, ok := c.Get(adminKey).(Admin)
	return a, ok
}

// SetAdmin attaches an admin identity to c. Used by tests and tooling that
// bypass token verification.
func SetAdmin(c echo.Context, a Admin) {
	c.Set(adminKey, a)
}

// SetPatient attaches a patient identity to c.
func SetPatient(c echo.Context, p Patient) {
	c.Set(patientKey, p)
}
