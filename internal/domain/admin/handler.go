package admin

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/limiter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login on api and /me on admin, which must already
// require an admin token.
func (h *Handler) RegisterRoutes(api *echo.Group, admin *echo.Group) {
	api.POST("/admin-auth/login", h.Login)
	admin.GET("/admin-auth/me", auth.WithAdmin(h.Me))
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	res, err := h.svc.Login(c.Request().Context(), req, audit.OriginFrom(c))
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Login successful", res)
}

func (h *Handler) Me(c echo.Context, identity auth.Admin) error {
	a, err := h.svc.Get(c.Request().Context(), identity.ID)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, a)
}

func mapError(err error) error {
	var locked *limiter.LockedError
	switch {
	case errors.As(err, &locked):
		return httpx.TooManyAttempts("Too many failed login attempts. Please try again later.", locked.RetryAfter)
	case errors.Is(err, ErrInvalid):
		return httpx.Validation(strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": "))
	case errors.Is(err, ErrInvalidCredentials):
		return httpx.Unauthorized(httpx.CodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, ErrNotFound):
		return httpx.NotFound("Admin not found")
	default:
		return httpx.Internal(err)
	}
}
