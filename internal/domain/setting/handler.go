package setting

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
)

type Handler struct {
	svc *Service
	env EnvSource
}

func NewHandler(svc *Service, env EnvSource) *Handler {
	return &Handler{svc: svc, env: env}
}

// RegisterRoutes mounts the public read on api and the managed endpoints on
// admin, which must already require an admin token.
func (h *Handler) RegisterRoutes(api *echo.Group, admin *echo.Group) {
	api.GET("/settings/public/:key", h.GetPublic)

	read := admin.Group("", auth.RequireAdminRole(auth.RoleAdmin, auth.RoleSuperAdmin))
	read.GET("/settings", auth.WithAdmin(h.List))

	write := admin.Group("", auth.RequireAdminRole(auth.RoleSuperAdmin))
	write.POST("/settings", auth.WithAdmin(h.Create))
	write.PUT("/settings/:key", auth.WithAdmin(h.Update))
	write.DELETE("/settings/:key", auth.WithAdmin(h.Delete))
}

func (h *Handler) GetPublic(c echo.Context) error {
	v, err := h.svc.Public(c.Request().Context(), c.Param("key"), h.env)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, v)
}

// List returns all settings, one setting when ?key= is given, or the
// settings of one ?category=.
func (h *Handler) List(c echo.Context, _ auth.Admin) error {
	ctx := c.Request().Context()
	if key := c.QueryParam("key"); key != "" {
		st, err := h.svc.Get(ctx, key)
		if err != nil {
			return mapError(err)
		}
		return httpx.OK(c, st.View())
	}

	settings, err := h.svc.List(ctx, c.QueryParam("category"))
	if err != nil {
		return mapError(err)
	}
	views := make([]View, 0, len(settings))
	for _, st := range settings {
		views = append(views, st.View())
	}
	return httpx.OK(c, views)
}

func (h *Handler) Create(c echo.Context, admin auth.Admin) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	st, err := h.svc.Create(c.Request().Context(), admin, audit.OriginFrom(c), req)
	if err != nil {
		return mapError(err)
	}
	return httpx.Created(c, "Setting created", st.View())
}

func (h *Handler) Update(c echo.Context, admin auth.Admin) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	st, err := h.svc.Update(c.Request().Context(), admin, audit.OriginFrom(c), c.Param("key"), req)
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Setting updated", st.View())
}

func (h *Handler) Delete(c echo.Context, admin auth.Admin) error {
	if err := h.svc.Delete(c.Request().Context(), admin, audit.OriginFrom(c), c.Param("key")); err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Setting deleted", nil)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return httpx.Validation(strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": "))
	case errors.Is(err, ErrNotFound):
		return httpx.NotFound("Setting not found")
	case errors.Is(err, ErrExists):
		return httpx.Conflict("A setting with this key already exists")
	case errors.Is(err, ErrTypeChanged):
		return httpx.Conflict("Setting was modified concurrently; reload and retry")
	default:
		return httpx.Internal(err)
	}
}
