package doctor

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors", h.List)
	api.GET("/doctors/specializations", h.Specializations)
	api.GET("/doctors/:id", h.Get)
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		Search:         c.QueryParam("search"),
		Specialization: c.QueryParam("specialization"),
		Language:       c.QueryParam("language"),
		Sort:           c.QueryParam("sort"),
	}
	if raw := c.QueryParam("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return httpx.Validation("available must be true or false")
		}
		f.Available = &v
	}

	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.List(c.Request().Context(), f, pg)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, map[string]any{
		"doctors":    doctors,
		"pagination": pagination.NewMeta(pg, total),
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httpx.Validation("invalid doctor id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, d)
}

func (h *Handler) Specializations(c echo.Context) error {
	specs, err := h.svc.Specializations(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, specs)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return httpx.Validation(strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": "))
	case errors.Is(err, ErrNotFound):
		return httpx.NotFound("Doctor not found")
	default:
		return httpx.Internal(err)
	}
}
