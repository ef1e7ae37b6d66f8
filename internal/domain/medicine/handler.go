package medicine

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/blobstore"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public catalog on api and moderation on admin,
// which must already require an admin token.
func (h *Handler) RegisterRoutes(api *echo.Group, admin *echo.Group) {
	api.GET("/catalog/medicines", h.Catalog)

	g := admin.Group("/admin/medicines", auth.RequireAdminRole(auth.RoleAdmin, auth.RoleSuperAdmin))
	g.GET("", auth.WithAdmin(h.List))
	g.POST("", auth.WithAdmin(h.Create))
	g.GET("/:id", auth.WithAdmin(h.Get))
	g.PUT("/:id", auth.WithAdmin(h.Update))
	g.DELETE("/:id", auth.WithAdmin(h.Delete))
	g.POST("/:id/approve", auth.WithAdmin(h.Approve))
	g.POST("/:id/reject", auth.WithAdmin(h.Reject))
	g.POST("/:id/image-upload-url", auth.WithAdmin(h.ImageUploadURL))
}

type medicinesPage struct {
	Medicines  []*Medicine     `json:"medicines"`
	Pagination pagination.Meta `json:"pagination"`
}

func (h *Handler) Catalog(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Catalog(c.Request().Context(), c.QueryParam("search"), c.QueryParam("category"), pg)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, medicinesPage{Medicines: items, Pagination: pagination.NewMeta(pg, total)})
}

func (h *Handler) List(c echo.Context, _ auth.Admin) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Status:   Status(c.QueryParam("status")),
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, medicinesPage{Medicines: items, Pagination: pagination.NewMeta(pg, total)})
}

func (h *Handler) Get(c echo.Context, _ auth.Admin) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, m)
}

func (h *Handler) Create(c echo.Context, admin auth.Admin) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	m, err := h.svc.Create(c.Request().Context(), admin, audit.OriginFrom(c), req)
	if err != nil {
		return mapError(err)
	}
	return httpx.Created(c, "Medicine created", m)
}

func (h *Handler) Update(c echo.Context, admin auth.Admin) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	m, err := h.svc.Update(c.Request().Context(), admin, audit.OriginFrom(c), id, req)
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Medicine updated", m)
}

func (h *Handler) Delete(c echo.Context, admin auth.Admin) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), admin, audit.OriginFrom(c), id); err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Medicine deleted", nil)
}

func (h *Handler) Approve(c echo.Context, admin auth.Admin) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.Approve(c.Request().Context(), admin, audit.OriginFrom(c), id)
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Medicine approved", m)
}

func (h *Handler) Reject(c echo.Context, admin auth.Admin) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	m, err := h.svc.Reject(c.Request().Context(), admin, audit.OriginFrom(c), id, req.Reason)
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Medicine rejected", m)
}

func (h *Handler) ImageUploadURL(c echo.Context, _ auth.Admin) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req ImageUploadRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	up, err := h.svc.ImageUpload(c.Request().Context(), id, req.ContentType)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, up)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, httpx.Validation("invalid medicine id")
	}
	return id, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return httpx.Validation(strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": "))
	case errors.Is(err, ErrNotFound):
		return httpx.NotFound("Medicine not found")
	case errors.Is(err, ErrExists):
		return httpx.Conflict("A medicine with this name and strength already exists")
	case errors.Is(err, ErrWrongState):
		return httpx.Conflict("Medicine status does not allow this action")
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return httpx.Validation("contentType must be image/png, image/jpeg or image/webp")
	case errors.Is(err, blobstore.ErrDisabled):
		return httpx.New(http.StatusServiceUnavailable, httpx.CodeServiceUnavailable, "Image uploads are not configured")
	default:
		return httpx.Internal(err)
	}
}
