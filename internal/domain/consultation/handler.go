package consultation

import (
	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the care history endpoints on patient, which must
// already require a patient token.
func (h *Handler) RegisterRoutes(patient *echo.Group) {
	patient.GET("/consultations", auth.WithPatient(h.Consultations))
	patient.GET("/medical-records", auth.WithPatient(h.MedicalRecords))
}

func (h *Handler) Consultations(c echo.Context, p auth.Patient) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Consultations(c.Request().Context(), p.ID, pg)
	if err != nil {
		return httpx.Internal(err)
	}
	return httpx.OK(c, map[string]any{
		"consultations": items,
		"pagination":    pagination.NewMeta(pg, total),
	})
}

func (h *Handler) MedicalRecords(c echo.Context, p auth.Patient) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.MedicalRecords(c.Request().Context(), p.ID, pg)
	if err != nil {
		return httpx.Internal(err)
	}
	return httpx.OK(c, map[string]any{
		"prescriptions": items,
		"pagination":    pagination.NewMeta(pg, total),
	})
}
