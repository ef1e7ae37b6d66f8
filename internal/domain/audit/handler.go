package audit

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/middleware"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the audit endpoints on admin, which must already
// require an admin token. Only SUPER_ADMIN may read audit data.
func (h *Handler) RegisterRoutes(admin *echo.Group) {
	g := admin.Group("", auth.RequireAdminRole(auth.RoleSuperAdmin))
	g.GET("/audit-logs", h.Search)
	g.GET("/audit-logs/export", h.Export)
	g.GET("/admin-access-logs", h.SearchAccess)
	g.GET("/audit-stats", h.Stats)
}

type logsPage[T any] struct {
	Logs       []T             `json:"logs"`
	Pagination pagination.Meta `json:"pagination"`
}

func (h *Handler) Search(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	logs, total, err := h.svc.Search(c.Request().Context(), f, p)
	if err != nil {
		return httpx.Internal(err)
	}
	return httpx.OK(c, logsPage[*Log]{Logs: logs, Pagination: pagination.NewMeta(p, total)})
}

// Export streams matching logs as CSV and marks the access as an EXPORT.
func (h *Handler) Export(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	logs, err := h.svc.Export(c.Request().Context(), f)
	if err != nil {
		return httpx.Internal(err)
	}
	c.Set(middleware.AccessTypeKey, AccessExport)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=\"audit_logs_%s.csv\"", time.Now().UTC().Format("20060102_150405")))
	res.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(res)
	if err := cw.Write([]string{"ID", "Timestamp", "ActorType", "ActorRole", "ActorID", "ActorName",
		"Action", "ResourceType", "ResourceID", "Success", "ErrorMessage", "IPAddress", "UserAgent", "Details"}); err != nil {
		return fmt.Errorf("audit export: write header: %w", err)
	}
	for _, l := range logs {
		record := []string{
			l.ID,
			l.CreatedAt.UTC().Format(time.RFC3339),
			l.ActorType,
			l.ActorRole,
			l.ActorID,
			l.ActorName,
			l.Action,
			l.ResourceType,
			l.ResourceID,
			strconv.FormatBool(l.Success),
			l.ErrorMessage,
			l.IPAddress,
			l.UserAgent,
			string(l.Details),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("audit export: write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (h *Handler) SearchAccess(c echo.Context) error {
	from, to, err := parseRange(c)
	if err != nil {
		return err
	}
	f := AccessFilter{
		AdminID:      strings.TrimSpace(c.QueryParam("adminId")),
		AccessType:   strings.ToUpper(strings.TrimSpace(c.QueryParam("accessType"))),
		ResourceType: strings.TrimSpace(c.QueryParam("resourceType")),
		Reason:       strings.TrimSpace(c.QueryParam("reason")),
		From:         from,
		To:           to,
	}
	if f.AccessType != "" && !accessTypes[f.AccessType] {
		return httpx.Validation("accessType must be one of VIEW, CREATE, UPDATE, DELETE, EXPORT, REVEAL")
	}

	p := pagination.FromContext(c)
	logs, total, err := h.svc.SearchAccess(c.Request().Context(), f, p)
	if err != nil {
		return httpx.Internal(err)
	}
	return httpx.OK(c, logsPage[*AccessLog]{Logs: logs, Pagination: pagination.NewMeta(p, total)})
}

func (h *Handler) Stats(c echo.Context) error {
	days := DefaultStatsDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			return httpx.Validation("days must be an integer between 1 and 365")
		}
		days = n
	}
	st, err := h.svc.Stats(c.Request().Context(), days)
	if err != nil {
		return httpx.Internal(err)
	}
	return httpx.OK(c, st)
}

func parseFilter(c echo.Context) (Filter, error) {
	from, to, err := parseRange(c)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{
		ActorType: strings.ToUpper(strings.TrimSpace(c.QueryParam("actorType"))),
		Action:    strings.TrimSpace(c.QueryParam("action")),
		Search:    strings.TrimSpace(c.QueryParam("search")),
		From:      from,
		To:        to,
	}
	if f.ActorType != "" && !actorTypes[f.ActorType] {
		return Filter{}, httpx.Validation("actorType must be one of ADMIN, DOCTOR, PATIENT, SYSTEM")
	}
	return f, nil
}

func parseRange(c echo.Context) (from, to *time.Time, err error) {
	if from, err = parseDate(c.QueryParam("startDate"), false); err != nil {
		return nil, nil, httpx.Validation("startDate must be RFC3339 or YYYY-MM-DD")
	}
	if to, err = parseDate(c.QueryParam("endDate"), true); err != nil {
		return nil, nil, httpx.Validation("endDate must be RFC3339 or YYYY-MM-DD")
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, httpx.Validation("startDate must not be after endDate")
	}
	return from, to, nil
}

// parseDate accepts RFC3339 or a bare YYYY-MM-DD date (UTC). A bare end date
// covers the whole day.
func parseDate(raw string, end bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if end {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}
