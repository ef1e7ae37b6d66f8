package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
)

// AccessReasonHeader lets an admin state why they are viewing data.
const AccessReasonHeader = "X-Access-Reason"

// AccessTypeKey lets a handler override the recorded access type, e.g. EXPORT.
const AccessTypeKey = "access_type"

// AccessEntry describes one admin access to platform data.
type AccessEntry struct {
	AdminID      string
	AdminEmail   string
	AccessType   string
	ResourceType string
	ResourceID   string
	Reason       string
	IPAddress    string
	UserAgent    string
	RequestID    string
	Timestamp    time.Time
}

// AccessRecorder persists admin access entries.
type AccessRecorder interface {
	RecordAccess(ctx context.Context, entry AccessEntry) error
}

// AdminAccess records every successful request made by a verified admin.
// It must run after auth.RequireAdmin. Recording failures are logged and
// never change the response.
func AdminAccess(logger zerolog.Logger, recorder AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			admin, ok := auth.AdminFrom(c)
			if !ok || err != nil || c.Response().Status >= http.StatusBadRequest {
				return err
			}

			req := c.Request()
			entry := AccessEntry{
				AdminID:      admin.ID.String(),
				AdminEmail:   admin.Email,
				AccessType:   methodToAccessType(req.Method),
				ResourceType: extractResourceType(req.URL.Path),
				ResourceID:   resourceID(c),
				Reason:       strings.TrimSpace(req.Header.Get(AccessReasonHeader)),
				IPAddress:    c.RealIP(),
				UserAgent:    req.UserAgent(),
				Timestamp:    time.Now().UTC(),
			}
			if override, ok := c.Get(AccessTypeKey).(string); ok && override != "" {
				entry.AccessType = override
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if recErr := recorder.RecordAccess(context.WithoutCancel(req.Context()), entry); recErr != nil {
				logger.Error().Err(recErr).
					Str("request_id", entry.RequestID).
					Str("admin_id", entry.AdminID).
					Msg("failed to record admin access")
			}
			return err
		}
	}
}

// methodToAccessType maps HTTP methods to admin access types.
func methodToAccessType(method string) string {
	switch method {
	case http.MethodPost:
		return "CREATE"
	case http.MethodPut, http.MethodPatch:
		return "UPDATE"
	case http.MethodDelete:
		return "DELETE"
	default:
		return "VIEW"
	}
}

// extractResourceType returns the first meaningful path segment under
// /api/v1, skipping the "admin" namespace:
//
//	/api/v1/audit-logs           -> audit-logs
//	/api/v1/admin/medicines/123  -> medicines
func extractResourceType(path string) string {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1"), "/"), "/")
	for _, s := range segments {
		if s != "" && s != "admin" {
			return s
		}
	}
	return "unknown"
}

func resourceID(c echo.Context) string {
	for _, name := range []string{"id", "key"} {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	return ""
}
