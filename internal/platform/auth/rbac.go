package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
)

const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
)

// ValidAdminRole reports whether role is a known admin role.
func ValidAdminRole(role string) bool {
	return role == RoleSuperAdmin || role == RoleAdmin
}

// RequireAdminRole returns middleware that checks the verified admin holds
// one of roles. SUPER_ADMIN always passes. It must run after RequireAdmin.
func RequireAdminRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := AdminFrom(c)
			if !ok {
				return HTTPError(ErrNoToken)
			}
			if a.Role == RoleSuperAdmin {
				return next(c)
			}
			for _, required := range roles {
				if a.Role == required {
					return next(c)
				}
			}
			return httpx.Forbidden(fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
