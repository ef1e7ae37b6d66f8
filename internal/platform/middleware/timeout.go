package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
)

// RequestTimeout returns middleware that sets a context deadline on each
// incoming request. Handlers pass the request context down to pgx and the
// S3 presigner, so a query still running at the deadline is cancelled and
// comes back as an error wrapping context.DeadlineExceeded. That error is
// reported to the client as 504 with the TIMEOUT code.
//
// Errors that merely wrap DeadlineExceeded from some inner, shorter context
// pass through unchanged; only the request's own deadline produces a 504.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			// The handler runs on this goroutine; it returns once its
			// database calls observe the cancelled context.
			err := next(c)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
				return httpx.New(http.StatusGatewayTimeout, httpx.CodeTimeout, "Request processing exceeded the allowed time limit")
			}
			return err
		}
	}
}
