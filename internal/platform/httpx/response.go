package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Envelope is the JSON body every endpoint returns.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a 200 success envelope.
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 success envelope.
func Created(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Message writes a 200 success envelope with a human-readable message.
func Message(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// ErrorHandler renders every handler error as {success:false, message, code}.
// Server-side failures are logged; their details never reach the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := toError(err)

		reqID, _ := c.Get("request_id").(string)
		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", reqID).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if apiErr.RetryAfter > 0 {
			secs := int(apiErr.RetryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(apiErr.Status)
			return
		}
		if werr := c.JSON(apiErr.Status, Envelope{Success: false, Message: apiErr.Message, Code: apiErr.Code}); werr != nil {
			logger.Error().Err(werr).Str("request_id", reqID).Msg("write error response")
		}
	}
}

func toError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil && he.Code < http.StatusInternalServerError {
			msg = fmt.Sprint(he.Message)
		}
		if he.Code >= http.StatusInternalServerError {
			msg = "An unexpected error occurred"
		}
		return &Error{Status: he.Code, Code: codeForStatus(he.Code), Message: msg, Err: he.Internal}
	}
	return Internal(err)
}
