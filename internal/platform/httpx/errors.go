// Package httpx holds the JSON envelope and the error taxonomy shared by all
// HTTP handlers.
package httpx

import (
	"fmt"
	"net/http"
	"time"
)

// Machine-readable error codes.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidOTP            = "INVALID_OTP"
	CodeOTPExpired            = "OTP_EXPIRED"
	CodeNoToken               = "NO_TOKEN"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeInvalidTokenType      = "INVALID_TOKEN_TYPE"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeInsufficientPerms     = "INSUFFICIENT_PERMISSIONS"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodePatientSignupDisabled = "PATIENT_SIGNUP_DISABLED"
	CodeTooManyAttempts       = "TOO_MANY_ATTEMPTS"
	CodeRateLimited           = "RATE_LIMITED"
	CodeMethodNotAllowed      = "METHOD_NOT_ALLOWED"
	CodeTimeout               = "TIMEOUT"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternal              = "INTERNAL_ERROR"
)

// Error is an HTTP-facing error carrying a status and a stable code.
type Error struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with the given status, code and client message.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidation, message)
}

func Unauthorized(code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeInsufficientPerms, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// TooManyAttempts is returned when a lockout or resend interval applies.
func TooManyAttempts(message string, retryAfter time.Duration) *Error {
	e := New(http.StatusTooManyRequests, CodeTooManyAttempts, message)
	e.RetryAfter = retryAfter
	return e
}

// Internal hides err from the client; the error handler logs it.
func Internal(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
		Err:     err,
	}
}

// codeForStatus picks a code for errors raised by echo itself.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeNoToken
	case http.StatusForbidden:
		return CodeInsufficientPerms
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}
