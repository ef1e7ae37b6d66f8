package patient

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/limiter"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient auth endpoints. pa is the unauthenticated
// /patient-auth group and protected the same prefix behind a patient token.
// signupGate guards the routes that start or complete account creation.
func (h *Handler) RegisterRoutes(pa *echo.Group, protected *echo.Group, signupGate echo.MiddlewareFunc) {
	pa.POST("/send-otp", h.SendOTP, signupGate)
	pa.POST("/signup", h.Signup, signupGate)
	pa.POST("/verify-otp", h.VerifyOTP)
	pa.POST("/login", h.Login)
	pa.POST("/refresh", h.Refresh)

	protected.GET("/profile", auth.WithPatient(h.Profile))
	protected.PUT("/profile", auth.WithPatient(h.UpdateProfile))
	protected.POST("/change-pin", auth.WithPatient(h.ChangePIN))
}

func (h *Handler) SendOTP(c echo.Context) error {
	var req SendOTPRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	res, err := h.svc.SendOTP(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "OTP sent successfully", res)
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	res, err := h.svc.VerifyOTP(c.Request().Context(), req, audit.OriginFrom(c))
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "OTP verified successfully", res)
}

func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	res, err := h.svc.Signup(c.Request().Context(), req, audit.OriginFrom(c))
	if err != nil {
		return mapError(err)
	}
	return httpx.Created(c, "Account created successfully", res)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	res, err := h.svc.Login(c.Request().Context(), req, audit.OriginFrom(c))
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Login successful", res)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	res, err := h.svc.Refresh(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Token refreshed", res)
}

func (h *Handler) Profile(c echo.Context, p auth.Patient) error {
	res, err := h.svc.Profile(c.Request().Context(), p.ID)
	if err != nil {
		return mapError(err)
	}
	return httpx.OK(c, res)
}

func (h *Handler) UpdateProfile(c echo.Context, p auth.Patient) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	res, err := h.svc.UpdateProfile(c.Request().Context(), p.ID, req, audit.OriginFrom(c))
	if err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "Profile updated", res)
}

func (h *Handler) ChangePIN(c echo.Context, p auth.Patient) error {
	var req ChangePINRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	if err := h.svc.ChangePIN(c.Request().Context(), p.ID, req, audit.OriginFrom(c)); err != nil {
		return mapError(err)
	}
	return httpx.Message(c, "PIN changed successfully", nil)
}

func mapError(err error) error {
	var (
		locked *limiter.LockedError
		resend *ResendError
	)
	switch {
	case errors.As(err, &locked):
		return httpx.TooManyAttempts("Too many failed login attempts. Please try again later.", locked.RetryAfter)
	case errors.As(err, &resend):
		return httpx.TooManyAttempts("Please wait before requesting another OTP", resend.RetryAfter)
	case errors.Is(err, ErrInvalid):
		return httpx.Validation(strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": "))
	case errors.Is(err, ErrInvalidOTP):
		return httpx.New(http.StatusBadRequest, httpx.CodeInvalidOTP, "Invalid OTP")
	case errors.Is(err, ErrOTPExpired):
		return httpx.New(http.StatusBadRequest, httpx.CodeOTPExpired, "OTP has expired. Please request a new one.")
	case errors.Is(err, ErrOTPAttempts):
		return httpx.TooManyAttempts("Too many incorrect attempts. Please request a new OTP.", 0)
	case errors.Is(err, ErrNotVerified):
		return httpx.Validation("Phone number not verified. Please verify the OTP first.")
	case errors.Is(err, ErrInvalidCredentials):
		return httpx.Unauthorized(httpx.CodeInvalidCredentials, "Invalid phone number or PIN")
	case errors.Is(err, ErrExists):
		return httpx.Conflict("Phone number already registered")
	case errors.Is(err, ErrNotFound):
		return httpx.NotFound("Patient not found")
	case errors.Is(err, auth.ErrNoToken), errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
		return auth.HTTPError(err)
	default:
		return httpx.Internal(err)
	}
}
