package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/api/dto"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/service"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

// OTPHandler exposes one-time code endpoints.
type OTPHandler struct {
	otp     *service.OTPService
	cookies *auth.CookieJar
}

// NewOTPHandler constructs handler.
func NewOTPHandler(otpService *service.OTPService, cookies *auth.CookieJar) *OTPHandler {
	return &OTPHandler{otp: otpService, cookies: cookies}
}

// Request handles POST /api/otp/request.
func (h *OTPHandler) Request(c *fiber.Ctx) error {
	role, purpose, req, err := parseOtpRequest(c)
	if err != nil {
		return err
	}
	if err := h.otp.RequestOtp(c.UserContext(), req.Identifier, role, purpose); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "OTP sent"})
}

// Resend handles POST /api/otp/resend.
func (h *OTPHandler) Resend(c *fiber.Ctx) error {
	role, purpose, req, err := parseOtpRequest(c)
	if err != nil {
		return err
	}
	if err := h.otp.ResendOtp(c.UserContext(), req.Identifier, role, purpose); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "OTP resent"})
}

// Verify handles POST /api/otp/verify.
func (h *OTPHandler) Verify(c *fiber.Ctx) error {
	var req dto.OtpVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	purpose, err := domain.ParseOTPPurpose(req.Purpose)
	if err != nil {
		return apperrors.NewValidationError("purpose must be signup or login", map[string]any{"field": "purpose"})
	}

	if err := h.otp.VerifyOtp(c.UserContext(), req.Identifier, req.Otp, purpose); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "OTP verified"})
}

// Login handles POST /api/otp/login/:role.
func (h *OTPHandler) Login(c *fiber.Ctx) error {
	role, err := domain.ParseRole(c.Params("role"))
	if err != nil || role == domain.RoleSuperAdmin {
		return apperrors.NewNotFound("Route not found")
	}
	var req dto.OtpLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	session, err := h.otp.LoginWithOtp(c.UserContext(), role, req.Identifier, req.Otp)
	if err != nil {
		return err
	}
	return respondWithSession(c, h.cookies, http.StatusOK, "Login successful", session)
}

// SignupUser handles POST /api/otp/signup/user.
func (h *OTPHandler) SignupUser(c *fiber.Ctx) error {
	var req dto.UserSignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(false); err != nil {
		return err
	}

	session, err := h.otp.SignupUserWithOtp(c.UserContext(), req.ToInput(), req.Identifier, req.Otp)
	if err != nil {
		return err
	}
	return respondWithSession(c, h.cookies, http.StatusCreated, "User registered successfully", session)
}

func parseOtpRequest(c *fiber.Ctx) (domain.Role, domain.OTPPurpose, dto.OtpRequest, error) {
	var req dto.OtpRequest
	if err := parseBody(c, &req); err != nil {
		return "", "", req, err
	}
	if err := req.Validate(); err != nil {
		return "", "", req, err
	}
	purpose, err := domain.ParseOTPPurpose(req.Purpose)
	if err != nil {
		return "", "", req, apperrors.NewValidationError("purpose must be signup or login", map[string]any{"field": "purpose"})
	}
	var role domain.Role
	if strings.TrimSpace(req.UserType) != "" {
		if role, err = domain.ParseRole(req.UserType); err != nil {
			return "", "", req, apperrors.NewValidationError("userType must be user, staff or admin", map[string]any{"field": "userType"})
		}
	}
	return role, purpose, req, nil
}
