package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/api/dto"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/service"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

// AdminHandler exposes administrator endpoints.
type AdminHandler struct {
	auth    *service.AuthService
	cookies *auth.CookieJar
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, cookies *auth.CookieJar) *AdminHandler {
	return &AdminHandler{auth: authService, cookies: cookies}
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	session, err := h.auth.LoginAdmin(c.UserContext(), req.ID(), req.Password)
	if err != nil {
		return err
	}
	return respondWithSession(c, h.cookies, http.StatusOK, "Login successful", session)
}

// Profile handles GET /api/admin/profile.
func (h *AdminHandler) Profile(c *fiber.Ctx) error {
	principal, err := principalOrUnauthorized(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"admin":   dto.NewAdminResponse(principal.Admin),
	})
}

// ApproveStaff handles PATCH /api/admin/staff/:id/approve.
func (h *AdminHandler) ApproveStaff(c *fiber.Ctx) error {
	principal, err := principalOrUnauthorized(c)
	if err != nil {
		return err
	}
	staff, err := h.auth.ApproveStaff(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Staff approved",
		"staff":   dto.NewStaffResponse(staff),
	})
}

// CreateAdmin handles POST /api/admin/admins.
func (h *AdminHandler) CreateAdmin(c *fiber.Ctx) error {
	principal, err := principalOrUnauthorized(c)
	if err != nil {
		return err
	}
	var req dto.AdminCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	role := domain.RoleAdmin
	if req.Role != "" {
		if role, err = domain.ParseRole(req.Role); err != nil || !role.IsAdmin() {
			return apperrors.NewValidationError("role must be admin or superadmin", map[string]any{"field": "role"})
		}
	}

	admin, err := h.auth.CreateAdmin(c.UserContext(), principal, service.AdminCreateInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		Role:        role,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Admin created",
		"admin":   dto.NewAdminResponse(admin),
	})
}
