package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/api/dto"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/repository"
	"github.com/civicdesk/issue-reporter/internal/service"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

// StaffHandler exposes field worker endpoints.
type StaffHandler struct {
	auth    *service.AuthService
	cookies *auth.CookieJar
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, cookies *auth.CookieJar) *StaffHandler {
	return &StaffHandler{auth: authService, cookies: cookies}
}

// Register handles POST /api/staff/register. The account waits for admin approval.
func (h *StaffHandler) Register(c *fiber.Ctx) error {
	var req dto.StaffRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	staff, err := h.auth.RegisterStaff(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Staff registered; pending approval",
		"staff":   dto.NewStaffResponse(staff),
	})
}

// Login handles POST /api/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	session, err := h.auth.LoginStaff(c.UserContext(), req.ID(), req.Password)
	if err != nil {
		return err
	}
	return respondWithSession(c, h.cookies, http.StatusOK, "Login successful", session)
}

// Profile handles GET /api/staff/profile.
func (h *StaffHandler) Profile(c *fiber.Ctx) error {
	principal, err := principalOrUnauthorized(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"staff":   dto.NewStaffResponse(principal.Staff),
	})
}

// List handles GET /api/staff. Approved staff are listed unless approved=false is given,
// which only admins may ask for.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	principal, err := principalOrUnauthorized(c)
	if err != nil {
		return err
	}
	approved := true
	if raw := c.Query("approved"); raw != "" {
		switch raw {
		case "true":
		case "false":
			if err := auth.Check(principal, auth.AdminOnly); err != nil {
				return err
			}
			approved = false
		default:
			return apperrors.NewValidationError("approved must be true or false", map[string]any{"field": "approved"})
		}
	}
	filter := repository.StaffFilter{
		Approved: &approved,
		Limit:    c.QueryInt("limit", 50),
		Offset:   c.QueryInt("offset", 0),
	}

	staff, err := h.auth.ListStaff(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(staff))
	for i := range staff {
		items = append(items, dto.NewStaffResponse(&staff[i]))
	}
	return c.JSON(fiber.Map{
		"success": true,
		"staff":   items,
		"count":   len(items),
	})
}
