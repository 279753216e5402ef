package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/api/dto"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/service"
)

// UsersHandler exposes auth endpoints for citizens.
type UsersHandler struct {
	auth    *service.AuthService
	cookies *auth.CookieJar
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cookies *auth.CookieJar) *UsersHandler {
	return &UsersHandler{auth: authService, cookies: cookies}
}

// Signup handles POST /api/users/signup.
func (h *UsersHandler) Signup(c *fiber.Ctx) error {
	var req dto.UserSignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(true); err != nil {
		return err
	}

	session, err := h.auth.SignupUser(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return respondWithSession(c, h.cookies, http.StatusCreated, "User registered successfully", session)
}

// Login handles POST /api/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	session, err := h.auth.LoginUser(c.UserContext(), req.ID(), req.Password)
	if err != nil {
		return err
	}
	return respondWithSession(c, h.cookies, http.StatusOK, "Login successful", session)
}
