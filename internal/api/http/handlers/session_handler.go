package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/api/dto"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/service"
)

// SessionHandler exposes refresh, logout and the current principal.
type SessionHandler struct {
	auth    *service.AuthService
	cookies *auth.CookieJar
}

// NewSessionHandler constructs handler.
func NewSessionHandler(authService *service.AuthService, cookies *auth.CookieJar) *SessionHandler {
	return &SessionHandler{auth: authService, cookies: cookies}
}

// Refresh handles POST /api/auth/refresh. A rejected refresh token is cleared so the
// client falls back to a full login.
func (h *SessionHandler) Refresh(c *fiber.Ctx) error {
	refreshed, err := h.auth.Refresh(c.UserContext(), c.Cookies(h.cookies.RefreshName()))
	if err != nil {
		h.cookies.Clear(c)
		return err
	}
	h.cookies.SetAccess(c, refreshed.AccessToken, refreshed.ExpiresAt)
	return c.JSON(fiber.Map{
		"success":     true,
		"accessToken": refreshed.AccessToken,
	})
}

// Logout handles POST /api/auth/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	err := h.auth.Logout(c.UserContext(), c.Cookies(h.cookies.RefreshName()))
	h.cookies.Clear(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Logged out"})
}

// Me handles GET /api/auth/me.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	principal, err := principalOrUnauthorized(c)
	if err != nil {
		return err
	}
	key, body := dto.PrincipalBody(principal)
	return c.JSON(fiber.Map{
		"success": true,
		"role":    principal.Role,
		key:       body,
	})
}
