package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/api/dto"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/service"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("Invalid request body", nil)
	}
	return nil
}

// respondWithSession sets both session cookies and writes the login shape.
func respondWithSession(c *fiber.Ctx, cookies *auth.CookieJar, status int, message string, session *service.Session) error {
	cookies.SetAccess(c, session.Tokens.AccessToken, session.Tokens.AccessExpiresAt)
	cookies.SetRefresh(c, session.Tokens.RefreshToken, session.Tokens.RefreshExpiresAt)

	key, body := dto.PrincipalBody(session.Principal)
	return c.Status(status).JSON(fiber.Map{
		"success":     true,
		"message":     message,
		"accessToken": session.Tokens.AccessToken,
		key:           body,
	})
}

func principalOrUnauthorized(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("Unauthorized: no token")
	}
	return principal, nil
}
