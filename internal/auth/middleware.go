package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/repository"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Exactly one of User, Staff or Admin is set.
type Principal struct {
	ID    string
	Role  domain.Role
	User  *domain.User
	Staff *domain.Staff
	Admin *domain.Admin
}

// Kind reports which collection the principal was resolved from.
func (p *Principal) Kind() domain.PrincipalKind {
	return p.Role.Kind()
}

// Permissions returns the admin grant set, or nil for non-admins.
func (p *Principal) Permissions() domain.Permissions {
	if p.Admin == nil {
		return nil
	}
	return p.Admin.Permissions
}

// AuthMiddleware validates access tokens and loads principals.
type AuthMiddleware struct {
	tokens  *TokenService
	cookies *CookieJar
	users   repository.UserRepository
	staff   repository.StaffRepository
	admins  repository.AdminRepository
	logger  *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(
	tokens *TokenService,
	cookies *CookieJar,
	users repository.UserRepository,
	staff repository.StaffRepository,
	admins repository.AdminRepository,
	logger *zap.Logger,
) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, cookies: cookies, users: users, staff: staff, admins: admins, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := m.extractToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.VerifyAccessToken(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, ErrTokenExpired) {
			reason = "expired"
		}
		m.logger.Debug("access token rejected", zap.String("reason", reason), zap.String("path", c.Path()))
		return apperrors.NewUnauthorized("Unauthorized: invalid or expired token")
	}

	principal, err := m.resolve(c, claims)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) extractToken(c *fiber.Ctx) (string, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", apperrors.NewUnauthorized("Unauthorized: invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if m.cookies != nil {
		if token := c.Cookies(m.cookies.AccessName()); token != "" {
			return token, nil
		}
	}
	return "", apperrors.NewUnauthorized("Unauthorized: no token provided")
}

// resolve looks the principal up in the single collection its role maps to.
func (m *AuthMiddleware) resolve(c *fiber.Ctx, claims *Claims) (*Principal, error) {
	ctx := c.UserContext()
	principal := &Principal{ID: claims.ID, Role: claims.Role}

	var err error
	switch claims.Role.Kind() {
	case domain.KindAdmin:
		principal.Admin, err = m.admins.GetByID(ctx, claims.ID)
		if err == nil && !principal.Admin.Active {
			return nil, apperrors.NewUnauthorized("Unauthorized: account disabled")
		}
	case domain.KindStaff:
		principal.Staff, err = m.staff.GetByID(ctx, claims.ID)
	case domain.KindUser:
		principal.User, err = m.users.GetByID(ctx, claims.ID)
	default:
		return nil, apperrors.NewUnauthorized("Unauthorized: invalid or expired token")
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.logger.Debug("token principal no longer exists",
				zap.String("id", claims.ID), zap.String("role", string(claims.Role)))
			return nil, apperrors.NewUnauthorized("Unauthorized: account not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return principal, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil
}
