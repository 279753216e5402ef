package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/domain"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

// Gate is an authorization predicate evaluated against an authenticated principal.
type Gate func(p *Principal) error

// AdminOnly admits admin and superadmin.
func AdminOnly(p *Principal) error {
	if p.Role.IsAdmin() {
		return nil
	}
	return apperrors.NewForbidden("Access denied: admins only")
}

// StaffOnly admits staff.
func StaffOnly(p *Principal) error {
	if p.Role == domain.RoleStaff {
		return nil
	}
	return apperrors.NewForbidden("Access denied: staff only")
}

// AdminOrStaff admits the admin family and staff.
func AdminOrStaff(p *Principal) error {
	if p.Role.IsAdmin() || p.Role == domain.RoleStaff {
		return nil
	}
	return apperrors.NewForbidden("Access denied: admin or staff only")
}

// RequirePermission admits admins whose permission map grants flag.
func RequirePermission(flag string) Gate {
	return func(p *Principal) error {
		if !p.Role.IsAdmin() || !p.Permissions().Has(flag) {
			return apperrors.NewForbidden("Access denied: missing permission " + flag)
		}
		return nil
	}
}

// Check evaluates gates in order. A nil principal is unauthenticated, which wins over any gate.
func Check(p *Principal, gates ...Gate) error {
	if p == nil {
		return apperrors.NewUnauthorized("Unauthorized: authentication required")
	}
	for _, gate := range gates {
		if err := gate(p); err != nil {
			return err
		}
	}
	return nil
}

// Require wraps gates as a route handler placed after AuthMiddleware.Handle.
func Require(gates ...Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := Check(principal, gates...); err != nil {
			return err
		}
		return c.Next()
	}
}
