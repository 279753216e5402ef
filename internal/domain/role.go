package domain

import (
	"errors"
	"strings"
)

// Role is the closed set of roles a principal may carry.
type Role string

const (
	RoleUser       Role = "user"
	RoleStaff      Role = "staff"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ErrUnknownRole is returned by ParseRole for anything outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// PrincipalKind identifies which credential collection owns a principal.
type PrincipalKind int

const (
	KindUser PrincipalKind = iota + 1
	KindStaff
	KindAdmin
)

func (k PrincipalKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindStaff:
		return "staff"
	case KindAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole normalizes raw (case-insensitive, trimmed) into a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSuperAdmin:
		return RoleSuperAdmin, nil
	default:
		return "", ErrUnknownRole
	}
}

// Kind maps the role onto its owning collection. Admin and superadmin share one.
func (r Role) Kind() PrincipalKind {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return KindAdmin
	case RoleStaff:
		return KindStaff
	case RoleUser:
		return KindUser
	default:
		return 0
	}
}

// IsAdmin reports whether the role belongs to the admin family.
func (r Role) IsAdmin() bool {
	return r.Kind() == KindAdmin
}
