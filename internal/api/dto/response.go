package dto

import (
	"time"

	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/domain"
)

// UserResponse is the public view of a citizen. It has no password field.
type UserResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone,omitempty"`
	Address   domain.Address `json:"address"`
	Role      domain.Role    `json:"role"`
	CreatedAt time.Time      `json:"createdAt"`
}

// StaffResponse is the public view of a field worker.
type StaffResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone,omitempty"`
	StaffID   string      `json:"staffId"`
	Role      domain.Role `json:"role"`
	Approved  bool        `json:"approved"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AdminResponse is the public view of an administrator.
type AdminResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone,omitempty"`
	Role        domain.Role        `json:"role"`
	Permissions domain.Permissions `json:"permissions"`
	LastLoginAt *time.Time         `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Address:   u.Address,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// NewStaffResponse maps a domain staff member.
func NewStaffResponse(s *domain.Staff) StaffResponse {
	return StaffResponse{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Phone:     s.Phone,
		StaffID:   s.StaffID,
		Role:      s.Role,
		Approved:  s.Approved,
		CreatedAt: s.CreatedAt,
	}
}

// NewAdminResponse maps a domain admin.
func NewAdminResponse(a *domain.Admin) AdminResponse {
	return AdminResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Phone:       a.Phone,
		Role:        a.Role,
		Permissions: a.Permissions,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

// PrincipalBody returns the response key and body for whichever record the principal holds.
func PrincipalBody(p *auth.Principal) (string, any) {
	switch {
	case p.Admin != nil:
		return "admin", NewAdminResponse(p.Admin)
	case p.Staff != nil:
		return "staff", NewStaffResponse(p.Staff)
	case p.User != nil:
		return "user", NewUserResponse(p.User)
	default:
		return "principal", map[string]any{"id": p.ID, "role": p.Role}
	}
}
