package domain

import "time"

// Address is the postal address attached to a citizen account.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

// User is a citizen who reports issues.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Address      Address
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Staff is a field worker. New registrations wait for admin approval.
type Staff struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	StaffID      string
	PasswordHash string
	Role         Role
	Approved     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Admin is an administrator; Role is either RoleAdmin or RoleSuperAdmin.
type Admin struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Permissions  Permissions
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Permission flags understood by the role gate.
const (
	PermAssign                = "canAssign"
	PermResolve               = "canResolve"
	PermDelete                = "canDelete"
	PermManageStaff           = "canManageStaff"
	PermManageDepartments     = "canManageDepartments"
	PermSendBulkNotifications = "canSendBulkNotifications"
	PermViewReports           = "canViewReports"
	PermManageAdmins          = "canManageAdmins"
)

// Permissions maps a permission flag to whether it is granted.
type Permissions map[string]bool

// DefaultPermissions returns the grant set for a freshly created admin.
func DefaultPermissions() Permissions {
	return Permissions{
		PermAssign:                true,
		PermResolve:               true,
		PermDelete:                true,
		PermManageStaff:           true,
		PermManageDepartments:     true,
		PermSendBulkNotifications: true,
		PermViewReports:           true,
		PermManageAdmins:          false,
	}
}

// Has reports whether flag is explicitly granted.
func (p Permissions) Has(flag string) bool {
	return p[flag]
}
