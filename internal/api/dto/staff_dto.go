package dto

import "github.com/civicdesk/issue-reporter/internal/service"

// StaffRegisterRequest payload.
type StaffRegisterRequest struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank,min=6,max=72"`
	StaffID  string `json:"staffId" validate:"notblank"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
}

// Validate checks required fields.
func (r StaffRegisterRequest) Validate() error {
	return checkStruct(r).err()
}

// ToInput converts the request into service input.
func (r StaffRegisterRequest) ToInput() service.StaffRegisterInput {
	return service.StaffRegisterInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
		StaffID:  r.StaffID,
	}
}

// AdminCreateRequest payload.
type AdminCreateRequest struct {
	Name        string          `json:"name" validate:"notblank"`
	Email       string          `json:"email" validate:"notblank,email"`
	Password    string          `json:"password" validate:"notblank,min=6,max=72"`
	Phone       string          `json:"phone" validate:"omitempty,phone"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

// Validate checks required fields.
func (r AdminCreateRequest) Validate() error {
	return checkStruct(r).err()
}
