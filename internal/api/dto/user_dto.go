package dto

import (
	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/service"
)

// AddressPayload is the nested address form.
type AddressPayload struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// UserSignupRequest payload for new users. Address may be sent nested or flat.
type UserSignupRequest struct {
	Name     string          `json:"name" validate:"notblank"`
	Email    string          `json:"email" validate:"notblank,email"`
	Password string          `json:"password" validate:"omitempty,min=6,max=72"`
	Phone    string          `json:"phone" validate:"omitempty,phone"`
	Address  *AddressPayload `json:"address"`
	Street   string          `json:"street"`
	City     string          `json:"city"`
	State    string          `json:"state"`
	Pincode  string          `json:"pincode"`

	// OTP signup only.
	Identifier string `json:"identifier"`
	Otp        string `json:"otp"`
}

// Validate checks required fields. OTP signups may omit the password.
func (r UserSignupRequest) Validate(requirePassword bool) error {
	errs := checkStruct(r)
	if requirePassword {
		errs.required("password", r.Password)
	} else {
		errs.required("otp", r.Otp)
	}
	return errs.err()
}

// ToInput converts the request into service input.
func (r UserSignupRequest) ToInput() service.UserSignupInput {
	addr := domain.Address{Street: r.Street, City: r.City, State: r.State, Pincode: r.Pincode}
	if r.Address != nil {
		addr = domain.Address{
			Street:  firstNonEmpty(r.Address.Street, r.Street),
			City:    firstNonEmpty(r.Address.City, r.City),
			State:   firstNonEmpty(r.Address.State, r.State),
			Pincode: firstNonEmpty(r.Address.Pincode, r.Pincode),
		}
	}
	return service.UserSignupInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
		Address:  addr,
	}
}

// LoginRequest payload shared by the password login endpoints. Older clients send the
// identifier under a role-specific key.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	StaffID    string `json:"staffId"`
	AdminID    string `json:"adminId"`
	Password   string `json:"password" validate:"notblank"`
}

// ID returns the first identifier supplied.
func (r LoginRequest) ID() string {
	return firstNonEmpty(r.Identifier, r.Email, r.Phone, r.StaffID, r.AdminID)
}

// Validate checks required fields.
func (r LoginRequest) Validate() error {
	errs := checkStruct(r)
	errs.required("identifier", r.ID())
	return errs.err()
}
