package dto

// OtpRequest payload for POST /api/otp/request and /api/otp/resend.
type OtpRequest struct {
	Identifier string `json:"identifier" validate:"notblank"`
	UserType   string `json:"userType"`
	Purpose    string `json:"purpose" validate:"notblank"`
}

// Validate checks required fields.
func (r OtpRequest) Validate() error {
	return checkStruct(r).err()
}

// OtpVerifyRequest payload.
type OtpVerifyRequest struct {
	Identifier string `json:"identifier" validate:"notblank"`
	Otp        string `json:"otp" validate:"notblank"`
	Purpose    string `json:"purpose" validate:"notblank"`
}

// Validate checks required fields.
func (r OtpVerifyRequest) Validate() error {
	return checkStruct(r).err()
}

// OtpLoginRequest payload.
type OtpLoginRequest struct {
	Identifier string `json:"identifier" validate:"notblank"`
	Otp        string `json:"otp" validate:"notblank"`
}

// Validate checks required fields.
func (r OtpLoginRequest) Validate() error {
	return checkStruct(r).err()
}
