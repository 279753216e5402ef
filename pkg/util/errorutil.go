package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried in the response envelope.
const (
	CodeValidation      = "VALIDATION_FAILED"
	CodeConflict        = "CONFLICT"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeInvalidOtp      = "INVALID_OTP"
	CodeInvalidLogin    = "INVALID_CREDENTIALS"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewConflict reports a duplicate identifier. The public contract answers 400, not 409.
func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusBadRequest, details)
}

func NewNotFound(message string) error {
	return NewDomainError(CodeNotFound, message, http.StatusNotFound, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInvalidOtp(message string) error {
	return NewDomainError(CodeInvalidOtp, message, http.StatusBadRequest, nil)
}

func NewTooManyRequests(message string) error {
	return NewDomainError(CodeTooManyRequests, message, http.StatusTooManyRequests, nil)
}

// NewInvalidCredentials reports a wrong password for an existing principal.
func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidLogin, "Invalid Credentials", http.StatusBadRequest, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "Internal Server Error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "Internal Server Error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err maps to a DomainError with the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	}
	if status >= 500 {
		return CodeInternal
	}
	return "HTTP_" + fmt.Sprint(status)
}
