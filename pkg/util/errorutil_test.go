package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"domain error passes through", NewForbidden("nope"), http.StatusForbidden, CodeForbidden},
		{"wrapped domain error", fmt.Errorf("ctx: %w", NewNotFound("User not found")), http.StatusNotFound, CodeNotFound},
		{"conflict is a bad request", NewConflict("Email already registered", nil), http.StatusBadRequest, CodeConflict},
		{"fiber error", fiber.NewError(http.StatusNotFound, "Cannot GET /x"), http.StatusNotFound, CodeNotFound},
		{"fiber payload error", fiber.ErrUnprocessableEntity, http.StatusUnprocessableEntity, CodeValidation},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestInternalErrorHidesCause(t *testing.T) {
	err := ToDomainError(errors.New("pq: connection refused"))
	assert.Equal(t, "Internal Server Error", err.Message)
	assert.ErrorContains(t, err, "connection refused")
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(fmt.Errorf("wrap: %w", NewInvalidOtp("bad")), CodeInvalidOtp))
	assert.False(t, IsCode(errors.New("plain"), CodeInvalidOtp))
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	assert.Equal(t, "+919999999999", NormalizePhone("+91 99999-99999"))
	assert.Equal(t, "a@x.com", NormalizeIdentifier(" A@x.COM"))
	assert.Equal(t, "STF-01", NormalizeIdentifier(" STF-01 "))
	assert.True(t, IsValidEmail("a@x.com"))
	assert.False(t, IsValidEmail("a@x"))
	assert.True(t, IsValidPhone("9999999999"))
	assert.False(t, IsValidPhone("12345"))
}
