package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorNoRows(t *testing.T) {
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)
}

func TestMapErrorUniqueViolation(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "uq_staff_staff_id"})

	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, "staffId", conflict.Field)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "staffId already registered", err.Error())
}

func TestMapErrorInvalidUUID(t *testing.T) {
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: pgInvalidTextSyntax}), ErrNotFound)
}

func TestMapErrorPassThrough(t *testing.T) {
	boom := errors.New("boom")
	assert.Same(t, boom, mapError(boom))
	assert.NoError(t, mapError(nil))
}

func TestFieldFromConstraint(t *testing.T) {
	cases := map[string]string{
		"uq_users_email":  "email",
		"uq_users_phone":  "phone",
		"uq_admins_email": "email",
		"uq_staff_email":  "email",
	}
	for constraint, want := range cases {
		assert.Equal(t, want, fieldFromConstraint(constraint), constraint)
	}
}
