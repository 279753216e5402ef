package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/civicdesk/issue-reporter/pkg/util"
)

const (
	pgUniqueViolation     = "23505"
	pgInvalidTextSyntax   = "22P02"
	constraintFieldPrefix = "uq_"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique identifier is already taken.
	ErrConflict = errors.New("record already exists")
)

// ConflictError names the field whose uniqueness was violated.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return e.Field + " already registered"
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// mapError turns driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConflictError{Field: fieldFromConstraint(pgErr.ConstraintName)}
		case pgInvalidTextSyntax:
			return ErrNotFound
		}
	}
	return err
}

// fieldFromConstraint maps "uq_users_email" to "email" and "uq_staff_staff_id" to "staffId".
func fieldFromConstraint(name string) string {
	name = strings.TrimPrefix(name, constraintFieldPrefix)
	for _, table := range []string{"users_", "staff_", "admins_"} {
		if strings.HasPrefix(name, table) {
			name = strings.TrimPrefix(name, table)
			break
		}
	}
	if name == "staff_id" {
		return "staffId"
	}
	return name
}

// lookupKeys derives the candidate values an identifier may match.
func lookupKeys(identifier string) (email, phone string) {
	identifier = strings.TrimSpace(identifier)
	return util.NormalizeEmail(identifier), util.NormalizePhone(identifier)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
