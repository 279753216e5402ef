package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return apperrors.IsValidPhone(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// fieldErrors maps a json field name to the first rule it failed.
type fieldErrors map[string]any

// checkStruct runs the validate tags on req.
func checkStruct(req any) fieldErrors {
	errs := fieldErrors{}
	var failed validator.ValidationErrors
	if err := validate.Struct(req); errors.As(err, &failed) {
		for _, fe := range failed {
			if _, seen := errs[fe.Field()]; !seen {
				errs[fe.Field()] = fieldMessage(fe)
			}
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "phone":
		return field + " must contain 10 to 13 digits"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}

// required records a rule that depends on more than one field.
func (f fieldErrors) required(field, value string) {
	if _, seen := f[field]; !seen && strings.TrimSpace(value) == "" {
		f[field] = field + " is required"
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError("Validation failed", map[string]any(f))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
