package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/token"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// instance returns the shared validator with the grading specific rules registered
func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report json names instead of Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("examtoken", func(fl validator.FieldLevel) bool {
			return token.Valid(fl.Field().String())
		})
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Struct validates v against its `validate` tags. Failures wrap apperrors.ErrValidationFailed
// and list every offending field.
func Struct(v interface{}) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewCustomError(apperrors.ErrValidationFailed, err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))
	details := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := formatValidationError(fe)
		messages = append(messages, msg)
		details[fe.Field()] = fe.Tag()
	}

	return apperrors.NewCustomError(apperrors.ErrValidationFailed, strings.Join(messages, "; ")).WithDetails(details)
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return e.Field() + " is required"
	case "min", "gte":
		return e.Field() + " must be at least " + e.Param()
	case "max", "lte":
		return e.Field() + " must be at most " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "examtoken":
		return e.Field() + " must be 12 lowercase hex characters"
	case "required_with":
		return e.Field() + " requires " + e.Param()
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
