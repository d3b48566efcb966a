package shared

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs tag validation and reports the first failing field as
// a ValidationError.
func ValidateStruct(v any) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return Invalid(field, "is required")
	case "oneof":
		return Invalid(field, "must be one of %s", fe.Param())
	case "gt", "gte", "lt", "lte", "min", "max":
		return Invalid(field, "must satisfy %s=%s", fe.Tag(), fe.Param())
	default:
		return Invalid(field, "failed %s validation", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
