package http

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
)

// RequestValidator implements echo.Validator. Failures are returned as a
// ValidationError keyed by JSON field path.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator reporting JSON field names.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	verr := domainErrors.NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe.Namespace()), describe(fe))
	}
	return verr
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
