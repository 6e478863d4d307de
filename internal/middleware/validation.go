package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"rcnpulse/internal/config"
	apierrors "rcnpulse/internal/errors"
)

// Validator validates request structs using struct tags. Besides the
// built-in rules it understands rcn_grade and rcn_origin, which accept only
// the configured grade codes and origin ISO codes.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("rcn_grade", func(fl validator.FieldLevel) bool {
		_, ok := config.LookupGrade(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("rcn_origin", func(fl validator.FieldLevel) bool {
		_, ok := config.LookupOrigin(fl.Field().String())
		return ok
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateStruct returns nil or an APIError listing every failed field
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.NewAppValidationError(err.Error())
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatFieldError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

func formatFieldError(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "unique":
		return fmt.Sprintf("%s must not repeat a value", field)
	case "rcn_grade":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(gradeCodes(), ", "))
	case "rcn_origin":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(config.OriginCodes(), ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func gradeCodes() []string {
	codes := make([]string, 0, len(config.Grades))
	for _, g := range config.Grades {
		codes = append(codes, g.Code)
	}
	return codes
}
