// Package validators checks the request-shaped inputs the transfer
// coordinator receives from external workflows.
package validators

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	// decimal.Decimal is an opaque struct to the validator; dpositive lets
	// line quantities declare strict positivity in tags.
	_ = v.RegisterValidation("dpositive", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.IsPositive()
	})
	return v
}

// ValidateStruct runs tag validation on dest and converts failures into the
// typed validation error with per-field details.
func ValidateStruct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s items", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s items", fe.Param())
	case "dpositive":
		return "must be a positive quantity"
	case "unique":
		return fmt.Sprintf("must not repeat %s", fe.Param())
	}
	return "is invalid"
}
