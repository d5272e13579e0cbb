package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/eguard/eguard-backend/internal/apperr"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "bson"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
}

// ValidEmail reports whether s passes the same email rule applied to stored
// users and checks.
func ValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// ValidateUser checks a user document before it is written.
func ValidateUser(u *User) error {
	return toInvalidRecord(validate.Struct(u), nil)
}

// ValidateEmailCheck checks an email check before it is written. Besides the
// field rules it enforces breached == (breaches > 0).
func ValidateEmailCheck(c *EmailCheck) error {
	var extra []apperr.FieldError
	if c.Breached != (c.Breaches > 0) {
		extra = append(extra, apperr.FieldError{
			Field:   "breached",
			Message: "breached must be true exactly when breaches is greater than 0",
		})
	}
	return toInvalidRecord(validate.Struct(c), extra)
}

func toInvalidRecord(err error, extra []apperr.FieldError) error {
	fields := make([]apperr.FieldError, 0, len(extra))

	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}
	fields = append(fields, extra...)

	if len(fields) == 0 {
		return nil
	}
	return &apperr.InvalidRecordError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
