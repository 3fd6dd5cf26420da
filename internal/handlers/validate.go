package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const phoneChars = "+0123456789 -()"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !strings.ContainsRune(phoneChars, r) {
				return false
			}
		}
		return true
	})
	return v
}

// validateRequest returns a client-facing message for the first rule req
// breaks, or "" when it is valid.
func validateRequest(req any) string {
	err := validate.Struct(req)
	if err == nil {
		return ""
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "invalid request"
	}
	return validationMessage(errs[0])
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch {
	case fe.Tag() == "required":
		return field + " is required"
	case fe.Tag() == "min" && fe.Param() == "1":
		return field + " cannot be empty"
	case fe.Tag() == "max":
		return fmt.Sprintf("%s is too long (max %s)", field, fe.Param())
	case fe.Tag() == "email":
		return field + " must be a valid email address"
	case fe.Tag() == "phone":
		return field + " contains invalid characters"
	case strings.Contains(fe.Tag(), "http_url"):
		return field + " must be an http(s) URL"
	}
	return field + " is invalid"
}
