package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator and reports failures as FieldErrors
// keyed by JSON field path.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a validator that names fields after their json tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s. The returned error is FieldErrors or nil.
func (v *Validator) Struct(s any) error {
	fields := FieldErrors{}
	v.Collect(s, fields)
	return fields.Err()
}

// Collect validates s and adds any failures to fields.
func (v *Validator) Collect(s any, fields FieldErrors) {
	err := v.v.Struct(s)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields.Add("_", err.Error())
		return
	}
	for _, fe := range verrs {
		fields.Add(fieldPath(fe), message(fe))
	}
}

// fieldPath strips the root struct name: "SubmitRequest.items[0].rate" -> "items[0].rate".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
