package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"fiapcontacts/pkg/domain"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

type violation struct {
	message string
	missing bool
}

// violations returns the broken rules of c in field declaration order.
func (a *App) violations(c domain.Contact) []violation {
	err := a.validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []violation{{message: err.Error()}}
	}
	out := make([]violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			out = append(out, violation{message: fmt.Sprintf("%s is required", fe.Field()), missing: true})
		case "email":
			out = append(out, violation{message: fmt.Sprintf("%s must be a valid email address", fe.Field())})
		default:
			out = append(out, violation{message: fmt.Sprintf("%s failed rule %q", fe.Field(), fe.Tag())})
		}
	}
	return out
}

// Validate returns one message per violated rule. An empty result means c is valid.
func (a *App) Validate(c domain.Contact) []string {
	vs := a.violations(c)
	if len(vs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		msgs = append(msgs, v.message)
	}
	return msgs
}

// Valid reports whether c passes every rule.
func (a *App) Valid(c domain.Contact) bool {
	return len(a.violations(c)) == 0
}

func (a *App) validationError(c domain.Contact) *ValidationError {
	vs := a.violations(c)
	if len(vs) == 0 {
		return nil
	}
	missing := make([]string, 0, len(vs))
	all := make([]string, 0, len(vs))
	for _, v := range vs {
		if v.missing {
			missing = append(missing, v.message)
		}
		all = append(all, v.message)
	}
	if len(missing) > 0 {
		return &ValidationError{Messages: missing, kind: ErrMissingRequiredField}
	}
	return &ValidationError{Messages: all, kind: ErrValidationFailed}
}
