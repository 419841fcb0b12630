package app

import (
	"errors"
	"strings"
)

var (
	ErrMissingRequiredField = errors.New("name, area code, phone number and email are required")
	ErrDuplicateEmail       = errors.New("email is already used by another contact")
	ErrDuplicatePhone       = errors.New("phone is already used by another contact")
	ErrValidationFailed     = errors.New("contact validation failed")
)

// ValidationError lists every violated rule of a rejected contact.
// It unwraps to ErrMissingRequiredField or ErrValidationFailed.
type ValidationError struct {
	Messages []string
	kind     error
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return e.kind.Error()
	}
	return strings.Join(e.Messages, "\n")
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}
