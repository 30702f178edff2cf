package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCapacityExhausted  = errors.New("no slots remaining for this month")
	ErrVerificationFailed = errors.New("verification failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidState       = errors.New("record is not in the required status")
	ErrNotFound           = errors.New("not found")
)

// ValidationError carries the offending field so clients can correct input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
