package service

import (
	"errors"
	"fmt"
)

// ValidationError marks a request that failed a business precondition. The
// handler layer maps it to a 400 and the named field reaches the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrStateConflict marks a transition attempted from a state that does not
// permit it (approve/reject on a non-pending submission). No mutation occurs.
var ErrStateConflict = errors.New("state conflict")

// IntegrationError wraps a failure inside the approve side-effects bundle.
// The transaction rolls back and the submission stays pending and actionable.
type IntegrationError struct {
	Step string
	Err  error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failed at %s: %v", e.Step, e.Err)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

func IsIntegrationError(err error) bool {
	var ie *IntegrationError
	return errors.As(err, &ie)
}
