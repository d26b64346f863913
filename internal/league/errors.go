package league

import "errors"

var (
	// ErrNotFound is returned when a record addressed by id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes an input rejected before any store call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
