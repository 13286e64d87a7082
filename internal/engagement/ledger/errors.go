package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the ledger and its stores.
var (
	// ErrNotFound: the target or comment does not resolve to an existing,
	// published entity.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: the actor does not own the record, or lacks premium
	// entitlement for premium-gated content.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed input with field-level detail.
// Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AsValidation unwraps a ValidationError if err carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
