package kafka

import (
	"errors"
	"fmt"

	"service-fulfillment/internal/apperr"
)

// ErrMalformed marks events that can never be handled, however often they
// are redelivered. The consumer commits past them.
var ErrMalformed = errors.New("malformed order event")

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMalformed, e.field, e.err)
}

func (e *fieldError) Unwrap() []error { return []error{ErrMalformed, e.err} }

func malformed(field string, err error) error {
	return &fieldError{field: field, err: err}
}

// retryable reports whether the session should stop without committing so
// the message is delivered again.
func retryable(err error) bool {
	if errors.Is(err, ErrMalformed) {
		return false
	}
	return errors.Is(err, apperr.ErrStoreUnavailable)
}
