package pokemon

import (
	"errors"
	"fmt"
)

// ErrMalformedResource is returned when an id cannot be recovered from a resource URL.
var ErrMalformedResource = errors.New("malformed resource")

// MalformedResourceError carries the offending URL.
type MalformedResourceError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *MalformedResourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed resource url %q: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("malformed resource url %q", e.URL)
}

// Is reports ErrMalformedResource so callers can match with errors.Is.
func (e *MalformedResourceError) Is(target error) bool {
	return target == ErrMalformedResource
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MalformedResourceError) Unwrap() error {
	return e.Err
}
