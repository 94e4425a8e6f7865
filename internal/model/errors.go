package model

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ValidationError reports invalid caller input. It is surfaced synchronously
// and never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrInvalidReason is returned when a review reason is in neither taxonomy.
var ErrInvalidReason = eris.New("invalid review reason")

// ErrInvalidTransition is returned for disallowed status transitions, e.g.
// any change away from a terminal approved/rejected status.
var ErrInvalidTransition = eris.New("invalid status transition")

// ErrUngeocodable is returned when an address-type resource cannot be
// resolved to coordinates and none were supplied. Physical-location
// resources are never published without coordinates.
var ErrUngeocodable = eris.New("address could not be geocoded")
