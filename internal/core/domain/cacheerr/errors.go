// Package cacheerr defines the error taxonomy shared by every cache component.
// A missing key or member is never an error; it is reported as absence.
package cacheerr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("cache: invalid argument")
	ErrConnection      = errors.New("cache: remote store unreachable")
	ErrTimeout         = errors.New("cache: operation timed out")
	ErrUnsupported     = errors.New("cache: operation not supported by backend")
	ErrAppendFailed    = errors.New("cache: stream append failed")
)

// InvalidArgument returns an error wrapping ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// DecodeError reports stored bytes that cannot be reconstructed into the requested type.
type DecodeError struct {
	Target string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cache: decode into %s: %v", e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecode reports whether err is or wraps a *DecodeError.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
