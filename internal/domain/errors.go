package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrInvalidArgument marks input rejected before any random draw or file
// write takes place.
var ErrInvalidArgument = errors.New("invalid argument")

// CountError reports a sample count that is negative, too large or not
// integral.
type CountError struct {
	Dataset string
	Value   any
	Reason  string
}

func (e *CountError) Error() string {
	return fmt.Sprintf("%s: invalid sample count %v: %s", e.Dataset, e.Value, e.Reason)
}

func (e *CountError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func NewCountError(dataset string, value any, reason string) error {
	return errors.WithStack(&CountError{Dataset: dataset, Value: value, Reason: reason})
}

// CheckCountRange rejects counts outside [0, MaxCount].
func CheckCountRange(dataset string, n int64) error {
	if n < 0 {
		return NewCountError(dataset, n, "must be >= 0")
	}
	if n > MaxCount {
		return NewCountError(dataset, n, fmt.Sprintf("must be <= %d", MaxCount))
	}
	return nil
}

// InvalidArgumentf wraps ErrInvalidArgument with a formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
