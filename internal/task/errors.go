package task

import (
	"errors"
	"fmt"
)

// Execution failures are partitioned into two classes. The engine branches
// on the class tag, never on the concrete error type:
//
//   - permanent: a deterministic rejection (bad input detected at execution
//     time, resource not found downstream). Retrying cannot change the
//     outcome, so the task fails immediately.
//   - transient: downstream unavailability, timeout or rate limiting.
//     Eligible for redelivery up to the retry bound.
var (
	// ErrPermanent tags failures that no retry can resolve.
	ErrPermanent = errors.New("permanent task failure")

	// ErrTransient tags failures expected to potentially succeed on retry.
	ErrTransient = errors.New("transient task failure")
)

// classifiedError carries a failure class alongside a human-readable
// message. Error() returns only the message, since it is what ends up in
// the task record's error field.
type classifiedError struct {
	class error
	msg   string
	cause error
}

func (e *classifiedError) Error() string {
	return e.msg
}

// Is reports the class tag so errors.Is(err, ErrPermanent/ErrTransient) works.
func (e *classifiedError) Is(target error) bool {
	return target == e.class
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

// Permanentf creates a permanent-class failure with a formatted message.
func Permanentf(format string, args ...any) error {
	return &classifiedError{class: ErrPermanent, msg: fmt.Sprintf(format, args...)}
}

// Transientf creates a transient-class failure with a formatted message.
func Transientf(format string, args ...any) error {
	return &classifiedError{class: ErrTransient, msg: fmt.Sprintf(format, args...)}
}

// PermanentWrap creates a permanent-class failure wrapping a cause.
func PermanentWrap(err error, msg string) error {
	return &classifiedError{class: ErrPermanent, msg: fmt.Sprintf("%s: %v", msg, err), cause: err}
}

// TransientWrap creates a transient-class failure wrapping a cause.
func TransientWrap(err error, msg string) error {
	return &classifiedError{class: ErrTransient, msg: fmt.Sprintf("%s: %v", msg, err), cause: err}
}

// IsPermanent reports whether err is a permanent-class failure.
// Unclassified errors are not permanent: when in doubt, retrying is the
// safer default because a deterministic failure will simply fail again.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
