package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies a validation failure. Every kind is a synchronous input
// error; none are transient or retryable.
type Kind string

const (
	KindInvalidDate         Kind = "INVALID_DATE"
	KindInvalidAmount       Kind = "INVALID_AMOUNT"
	KindInvalidOption       Kind = "INVALID_OPTION"
	KindDeadlineExceeded    Kind = "DEADLINE_EXCEEDED"
	KindMinimumGapViolation Kind = "MINIMUM_GAP_VIOLATION"
)

// Error is a tagged validation error. Date carries the offending due date for
// deadline failures; Date and Next carry the offending pair for gap failures.
type Error struct {
	Kind    Kind
	Message string
	Date    time.Time
	Next    time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the schedule error kind from err, or "" if err was not
// produced by this package.
func KindOf(err error) Kind {
	var schedErr *Error
	if errors.As(err, &schedErr) {
		return schedErr.Kind
	}
	return ""
}
