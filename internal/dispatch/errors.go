package dispatch

import (
	"errors"
	"fmt"
)

// Error kinds returned by the assignment path. Test with errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// Error describes why an assignment was refused. UnitStatus is set on unit conflicts
// so callers can tell the dispatcher what the unit is doing now.
type Error struct {
	Kind       error
	Message    string
	UnitStatus UnitStatus
}

func (e *Error) Error() string {
	if e.UnitStatus != "" {
		return fmt.Sprintf("%s (current status %s)", e.Message, e.UnitStatus)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func unitConflict(status UnitStatus) *Error {
	return &Error{Kind: ErrConflict, Message: "unit is not available", UnitStatus: status}
}
