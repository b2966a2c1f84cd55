package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable category of a service error
type ErrorKind string

const (
	KindInvalidAmount          ErrorKind = "INVALID_AMOUNT"
	KindInvalidTicketSelection ErrorKind = "INVALID_TICKET_SELECTION"
	KindTicketsAlreadyTaken    ErrorKind = "TICKETS_ALREADY_TAKEN"
	KindRaffleNotAvailable     ErrorKind = "RAFFLE_NOT_AVAILABLE"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindInvalidStatus          ErrorKind = "INVALID_STATUS"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindUnauthorized           ErrorKind = "UNAUTHORIZED"
	KindForbidden              ErrorKind = "FORBIDDEN"
	KindInvalidRequest         ErrorKind = "INVALID_REQUEST"
	KindInternal               ErrorKind = "INTERNAL"
)

// Error is returned by every service operation that fails in a way the caller
// can act on. Internal failures carry a generic message; the cause is kept for
// logging only.
type Error struct {
	Kind    ErrorKind
	Message string
	// Numbers lists the conflicting ticket numbers for KindTicketsAlreadyTaken
	Numbers []int
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func internalError(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "an internal error occurred, please try again later", cause: cause}
}

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a service error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
