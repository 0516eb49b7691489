package errors

import (
	"errors"
	"net/http"
)

var (
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrNoProvider        = errors.New("no fulfillment provider available")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrMissingSignature  = errors.New("missing signature")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrUnknownMessage    = errors.New("unknown message type")
	ErrProviderMismatch  = errors.New("provider does not support operation")
	ErrRedeliveryLimited = errors.New("redelivery limit reached")
)

// Class separates errors that must reach the transport from those handled in place.
type Class int

const (
	// ClassRecoverable errors are logged where they are caught and never escape.
	ClassRecoverable Class = iota + 1
	// ClassFatal errors propagate so the transport retries the whole unit of work.
	ClassFatal
)

type classified struct {
	err   error
	class Class
}

func (e *classified) Error() string { return e.err.Error() }
func (e *classified) Unwrap() error { return e.err }

// Fatal marks err for transport-level redelivery.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &classified{err: err, class: ClassFatal}
}

// Recoverable marks err as handled by the caller.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &classified{err: err, class: ClassRecoverable}
}

// ClassOf returns the outermost class attached to err, or zero when unclassified.
func ClassOf(err error) Class {
	var c *classified
	if errors.As(err, &c) {
		return c.class
	}
	return 0
}

// IsFatal reports whether err was marked fatal.
func IsFatal(err error) bool { return ClassOf(err) == ClassFatal }

// IsRecoverable reports whether err was marked recoverable.
func IsRecoverable(err error) bool { return ClassOf(err) == ClassRecoverable }

// HTTPStatus maps err onto the status code returned at the webhook boundary.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingSignature), errors.Is(err, ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
