package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested workshop, player or pair does
// not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a business rule (e.g. a blank
// player name, a malformed workshop code, too few players to pair).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInfeasible is returned when the tag constraints make a complete pairing
// impossible.
// Handlers should map this to HTTP 409 Conflict.
var ErrInfeasible = errors.New("pairing infeasible")

// ErrConflict is returned when a workshop was changed by someone else between
// being loaded and being saved, or when a new workshop's code is taken.
// Handlers should map this to HTTP 409 Conflict.
var ErrConflict = errors.New("conflict")

// ErrExhausted is returned when the matcher gives up after its attempt budget
// without proving infeasibility. It wraps ErrInfeasible so callers that only
// care about "no pairing" can match on that.
var ErrExhausted = &Error{Kind: ErrInfeasible, Message: "could not find a valid pairing in bounded attempts"}

// Error is the error value carried by a failed Result.
// Error() returns Message verbatim so user-facing text stays exact, while
// Unwrap exposes Kind for errors.Is checks against the sentinels above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind error, format string, args ...any) *Error {
	if len(args) == 0 {
		return &Error{Kind: kind, Message: format}
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
