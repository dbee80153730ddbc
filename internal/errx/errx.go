// Package errx defines the error kinds shared by the store, the shortening
// engine and the transports. A kind survives wrapping, so a handler can map
// any error returned from below to a status code with KindOf.
package errx

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	Unknown Kind = iota
	// Invalid marks input rejected before any store access.
	Invalid
	// Conflict is returned by a store when a short code is already taken.
	Conflict
	// Exhausted means no free short code was found within the attempt budget.
	Exhausted
	NotFound
	// DuplicateCode is the engine-level form of Conflict on update.
	DuplicateCode
	Unavailable
	Unauthorized
	Internal
)

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case Invalid:
		return "Invalid"
	case Conflict:
		return "Conflict"
	case Exhausted:
		return "Exhausted"
	case NotFound:
		return "NotFound"
	case DuplicateCode:
		return "DuplicateCode"
	case Unavailable:
		return "Unavailable"
	case Unauthorized:
		return "Unauthorized"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Error carries the operation that failed and the kind of failure.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

// E wraps err with op and kind. A nil err yields nil.
func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// Errorf is E with a formatted message as the cause.
func Errorf(op string, kind Kind, format string, args ...any) error {
	return E(op, kind, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
