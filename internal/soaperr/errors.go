// Package soaperr defines the error taxonomy shared by all components.
//
// Per-item kinds (platform, rate_limit) are recorded against the cycle and
// processing continues; cycle-fatal kinds (auth, validation, unexpected raised
// outside a per-item loop) flip the owning campaign to error.
package soaperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy and API envelopes.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindAuth         Kind = "auth"
	KindRateLimit    Kind = "rate_limit"
	KindPlatform     Kind = "platform"
	KindPrecondition Kind = "precondition"
	KindUnexpected   Kind = "unexpected"
)

// Error is a classified error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// E creates a classified error.
func E(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, preserving it for errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindUnexpected for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
