// internal/apperr/errors.go
// Recognized error kinds surfaced to API clients verbatim.
// Anything that is not an *apperr.Error is reported as a generic
// internal server error and logged with full detail server-side.

package apperr

import "errors"

// Kind identifies a recognized request or domain error.
type Kind string

const (
	// Request errors raised by the dispatcher.
	KindInvalidRequest     Kind = "InvalidRequest"
	KindInvalidMethod      Kind = "InvalidMethod"
	KindInvalidToken       Kind = "InvalidToken"
	KindFilledProfileOnly  Kind = "FilledProfileOnly"
	KindInvalidRequestData Kind = "InvalidRequestData"
	KindFileNotSupport     Kind = "FileNotSupport"

	// Domain errors raised by handlers and services.
	KindIncorrectPassword       Kind = "IncorrectPassword"
	KindInvalidSmsCode          Kind = "InvalidSmsCode"
	KindInvalidProfile          Kind = "InvalidProfile"
	KindChoiceAreMade           Kind = "ChoiceAreMade"
	KindRelationshipsAreDefined Kind = "RelationshipsAreDefined"
	KindNoCandidates            Kind = "NoCandidates"
)

// Error is a recognized error. Its message is sent to the caller as-is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a recognized error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a recognized error that keeps the underlying cause for logs.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Recognized reports whether err is (or wraps) a recognized error.
func Recognized(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Is lets errors.Is match on the kind alone.
func (e *Error) Is(target error) bool {
	var ae *Error
	if !errors.As(target, &ae) {
		return false
	}
	return e.Kind == ae.Kind
}
