package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures of one pipeline invocation.
type Kind string

const (
	// KindValidation means an input precondition failed before any side effect.
	KindValidation Kind = "validation"
	// KindTransport means the upload request could not complete.
	KindTransport Kind = "transport"
	// KindServer means the backend answered with something other than success.
	KindServer Kind = "server"
)

// Error is a classified pipeline error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a validation error for op.
func Validation(op, message string) error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Validationf is Validation with formatting.
func Validationf(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Transport wraps a network failure.
func Transport(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// ServerError carries a non-success backend response verbatim.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	if e == nil {
		return ""
	}
	if e.Body != "" {
		return fmt.Sprintf("server responded %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("server responded %d with empty body", e.Status)
}

// Server wraps a ServerError so that KindOf reports KindServer.
func Server(op string, status int, body string) error {
	return &Error{Kind: KindServer, Op: op, Err: &ServerError{Status: status, Body: body}}
}

// KindOf extracts the Kind from err; it returns "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
