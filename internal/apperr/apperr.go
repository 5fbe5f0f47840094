// Package apperr holds the error kinds shared by the engines and the HTTP
// layer. Callers wrap a kind with fmt.Errorf("...: %w", kind) and classify
// with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")

	// ErrSandboxFailure means the execution environment itself could not
	// produce a verdict. It is never recorded as a score.
	ErrSandboxFailure = errors.New("sandbox failure")
	// ErrSandboxTimeout is a sandbox failure caused by the run deadline.
	ErrSandboxTimeout = fmt.Errorf("execution timed out: %w", ErrSandboxFailure)

	ErrPersistence = errors.New("persistence failure")
)

// Validation returns an ErrValidation carrying a learner-facing message.
func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store error so the HTTP layer treats it as a server
// error without leaking driver text.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: ErrPersistence, msg: op, cause: err}
}

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.cause }

// Message is the text safe to show a learner: the validation message for
// learner-caused errors, a generic line otherwise.
func Message(err error) string {
	var ke *kindError
	switch {
	case errors.As(err, &ke) && ke.kind == ErrValidation:
		return ke.msg
	case errors.Is(err, ErrSandboxTimeout):
		return "execution timed out"
	case errors.Is(err, ErrSandboxFailure):
		return "grading unavailable"
	case errors.Is(err, ErrAuthRequired):
		return "please log in"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrConflict):
		return "already exists"
	case errors.Is(err, ErrValidation):
		return "invalid request"
	default:
		return "request failed"
	}
}
