// Package pgxerr defines the error taxonomy shared by the coverage pipeline.
//
// Every failure the pipeline reports is one of four kinds. Callers test the
// kind with errors.Is against the exported sentinels:
//
//	if errors.Is(err, pgxerr.ErrValidation) { ... }
package pgxerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// Configuration marks a malformed bundled or user-supplied gene table.
	Configuration Kind = iota + 1
	// Validation marks an unknown gene symbol, a role mismatch or an
	// unsupported genome build.
	Validation
	// Format marks a malformed region token.
	Format
	// IO marks an unreadable or unindexed alignment file, or a failed depth
	// computation.
	IO
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration error"
	case Validation:
		return "validation error"
	case Format:
		return "format error"
	case IO:
		return "io error"
	}
	return "unknown error"
}

// Sentinels for errors.Is.
var (
	ErrConfiguration = &Error{Kind: Configuration}
	ErrValidation    = &Error{Kind: Validation}
	ErrFormat        = &Error{Kind: Format}
	ErrIO            = &Error{Kind: IO}
)

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "parse region".
	Op  string
	Msg string
	Err error
	// Retryable is set for transient failures such as a depth query that
	// ran past its deadline.
	Retryable bool
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s += ": " + e.Op
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. This lets the
// package-level sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

func newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Configurationf returns a Configuration error.
func Configurationf(op, format string, args ...any) error {
	return newf(Configuration, op, format, args...)
}

// Validationf returns a Validation error.
func Validationf(op, format string, args ...any) error {
	return newf(Validation, op, format, args...)
}

// Formatf returns a Format error.
func Formatf(op, format string, args ...any) error {
	return newf(Format, op, format, args...)
}

// IOf returns an IO error.
func IOf(op, format string, args ...any) error {
	return newf(IO, op, format, args...)
}

// WrapIO classifies err as an IO error. Errors that already carry a kind
// are returned unchanged.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Kind: IO, Op: op, Err: err}
}

// Timeout returns a retryable IO error for an operation that exceeded its
// deadline.
func Timeout(op string, err error) error {
	return &Error{Kind: IO, Op: op, Msg: "deadline exceeded", Err: err, Retryable: true}
}

// IsRetryable reports whether err, or any error it wraps, is a retryable
// pipeline failure.
func IsRetryable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Retryable
}

// KindOf returns the kind of err, or 0 if err is not a pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
