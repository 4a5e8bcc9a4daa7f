package provisioning

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a run failed.
type ErrorKind string

// Error kinds.
const (
	// KindPrecondition covers privileges, locks, configuration and parameters.
	KindPrecondition ErrorKind = "precondition"
	// KindDependency covers binaries, packages and images that could not be installed.
	KindDependency ErrorKind = "dependency"
	// KindGeneration covers key material, rendered files and reports.
	KindGeneration ErrorKind = "generation"
	// KindService covers exposing and starting the service.
	KindService ErrorKind = "service"
)

// ErrDeclined ends a run successfully when the operator declines to
// update an existing installation.
var ErrDeclined = errors.New("update declined")

// ErrNotRoot is returned when vpsgate does not run as root.
var ErrNotRoot = errors.New("vpsgate must run as root")

// Error is a failed run.
type Error struct {
	Kind  ErrorKind
	Phase string
	Err   error
	// Diagnostics is extra context for the operator, such as the tail of
	// the service log.
	Diagnostics string
}

func (e *Error) Error() string {
	if e.Phase == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s phase: %s error: %v", e.Phase, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err, if it is an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
