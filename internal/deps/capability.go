package deps

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome is the result of ensuring one capability.
type Outcome string

const (
	// OutcomePresent means nothing had to be done.
	OutcomePresent Outcome = "present"
	// OutcomeInstalled means the capability was missing and is now installed.
	OutcomeInstalled Outcome = "installed"
	// OutcomeFailed means the capability is still missing.
	OutcomeFailed Outcome = "failed"
)

// Capability is something the host must provide.
type Capability struct {
	// Name identifies the capability in logs and metrics.
	Name string

	// Description explains what the capability is used for.
	Description string

	// Present reports whether the capability is already available.
	Present func(ctx context.Context) (bool, error)

	// Install makes the capability available.
	Install func(ctx context.Context) error
}

// Result is the outcome of ensuring a single capability.
type Result struct {
	Capability string
	Outcome    Outcome
	Duration   time.Duration
	Err        error
}

// Error reports a capability that could not be provided.
type Error struct {
	Capability string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dependency %s: %v", e.Capability, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrStillMissing is returned when an install succeeded but the
// capability is still not present afterwards.
var ErrStillMissing = errors.New("still missing after install")

// Ensure checks c and installs it when absent.
func Ensure(ctx context.Context, c Capability) Result {
	start := time.Now()
	result := Result{Capability: c.Name}
	finish := func(o Outcome, err error) Result {
		result.Outcome = o
		result.Duration = time.Since(start)
		if err != nil {
			result.Err = &Error{Capability: c.Name, Err: err}
		}
		return result
	}

	present, err := c.Present(ctx)
	if err != nil {
		return finish(OutcomeFailed, fmt.Errorf("presence check failed: %w", err))
	}
	if present {
		return finish(OutcomePresent, nil)
	}

	if c.Install == nil {
		return finish(OutcomeFailed, errors.New("not installed and no automatic install available"))
	}
	if err := c.Install(ctx); err != nil {
		return finish(OutcomeFailed, fmt.Errorf("install failed: %w", err))
	}

	present, err = c.Present(ctx)
	if err != nil {
		return finish(OutcomeFailed, fmt.Errorf("presence check after install failed: %w", err))
	}
	if !present {
		return finish(OutcomeFailed, ErrStillMissing)
	}
	return finish(OutcomeInstalled, nil)
}

// EnsureAll ensures caps in order and stops at the first failure. The
// results of every capability attempted are returned either way.
func EnsureAll(ctx context.Context, caps []Capability, observe func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(caps))
	for _, c := range caps {
		r := Ensure(ctx, c)
		results = append(results, r)
		if observe != nil {
			observe(r)
		}
		if r.Outcome == OutcomeFailed {
			return results, r.Err
		}
	}
	return results, nil
}
