// Package prompt asks the operator questions during a run.
//
// The interactive implementation uses huh forms. Runs without a terminal
// (cloud-init, CI, ssh without -t) use [NonInteractive], which answers
// every question with its default so the pipeline never blocks.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Question describes a free-text input.
type Question struct {
	Title       string
	Description string
	Placeholder string
	// Secret hides the typed value.
	Secret   bool
	Validate func(string) error
}

// Prompter asks the operator for confirmation and input.
type Prompter interface {
	// Interactive reports whether answers come from a human.
	Interactive() bool
	Confirm(ctx context.Context, title, description string, defaultValue bool) (bool, error)
	Input(ctx context.Context, q Question) (string, error)
}

// ErrAborted is returned when the operator cancels a form.
var ErrAborted = errors.New("prompt aborted by user")

// IsTerminal reports whether stdin and stdout are attached to a terminal.
func IsTerminal() bool {
	return isTTY(os.Stdin.Fd()) && isTTY(os.Stdout.Fd())
}

func isTTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// New returns a huh based Prompter when running in a terminal and
// interactive is allowed, otherwise a NonInteractive one. assumeYes turns
// every confirmation into "yes" without asking.
func New(allowInteractive, assumeYes bool) Prompter {
	if assumeYes {
		return AssumeYes{}
	}
	if allowInteractive && IsTerminal() {
		return NewHuh(os.LookupEnv)
	}
	return NonInteractive{}
}

// EnvAccessible turns on accessible mode when set to a true value.
const EnvAccessible = "ACCESSIBLE"

// NewHuh returns a huh Prompter, in accessible mode when EnvAccessible
// says so.
func NewHuh(lookupEnv func(string) (string, bool)) *Huh {
	v, _ := lookupEnv(EnvAccessible)
	accessible, _ := strconv.ParseBool(v)
	return &Huh{Accessible: accessible}
}

// Huh prompts with charmbracelet/huh forms.
type Huh struct {
	// Accessible switches huh into screen-reader friendly mode.
	Accessible bool
}

// Interactive implements Prompter.
func (h *Huh) Interactive() bool { return true }

// Confirm implements Prompter.
func (h *Huh) Confirm(ctx context.Context, title, description string, defaultValue bool) (bool, error) {
	value := defaultValue
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&value),
		),
	).WithAccessible(h.Accessible).RunWithContext(ctx)
	if err != nil {
		return false, wrapFormError(err)
	}
	return value, nil
}

// Input implements Prompter.
func (h *Huh) Input(ctx context.Context, q Question) (string, error) {
	var value string
	input := huh.NewInput().
		Title(q.Title).
		Description(q.Description).
		Placeholder(q.Placeholder).
		Value(&value)
	if q.Secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if q.Validate != nil {
		input = input.Validate(q.Validate)
	}

	err := huh.NewForm(huh.NewGroup(input)).WithAccessible(h.Accessible).RunWithContext(ctx)
	if err != nil {
		return "", wrapFormError(err)
	}
	return value, nil
}

func wrapFormError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return fmt.Errorf("prompt failed: %w", err)
}

// NonInteractive answers every confirmation with its default and leaves
// every input empty.
type NonInteractive struct{}

// Interactive implements Prompter.
func (NonInteractive) Interactive() bool { return false }

// Confirm implements Prompter.
func (NonInteractive) Confirm(_ context.Context, _, _ string, defaultValue bool) (bool, error) {
	return defaultValue, nil
}

// Input implements Prompter.
func (NonInteractive) Input(context.Context, Question) (string, error) {
	return "", nil
}

// AssumeYes confirms everything and leaves every input empty.
type AssumeYes struct{}

// Interactive implements Prompter.
func (AssumeYes) Interactive() bool { return false }

// Confirm implements Prompter.
func (AssumeYes) Confirm(context.Context, string, string, bool) (bool, error) {
	return true, nil
}

// Input implements Prompter.
func (AssumeYes) Input(context.Context, Question) (string, error) {
	return "", nil
}
