package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Command describes a single program invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin io.Reader
	Dir   string
	Env   []string

	// Timeout overrides the runner default when set.
	Timeout time.Duration
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	LookPath(name string) (string, error)
}

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, lastLine(msg))
}

// IsExitError reports whether err is a non-zero exit of a command.
func IsExitError(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

// ExecRunner runs commands on the local host.
type ExecRunner struct {
	defaultTimeout time.Duration
}

// NewExecRunner creates a runner that bounds every command by timeout
// unless the command sets its own.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{defaultTimeout: timeout}
}

// Run executes cmd and waits for it. A non-zero exit yields an *ExitError
// together with the captured result.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// #nosec G204 -- command names come from vpsgate itself, not from user input
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Stdin = cmd.Stdin
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("%s timed out after %v", cmd, timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{
			Command:  cmd.String(),
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}

	return result, fmt.Errorf("failed to run %s: %w", cmd, err)
}

// LookPath searches PATH for name.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
