package command

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// FakeRunner is a scripted Runner for tests. Responses are matched by the
// longest registered command-line prefix.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	paths     map[string]string
	calls     []Command
	stdins    []string
}

// FakeResponse is the scripted outcome of a command.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
	// Hook runs before the response is returned, e.g. to create a file
	// the real command would have produced.
	Hook func(cmd Command)
}

// NewFakeRunner creates an empty FakeRunner. Unscripted commands succeed
// with empty output.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string]FakeResponse),
		paths:     make(map[string]string),
	}
}

// On scripts the response for every command line starting with prefix.
func (f *FakeRunner) On(prefix string, resp FakeResponse) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
	return f
}

// WithPath makes LookPath find name.
func (f *FakeRunner) WithPath(name string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[name] = "/usr/bin/" + name
	return f
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, cmd Command) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	stdin := ""
	if cmd.Stdin != nil {
		data, _ := io.ReadAll(cmd.Stdin)
		stdin = string(data)
	}
	f.stdins = append(f.stdins, stdin)

	line := cmd.String()
	var match string
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(match) {
			match = prefix
		}
	}
	resp, ok := f.responses[match]
	f.mu.Unlock()

	if !ok {
		return &Result{}, nil
	}
	if resp.Hook != nil {
		resp.Hook(cmd)
	}

	result := &Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	if resp.Err != nil {
		return result, resp.Err
	}
	if resp.ExitCode != 0 {
		return result, &ExitError{Command: line, ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	}
	return result, nil
}

// LookPath implements Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

// Calls returns the command lines run so far.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = c.String()
	}
	return lines
}

// Called reports whether any command line started with prefix.
func (f *FakeRunner) Called(prefix string) bool {
	for _, line := range f.Calls() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Stdin returns what the i-th call received on stdin.
func (f *FakeRunner) Stdin(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stdins[i]
}
