package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/prompt"
	"github.com/imamik/vpsgate/internal/util/command"
	"github.com/imamik/vpsgate/internal/util/netutil"
)

// Outcome is what Apply did to the service.
type Outcome string

// Service outcomes.
const (
	OutcomeStarted   Outcome = "started"
	OutcomeRestarted Outcome = "restarted"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// DefaultLogLines is how much of the service log an Error carries.
const DefaultLogLines = 30

// Error is a failed start, restart or health check.
type Error struct {
	Service string
	Op      string
	Err     error
	// LogTail is the end of the service log, if it could be read.
	LogTail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HealthCheck describes how to tell that the service is serving.
type HealthCheck struct {
	Host string
	// Port is skipped when 0.
	Port    int
	Timeout time.Duration
}

// Applier brings a service in line with freshly written configuration.
type Applier struct {
	Manager  Manager
	Runner   command.Runner
	Prompter prompt.Prompter
	Policy   config.RestartPolicy

	// FreePorts allows killing processes holding ConflictPorts before the
	// first start. Without it, conflicts are only reported.
	FreePorts     bool
	ConflictPorts []int

	Health   HealthCheck
	LogLines int

	// BusyPorts defaults to netutil.BusyPorts.
	BusyPorts func(ctx context.Context, ports ...int) []int
}

// Result reports what Apply did.
type Result struct {
	Outcome Outcome
	// RestartSkipped is set when the policy kept a running service on
	// outdated configuration.
	RestartSkipped bool
	// PortConflicts lists ports held by another process before start.
	PortConflicts []int
	// FreedPorts lists ports whose holders were killed.
	FreedPorts []int
}

// Apply starts the service when it is not running, restarts it per
// policy when its configuration changed and then waits for it to become
// healthy.
func (a *Applier) Apply(ctx context.Context, changed bool) (*Result, error) {
	result := &Result{Outcome: OutcomeUnchanged}

	running, err := a.Manager.IsRunning(ctx)
	if err != nil {
		return a.fail(ctx, result, "status", err)
	}

	switch {
	case !running:
		if err := a.handlePortConflicts(ctx, result); err != nil {
			return a.fail(ctx, result, "free ports", err)
		}
		if err := a.Manager.Reload(ctx); err != nil {
			return a.fail(ctx, result, "reload", err)
		}
		if err := a.Manager.Start(ctx); err != nil {
			return a.fail(ctx, result, "start", err)
		}
		result.Outcome = OutcomeStarted

	case changed:
		restart, err := a.shouldRestart(ctx)
		if err != nil {
			return a.fail(ctx, result, "restart confirmation", err)
		}
		if !restart {
			result.RestartSkipped = true
			break
		}
		if err := a.Manager.Reload(ctx); err != nil {
			return a.fail(ctx, result, "reload", err)
		}
		if err := a.Manager.Restart(ctx); err != nil {
			return a.fail(ctx, result, "restart", err)
		}
		result.Outcome = OutcomeRestarted
	}

	if err := a.waitHealthy(ctx); err != nil {
		return a.fail(ctx, result, "health check", err)
	}
	return result, nil
}

func (a *Applier) shouldRestart(ctx context.Context) (bool, error) {
	switch a.Policy {
	case config.RestartNever:
		return false, nil
	case config.RestartAsk:
		if a.Prompter == nil || !a.Prompter.Interactive() {
			return true, nil
		}
		return a.Prompter.Confirm(ctx,
			fmt.Sprintf("Restart %s?", a.Manager.Name()),
			"The configuration changed. Connections through the gateway drop briefly.",
			true)
	}
	return true, nil
}

func (a *Applier) handlePortConflicts(ctx context.Context, result *Result) error {
	if len(a.ConflictPorts) == 0 {
		return nil
	}
	busyPorts := a.BusyPorts
	if busyPorts == nil {
		busyPorts = netutil.BusyPorts
	}
	result.PortConflicts = busyPorts(ctx, a.ConflictPorts...)
	if len(result.PortConflicts) == 0 || !a.FreePorts {
		return nil
	}

	for _, port := range result.PortConflicts {
		_, err := a.Runner.Run(ctx, command.Command{
			Name: "fuser",
			Args: []string{"-k", strconv.Itoa(port) + "/tcp"},
		})
		if err != nil {
			return fmt.Errorf("failed to free port %d: %w", port, err)
		}
		result.FreedPorts = append(result.FreedPorts, port)
	}
	return nil
}

func (a *Applier) waitHealthy(ctx context.Context) error {
	timeout := a.Health.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		running, err := a.Manager.IsRunning(ctx)
		if err != nil {
			return err
		}
		if running {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s is not running after %v", a.Manager.Name(), timeout)
		case <-ticker.C:
		}
	}

	if a.Health.Port == 0 {
		return nil
	}
	deadline, _ := ctx.Deadline()
	return netutil.WaitForPort(ctx, a.Health.Host, a.Health.Port, time.Until(deadline))
}

var pollInterval = time.Second

func (a *Applier) fail(ctx context.Context, result *Result, op string, err error) (*Result, error) {
	result.Outcome = OutcomeFailed
	svcErr := &Error{Service: a.Manager.Name(), Op: op, Err: err}

	lines := a.LogLines
	if lines <= 0 {
		lines = DefaultLogLines
	}
	// The run context may be the one that expired.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if tail, logErr := a.Manager.Logs(logCtx, lines); logErr == nil {
		svcErr.LogTail = tail
	}
	return result, svcErr
}
