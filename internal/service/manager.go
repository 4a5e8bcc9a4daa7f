package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/imamik/vpsgate/internal/util/command"
)

// Manager controls one service through its service manager.
type Manager interface {
	// Name identifies the service in logs.
	Name() string
	IsRunning(ctx context.Context) (bool, error)
	// Reload makes the service manager pick up changed unit files.
	Reload(ctx context.Context) error
	// Start enables and starts the service.
	Start(ctx context.Context) error
	Restart(ctx context.Context) error
	// Logs returns the last lines of the service log.
	Logs(ctx context.Context, lines int) (string, error)
}

// Systemd manages a systemd unit.
type Systemd struct {
	Runner command.Runner
	Unit   string
}

// Name implements Manager.
func (s *Systemd) Name() string { return s.Unit }

// IsRunning implements Manager.
func (s *Systemd) IsRunning(ctx context.Context) (bool, error) {
	_, err := s.Runner.Run(ctx, command.Command{Name: "systemctl", Args: []string{"is-active", "--quiet", s.Unit}})
	if err == nil {
		return true, nil
	}
	if command.IsExitError(err) {
		return false, nil
	}
	return false, err
}

// Reload implements Manager.
func (s *Systemd) Reload(ctx context.Context) error {
	_, err := s.Runner.Run(ctx, command.Command{Name: "systemctl", Args: []string{"daemon-reload"}})
	return err
}

// Start implements Manager.
func (s *Systemd) Start(ctx context.Context) error {
	_, err := s.Runner.Run(ctx, command.Command{Name: "systemctl", Args: []string{"enable", "--now", s.Unit}})
	return err
}

// Restart implements Manager.
func (s *Systemd) Restart(ctx context.Context) error {
	_, err := s.Runner.Run(ctx, command.Command{Name: "systemctl", Args: []string{"restart", s.Unit}})
	return err
}

// Logs implements Manager.
func (s *Systemd) Logs(ctx context.Context, lines int) (string, error) {
	res, err := s.Runner.Run(ctx, command.Command{
		Name: "journalctl",
		Args: []string{"-u", s.Unit, "-n", strconv.Itoa(lines), "--no-pager"},
	})
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Compose manages a Docker Compose project.
type Compose struct {
	Runner command.Runner
	// Dir holds docker-compose.yml.
	Dir string
	// Services must all be running for the project to count as running.
	Services []string
}

// Name implements Manager.
func (c *Compose) Name() string { return "compose:" + c.Dir }

func (c *Compose) compose(ctx context.Context, args ...string) (*command.Result, error) {
	return c.Runner.Run(ctx, command.Command{
		Name: "docker",
		Args: append([]string{"compose"}, args...),
		Dir:  c.Dir,
	})
}

// IsRunning implements Manager.
func (c *Compose) IsRunning(ctx context.Context) (bool, error) {
	res, err := c.compose(ctx, "ps", "--status", "running", "--services")
	if err != nil {
		if command.IsExitError(err) {
			return false, nil
		}
		return false, err
	}
	running := make(map[string]bool)
	for _, line := range strings.Split(res.Stdout, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			running[s] = true
		}
	}
	if len(running) == 0 {
		return false, nil
	}
	for _, s := range c.Services {
		if !running[s] {
			return false, nil
		}
	}
	return true, nil
}

// Reload implements Manager. Compose reads its file on every call.
func (c *Compose) Reload(context.Context) error { return nil }

// Start implements Manager.
func (c *Compose) Start(ctx context.Context) error {
	_, err := c.compose(ctx, "up", "-d")
	return err
}

// Restart implements Manager. Containers are recreated so that changed
// mounts and images take effect.
func (c *Compose) Restart(ctx context.Context) error {
	_, err := c.compose(ctx, "up", "-d", "--force-recreate")
	return err
}

// Logs implements Manager.
func (c *Compose) Logs(ctx context.Context, lines int) (string, error) {
	res, err := c.compose(ctx, "logs", "--no-color", "--tail", strconv.Itoa(lines))
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}
