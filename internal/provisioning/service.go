package provisioning

import (
	"errors"
	"fmt"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/deps"
	"github.com/imamik/vpsgate/internal/render"
	"github.com/imamik/vpsgate/internal/service"
)

// healthHost is where the service is probed after a start.
const healthHost = "127.0.0.1"

// ServicePhase starts or restarts the gateway and waits for it to serve.
type ServicePhase struct{}

// NewServicePhase creates a new service phase.
func NewServicePhase() *ServicePhase {
	return &ServicePhase{}
}

// Name implements the Phase interface.
func (p *ServicePhase) Name() string { return "service" }

// Stage implements the Phase interface.
func (p *ServicePhase) Stage() Stage { return StageServiceRunning }

// Provision implements the Phase interface.
func (p *ServicePhase) Provision(ctx *Context) error {
	applier := p.applier(ctx)

	result, err := applier.Apply(ctx, p.changed(ctx))
	if result != nil {
		ctx.Results.Service = result
		ctx.Metrics.ObserveService(string(result.Outcome))
		p.warnPorts(ctx, result)
	}
	if err != nil {
		e := newError(KindService, err)
		var svcErr *service.Error
		if errors.As(err, &svcErr) {
			e.Diagnostics = svcErr.LogTail
		}
		return e
	}

	if result.RestartSkipped {
		ctx.Warn(fmt.Sprintf("%s keeps running with its previous configuration; restart it to apply the changes", applier.Manager.Name()))
	}
	ctx.Note(fmt.Sprintf("%s %s", applier.Manager.Name(), result.Outcome))
	return nil
}

func (p *ServicePhase) applier(ctx *Context) *service.Applier {
	cfg := ctx.Config
	a := &service.Applier{
		Runner:    ctx.Runner,
		Prompter:  ctx.Prompter,
		Policy:    cfg.Restart,
		FreePorts: cfg.FreePorts,
		Health:    service.HealthCheck{Host: healthHost, Timeout: ctx.Timeouts.Health},
		BusyPorts: ctx.BusyPorts,
	}

	switch cfg.Variant {
	case config.VariantFRP:
		a.Manager = &service.Systemd{Runner: ctx.Runner, Unit: cfg.FRP.ServiceName}
		a.Health.Port = cfg.FRP.BindPort
		a.ConflictPorts = []int{cfg.FRP.VhostHTTPPort}
		if cfg.FRP.TLSEnabled() {
			a.ConflictPorts = append(a.ConflictPorts, cfg.FRP.VhostHTTPSPort)
		}
	default:
		a.Manager = &service.Compose{
			Runner:   ctx.Runner,
			Dir:      ctx.State.InstallDir,
			Services: []string{render.ComposeWireGuardService, render.ComposeCaddyService},
		}
		a.Health.Port = 80
		a.ConflictPorts = []int{80, 443}
	}
	if ctx.healthPort != 0 {
		a.Health.Port = ctx.healthPort
	}
	return a
}

// changed reports whether the running service is behind its
// configuration or binaries.
func (p *ServicePhase) changed(ctx *Context) bool {
	if ctx.Results.ServiceConfigChanged {
		return true
	}
	for _, d := range ctx.Results.Dependencies {
		if d.Outcome == deps.OutcomeInstalled {
			return true
		}
	}
	return false
}

func (p *ServicePhase) warnPorts(ctx *Context, result *service.Result) {
	if len(result.FreedPorts) > 0 {
		ctx.Warn(fmt.Sprintf("killed the processes holding ports %v (--free-ports)", result.FreedPorts))
		return
	}
	if len(result.PortConflicts) > 0 {
		ctx.Warn(fmt.Sprintf("ports %v were already in use before the start; pass --free-ports to stop their holders", result.PortConflicts))
	}
}
