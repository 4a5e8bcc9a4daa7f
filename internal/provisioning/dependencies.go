package provisioning

import (
	"fmt"

	"github.com/imamik/vpsgate/internal/deps"
)

// DependenciesPhase makes sure the binaries, packages and images of the
// variant are installed.
type DependenciesPhase struct{}

// NewDependenciesPhase creates a new dependencies phase.
func NewDependenciesPhase() *DependenciesPhase {
	return &DependenciesPhase{}
}

// Name implements the Phase interface.
func (p *DependenciesPhase) Name() string { return "dependencies" }

// Stage implements the Phase interface.
func (p *DependenciesPhase) Stage() Stage { return StageDependenciesReady }

// Provision implements the Phase interface.
func (p *DependenciesPhase) Provision(ctx *Context) error {
	host := &deps.Host{
		Runner:   ctx.Runner,
		Fetcher:  ctx.Fetcher,
		Timeouts: ctx.Timeouts,
		Arch:     ctx.Options.Arch,
	}

	caps := host.Capabilities(ctx.Config)
	installed, done := 0, 0
	observe := func(r deps.Result) {
		done++
		ctx.Observer.Progress(p.Name(), done, len(caps))
		ctx.Metrics.ObserveDependency(r.Capability, string(r.Outcome))
		switch r.Outcome {
		case deps.OutcomeInstalled:
			installed++
			LogResourceCreated(ctx.Observer, p.Name(), "dependency", r.Capability)
		case deps.OutcomePresent:
			LogResourceExists(ctx.Observer, p.Name(), "dependency", r.Capability)
		}
	}

	results, err := deps.EnsureAll(ctx, caps, observe)
	ctx.Results.Dependencies = results
	if err != nil {
		return newError(KindDependency, err)
	}

	ctx.Note(fmt.Sprintf("%d present, %d installed", len(results)-installed, installed))
	return nil
}
