package provisioning

import (
	"fmt"
	"os"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/params"
	"github.com/imamik/vpsgate/internal/state"
)

// PreflightPhase checks that a run can start at all and takes the
// install-directory lock.
type PreflightPhase struct{}

// NewPreflightPhase creates a new preflight phase.
func NewPreflightPhase() *PreflightPhase {
	return &PreflightPhase{}
}

// Name implements the Phase interface.
func (p *PreflightPhase) Name() string { return "preflight" }

// Stage implements the Phase interface.
func (p *PreflightPhase) Stage() Stage { return StageFresh }

// Provision implements the Phase interface.
func (p *PreflightPhase) Provision(ctx *Context) error {
	cfg := ctx.Config
	if !cfg.Variant.IsValid() {
		return newError(KindPrecondition, fmt.Errorf("unknown variant %q", cfg.Variant))
	}
	if err := cfg.Validate(); err != nil {
		return newError(KindPrecondition, fmt.Errorf("invalid configuration: %w", err))
	}

	if ctx.Euid != nil && ctx.Euid() != 0 {
		return newError(KindPrecondition, ErrNotRoot)
	}

	dir := ctx.State.InstallDir
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return newError(KindPrecondition, fmt.Errorf("install directory %s is not a directory", dir))
	}

	lock, err := state.AcquireLock(cfg.LockPath())
	if err != nil {
		return newError(KindPrecondition, err)
	}
	ctx.lock = lock

	if ctx.Prompter == nil || !ctx.Prompter.Interactive() {
		if err := checkSupplied(ctx); err != nil {
			return err
		}
	}

	ctx.Note(fmt.Sprintf("%s in %s", cfg.Variant, dir))
	return nil
}

// checkSupplied fails a run that cannot prompt before anything is
// installed when flags, environment and prior state leave out a value
// the parameters phase would need.
func checkSupplied(ctx *Context) error {
	// A broken state file is reported by the state phase.
	snap, _ := state.Load(ctx.State.InstallDir)
	req := params.Requirements{Token: ctx.Config.Variant == config.VariantFRP}
	err := params.CheckSupplied(ctx, req,
		&params.EnvSource{Overrides: ctx.Options.Overrides, LookupEnv: ctx.LookupEnv},
		&params.PersistedStateSource{Snapshot: snap},
	)
	if err != nil {
		return newError(KindPrecondition, err)
	}
	return nil
}
