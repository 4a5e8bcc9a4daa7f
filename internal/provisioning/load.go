package provisioning

import (
	"errors"
	"fmt"

	"github.com/imamik/vpsgate/internal/state"
)

// StatePhase loads the state of a previous run and asks whether to
// update it.
type StatePhase struct{}

// NewStatePhase creates a new state phase.
func NewStatePhase() *StatePhase {
	return &StatePhase{}
}

// Name implements the Phase interface.
func (p *StatePhase) Name() string { return "state" }

// Stage implements the Phase interface.
func (p *StatePhase) Stage() Stage { return StageDependenciesReady }

// Provision implements the Phase interface.
func (p *StatePhase) Provision(ctx *Context) error {
	snap, err := state.Load(ctx.State.InstallDir)
	if errors.Is(err, state.ErrNotInstalled) {
		ctx.Note("fresh installation")
		return nil
	}
	if err != nil {
		return newError(KindPrecondition, err)
	}

	if v, ok := snap.Get(state.KeyVariant); ok && v != string(ctx.State.Variant) {
		return newError(KindPrecondition, fmt.Errorf("%s belongs to variant %q, not %q", snap.Path, v, ctx.State.Variant))
	}
	ctx.State.Prior = snap

	domain, _ := snap.Get(state.KeyDomain)
	update, err := ctx.Prompter.Confirm(ctx,
		"Update existing installation?",
		fmt.Sprintf("%s already serves %s. Keys are kept unless you ask to regenerate them.", ctx.State.InstallDir, domain),
		true)
	if err != nil {
		return newError(KindPrecondition, fmt.Errorf("failed to confirm update: %w", err))
	}
	if !update {
		return ErrDeclined
	}

	ctx.Note("updating " + domain)
	return nil
}
