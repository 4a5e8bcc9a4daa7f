package provisioning

import (
	"fmt"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/keys"
)

// Key material locations inside the install directory.
const (
	KeysDir               = "keys"
	ServerPrivateKeyFile  = "server.key"
	ServerPublicKeyFile   = "server.pub"
	PeerPrivateKeyFile    = "peer.key"
	PeerPublicKeyFile     = "peer.pub"
	DashboardPasswordFile = "dashboard.password"
)

// dashboardPasswordBytes is the entropy of the generated frp dashboard password.
const dashboardPasswordBytes = 18

// KeysPhase makes sure key material exists. Existing keys are reused
// unless the operator asks for new ones.
type KeysPhase struct{}

// NewKeysPhase creates a new keys phase.
func NewKeysPhase() *KeysPhase {
	return &KeysPhase{}
}

// Name implements the Phase interface.
func (p *KeysPhase) Name() string { return "keys" }

// Stage implements the Phase interface.
func (p *KeysPhase) Stage() Stage { return StageDependenciesReady }

// Provision implements the Phase interface.
func (p *KeysPhase) Provision(ctx *Context) error {
	if ctx.Config.Variant == config.VariantFRP {
		return p.dashboardPassword(ctx)
	}
	return p.wireGuardKeys(ctx)
}

func (p *KeysPhase) dashboardPassword(ctx *Context) error {
	password, created, err := keys.EnsureSecret(ctx.State.Path(KeysDir, DashboardPasswordFile), dashboardPasswordBytes)
	if err != nil {
		return newError(KindGeneration, fmt.Errorf("failed to ensure dashboard password: %w", err))
	}
	ctx.State.DashboardPassword = password
	ctx.Results.KeysCreated = created
	if created {
		ctx.Note("dashboard password generated")
	} else {
		ctx.Note("dashboard password reused")
	}
	return nil
}

func (p *KeysPhase) wireGuardKeys(ctx *Context) error {
	st := ctx.State
	gen := p.generator(ctx)

	regenerate, err := p.regenerate(ctx)
	if err != nil {
		return newError(KindPrecondition, err)
	}

	keyCtx, cancel := ctx.WithTimeout(ctx.Timeouts.Command)
	defer cancel()

	server, err := keys.EnsureKeyPair(keyCtx, gen, keys.Paths{
		Private: st.Path(KeysDir, ServerPrivateKeyFile),
		Public:  st.Path(KeysDir, ServerPublicKeyFile),
	}, regenerate)
	if err != nil {
		return newError(KindGeneration, fmt.Errorf("failed to ensure server key pair: %w", err))
	}
	st.PrivateKey = server.PrivateKey
	st.PublicKey = server.PublicKey
	ctx.Results.KeysCreated = server.Created
	if server.Created {
		LogResourceCreated(ctx.Observer, p.Name(), "key pair", ServerPrivateKeyFile)
		ctx.Note("server key pair generated")
	} else {
		LogResourceExists(ctx.Observer, p.Name(), "key pair", ServerPrivateKeyFile)
		ctx.Note("server key pair reused")
	}

	// A peer key given by the operator belongs to an existing peer.
	if !ctx.Config.WireGuard.GeneratePeerKeys || st.PeerPublicKey != "" {
		return nil
	}
	peer, err := keys.EnsureKeyPair(keyCtx, gen, keys.Paths{
		Private: st.Path(KeysDir, PeerPrivateKeyFile),
		Public:  st.Path(KeysDir, PeerPublicKeyFile),
	}, regenerate)
	if err != nil {
		return newError(KindGeneration, fmt.Errorf("failed to ensure peer key pair: %w", err))
	}
	st.PeerPrivateKey = peer.PrivateKey
	st.PeerPublicKey = peer.PublicKey
	if peer.Created {
		ctx.Note("peer key pair generated")
	}
	return nil
}

func (p *KeysPhase) generator(ctx *Context) keys.Generator {
	if ctx.Config.WireGuard.KeyTool == config.KeyToolWG {
		return keys.CommandGenerator{Runner: ctx.Runner}
	}
	return keys.NativeGenerator{}
}

// regenerate reports whether existing keys are replaced. Only an explicit
// flag or a human answering the question does that; defaults never do.
func (p *KeysPhase) regenerate(ctx *Context) (bool, error) {
	if ctx.Options.RegenerateKeys {
		return true, nil
	}
	if ctx.State.Prior == nil || !ctx.Prompter.Interactive() {
		return false, nil
	}
	answer, err := ctx.Prompter.Confirm(ctx,
		"Regenerate WireGuard keys?",
		"New keys invalidate the peer configuration already deployed on the cluster.",
		false)
	if err != nil {
		return false, fmt.Errorf("failed to confirm key regeneration: %w", err)
	}
	return answer, nil
}
