package provisioning

import (
	"fmt"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/params"
	"github.com/imamik/vpsgate/internal/platform/publicip"
)

// ParametersPhase resolves domain, token, public IP and peer key. It
// writes nothing.
type ParametersPhase struct{}

// NewParametersPhase creates a new parameters phase.
func NewParametersPhase() *ParametersPhase {
	return &ParametersPhase{}
}

// Name implements the Phase interface.
func (p *ParametersPhase) Name() string { return "parameters" }

// Stage implements the Phase interface.
func (p *ParametersPhase) Stage() Stage { return StageDependenciesReady }

// Provision implements the Phase interface.
func (p *ParametersPhase) Provision(ctx *Context) error {
	cfg := ctx.Config
	st := ctx.State

	detector := ctx.Detector
	if detector == nil {
		d, err := publicip.NewDetector(cfg.PublicIP.Providers, ctx.Timeouts.IPLookup)
		if err != nil {
			return newError(KindPrecondition, fmt.Errorf("invalid public IP providers: %w", err))
		}
		detector = params.FromPublicIP(d)
	}

	req := params.Requirements{
		Token:         cfg.Variant == config.VariantFRP,
		PeerPublicKey: cfg.Variant == config.VariantWireGuard && !cfg.WireGuard.GeneratePeerKeys,
	}
	resolved, err := params.Resolve(ctx, req,
		&params.EnvSource{Overrides: ctx.Options.Overrides, LookupEnv: ctx.LookupEnv},
		&params.PersistedStateSource{Snapshot: st.Prior},
		&params.PromptSource{Prompter: ctx.Prompter},
		&params.DetectSource{Detector: detector},
	)
	if err != nil {
		return newError(KindPrecondition, err)
	}

	st.Domain = resolved.Domain
	st.PublicIP = resolved.PublicIP
	if cfg.Variant == config.VariantFRP {
		st.AuthToken = resolved.Token
		st.DashboardUser = cfg.FRP.DashboardUser
	} else {
		st.TunnelServerIP = cfg.WireGuard.ServerIP
		st.TunnelClientIP = cfg.WireGuard.ClientIP
		st.TunnelPort = cfg.WireGuard.Port
		st.PeerPublicKey = resolved.PeerPublicKey
	}

	ctx.Results.Origins = resolved.Origin
	for _, f := range []params.Field{params.FieldDomain, params.FieldPublicIP, params.FieldToken, params.FieldPeerPublicKey} {
		if origin, ok := resolved.Origin[f]; ok {
			ctx.Observer.Printf("[%s] %s from %s", p.Name(), f, origin)
		}
	}

	ctx.Note(fmt.Sprintf("%s at %s (%s)", st.Domain, st.PublicIP, resolved.Origin[params.FieldPublicIP]))
	return nil
}
