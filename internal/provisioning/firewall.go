package provisioning

import (
	"fmt"

	"github.com/imamik/vpsgate/internal/firewall"
	hcloud_internal "github.com/imamik/vpsgate/internal/platform/hcloud"
	"github.com/imamik/vpsgate/internal/util/labels"
)

// FirewallPhase opens the ports the gateway needs.
type FirewallPhase struct{}

// NewFirewallPhase creates a new firewall phase.
func NewFirewallPhase() *FirewallPhase {
	return &FirewallPhase{}
}

// Name implements the Phase interface.
func (p *FirewallPhase) Name() string { return "firewall" }

// Stage implements the Phase interface.
func (p *FirewallPhase) Stage() Stage { return StageConfigReady }

// Provision implements the Phase interface.
func (p *FirewallPhase) Provision(ctx *Context) error {
	cfg := ctx.Config
	rules := firewall.Rules(cfg)

	if cfg.Firewall.UFW {
		cmdCtx, cancel := ctx.WithTimeout(ctx.Timeouts.Command)
		defer cancel()
		result, err := (&firewall.UFW{Runner: ctx.Runner}).Apply(cmdCtx, rules)
		if err != nil {
			return newError(KindService, err)
		}
		ctx.Results.Firewall = result
		switch {
		case result.Skipped:
			ctx.Note("ufw not installed")
		case !result.Active:
			ctx.Warn("ufw is installed but inactive; rules were added without enabling it")
			ctx.Note("ufw rules added, inactive")
		default:
			ctx.Note(fmt.Sprintf("ufw: %d rules added", len(result.Added)))
		}
	}

	name := cfg.Firewall.HCloud.Name
	if name == "" {
		return nil
	}
	if ctx.CloudFirewall == nil {
		ctx.Warn(fmt.Sprintf("Hetzner Cloud firewall %s not synced: HCLOUD_TOKEN is not set", name))
		return nil
	}

	cloudCtx, cancel := ctx.WithTimeout(ctx.Timeouts.Cloud)
	defer cancel()
	resourceLabels := labels.NewLabelBuilder(string(cfg.Variant)).WithDomain(ctx.State.Domain).Build()
	sync, err := ctx.CloudFirewall.SyncFirewall(cloudCtx, name, firewall.HCloudRules(rules), resourceLabels, cfg.Firewall.HCloud.Server)
	if err != nil {
		if hcloud_internal.IsUnauthorized(err) {
			return newError(KindPrecondition, fmt.Errorf("HCLOUD_TOKEN was rejected while syncing firewall %s: %w", name, err))
		}
		return newError(KindService, fmt.Errorf("failed to sync Hetzner Cloud firewall %s: %w", name, err))
	}
	ctx.Results.CloudFirewall = sync
	if sync.Created {
		LogResourceCreated(ctx.Observer, p.Name(), "hcloud firewall", name)
	} else {
		LogResourceUpdated(ctx.Observer, p.Name(), "hcloud firewall", name)
	}
	note := "hcloud firewall " + name
	if sync.AppliedTo != "" {
		note += ", attached to " + sync.AppliedTo
	}
	ctx.Note(note)
	return nil
}
