// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing
// and flag binding. Command execution is delegated to handler functions in the
// handlers package.
package commands

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/imamik/vpsgate/cmd/vpsgate/handlers"
)

// Root returns the root command for the vpsgate CLI.
//
// Without a subcommand the root command provisions the VPS, so the
// usual invocation is a bare `vpsgate --variant frp`.
func Root() *cobra.Command {
	var opts handlers.ProvisionOptions

	cmd := &cobra.Command{
		Use:   "vpsgate",
		Short: "Expose a private Kubernetes cluster through a VPS",
		Long: heredoc.Doc(`
			Provision this VPS as the public entry point of a Kubernetes cluster.

			Two variants are available:
			  frp        frp server under systemd; the cluster runs frpc
			  wireguard  WireGuard and Caddy under Docker Compose; the cluster
			             joins the tunnel as a peer

			Running vpsgate again updates the existing installation. Values
			from the previous run are reused, keys are kept unless
			--regenerate-keys is given, and the service is only restarted
			when its configuration changed.

			Parameters are taken from flags, then from the environment
			(DOMAIN, TOKEN, VPS_IP, WG_PEER_PUBLIC_KEY), then from the previous
			run, then from interactive prompts, and finally detected.
		`),
		Example: heredoc.Doc(`
			# Install the frp variant without any prompts
			vpsgate --variant frp --domain example.com --token s3cret --non-interactive

			# Install or update the WireGuard variant interactively
			vpsgate --variant wireguard

			# Replace the WireGuard keys of an existing installation
			vpsgate --variant wireguard --regenerate-keys --yes
		`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), opts)
		},
	}

	bindProvisionFlags(cmd, &opts)

	cmd.AddCommand(Status())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

func bindProvisionFlags(cmd *cobra.Command, opts *handlers.ProvisionOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.Variant, "variant", "", "Gateway variant: frp or wireguard (env VPSGATE_VARIANT)")
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: /etc/vpsgate/config.yaml when present)")
	f.StringVar(&opts.InstallDir, "install-dir", "", "Install directory (default depends on the variant)")
	f.StringVar(&opts.Overrides.Domain, "domain", "", "Base domain routed to the cluster (env DOMAIN)")
	f.StringVar(&opts.Overrides.Token, "token", "", "frp authentication token (env TOKEN)")
	f.StringVar(&opts.Overrides.PublicIP, "ip", "", "Public IPv4 address of this VPS (env VPS_IP, default: detected)")
	f.StringVar(&opts.Overrides.PeerPublicKey, "peer-public-key", "", "WireGuard public key of the cluster peer (env WG_PEER_PUBLIC_KEY)")
	f.BoolVar(&opts.RegenerateKeys, "regenerate-keys", false, "Replace existing WireGuard keys")
	f.StringVar(&opts.Restart, "restart", "", "Restart policy for a running service: always, never or ask")
	f.BoolVar(&opts.FreePorts, "free-ports", false, "Kill processes holding the gateway ports before the first start")
	f.BoolVar(&opts.NonInteractive, "non-interactive", false, "Never prompt; use defaults for every question")
	f.BoolVarP(&opts.Yes, "yes", "y", false, "Answer yes to every confirmation")
}
