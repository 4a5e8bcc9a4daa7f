package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/vpsgate/cmd/vpsgate/handlers"
)

// Status returns the command printing the connection info of an existing
// installation.
func Status() *cobra.Command {
	var opts handlers.StatusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the connection info of the current installation",
		Long: `Show the connection info written by the last successful run.

The install directory is taken from --install-dir, or from the variant's
default when only --variant is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Variant, "variant", "", "Gateway variant: frp or wireguard (env VPSGATE_VARIANT)")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.InstallDir, "install-dir", "", "Install directory")

	return cmd
}
