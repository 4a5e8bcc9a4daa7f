package commands

import (
	"github.com/spf13/cobra"
)

// Completion returns the completion command for shell autocompletion.
func Completion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for vpsgate.

Bash:
  $ source <(vpsgate completion bash)
  # To load completions for each session, execute once:
  $ vpsgate completion bash > /etc/bash_completion.d/vpsgate

Zsh:
  $ vpsgate completion zsh > "${fpath[1]}/_vpsgate"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ vpsgate completion fish > ~/.config/fish/completions/vpsgate.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			}
			return nil
		},
	}
	return cmd
}
