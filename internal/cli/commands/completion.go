package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for the photoscene CLI.

To load completions:

Bash:

  $ source <(photoscene completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ photoscene completion bash > /etc/bash_completion.d/photoscene
  # macOS:
  $ photoscene completion bash > $(brew --prefix)/etc/bash_completion.d/photoscene

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ photoscene completion zsh > "${fpath[1]}/_photoscene"

  # You will need to start a new shell for this setup to take effect.

Fish:

  $ photoscene completion fish | source

  # To load completions for each session, execute once:
  $ photoscene completion fish > ~/.config/fish/completions/photoscene.fish

PowerShell:

  PS> photoscene completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
