package cli

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dyntopo/pkg/pipeline"
	"github.com/matzehuels/dyntopo/pkg/render/wire"
)

var (
	modeChoices = []string{"both", "subdivide", "collapse", "cleanup", "local-subdivide", "local-collapse"}
	viewChoices = []string{string(wire.ViewTop), string(wire.ViewFront), string(wire.ViewSide)}
)

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for dyntopo.

Completions cover subcommands, flag values such as --mode and --view, and
mesh files (.obj, .json) as arguments.

  $ source <(dyntopo completion bash)
  $ dyntopo completion zsh > "${fpath[1]}/_dyntopo"
  $ dyntopo completion fish > ~/.config/fish/completions/dyntopo.fish
  PS> dyntopo completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// completeMeshFiles completes the single mesh argument of remesh, stats and
// graph with files the importer accepts.
func completeMeshFiles(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{pipeline.FormatOBJ, pipeline.FormatJSON}, cobra.ShellCompDirectiveFilterFileExt
}

// outputFormats lists the remesh output formats in a stable order.
func outputFormats() []string {
	formats := make([]string, 0, len(pipeline.ValidFormats))
	for f := range pipeline.ValidFormats {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}
