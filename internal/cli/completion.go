package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/pkg/config"
	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/render"
)

// Shells supported by the completion command.
var shells = []string{"bash", "zsh", "fish", "powershell"}

// completionCommand creates the completion command.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [" + strings.Join(shells, "|") + "]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts.

Besides commands and flags, the scripts complete --variant with the
configuration presets, -f/--format with the render formats, graph files
for 'layout' and 'watch', and layout files for 'analyze' and 'render'.

  $ source <(graphanneal completion bash)
  $ graphanneal completion zsh > "${fpath[1]}/_graphanneal"
  $ graphanneal completion fish > ~/.config/fish/completions/graphanneal.fish
  PS> graphanneal completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(output, true)
			case "zsh":
				return root.GenZshCompletion(output)
			case "fish":
				return root.GenFishCompletion(output, true)
			default:
				return root.GenPowerShellCompletionWithDesc(output)
			}
		},
	}
}

// completeVariants completes --variant with the preset names.
func completeVariants(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return config.Variants, cobra.ShellCompDirectiveNoFileComp
}

// completeFormats completes the last entry of a comma-separated format list.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	head := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		head = toComplete[:i+1]
	}
	out := make([]string, 0, len(render.Formats))
	for _, f := range render.Formats {
		if !strings.Contains(","+head, ","+string(f)+",") {
			out = append(out, head+string(f))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeGraphFiles offers files with a graph extension for the first
// argument.
func completeGraphFiles(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"json", "yaml", "yml", "txt", "edges", "el"}, cobra.ShellCompDirectiveFilterFileExt
}

// completeLayoutFiles offers JSON files for the first argument.
func completeLayoutFiles(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{string(graph.FormatJSON)}, cobra.ShellCompDirectiveFilterFileExt
}
