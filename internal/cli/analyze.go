package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/pkg/analyze"
	"github.com/matzehuels/graphanneal/pkg/config"
	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/pipeline"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		configPath string
		variant    string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [layout.json]",
		Short: "Print the attributes and energy of a layout",
		Long: `Print the attributes and energy of a layout.

The layout is scored under the configuration's analysis policy and weights.
By default the variant recorded in the layout is used, so the energy matches
the one reported by 'layout'. A hand-edited layout can be re-scored the same
way.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeLayoutFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := graph.ReadLayoutFile(args[0])
			if err != nil {
				return fmt.Errorf("load layout %s: %w", args[0], err)
			}

			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			name := l.Variant
			if cmd.Flags().Changed("variant") {
				name = variant
			}
			if name != "" && name != cfg.Variant {
				if cfg, err = config.ForVariant(name); err != nil {
					return err
				}
			}

			runner := pipeline.NewRunner(nil, nil, c.Logger)
			eval := cfg.Evaluator()
			attrs, energy, err := runner.Analyze(l, eval)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}

			if asJSON {
				enc := json.NewEncoder(output)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Variant    string             `json:"variant"`
					Attributes analyze.Attributes `json:"attributes"`
					Energy     float64            `json:"energy"`
				}{cfg.Variant, attrs, energy})
			}

			fmt.Fprintln(output, StyleTitle.Render(args[0])+" "+StyleDim.Render(fmt.Sprintf("(%s, %d nodes, %d edges)", cfg.Variant, len(l.Nodes), len(l.Edges))))
			fmt.Fprintln(output, attributeTable(attrs, eval.Weights.Vector(), energy))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (default: ./"+config.FileName+" if present)")
	cmd.Flags().StringVar(&variant, "variant", "", "score under this preset instead of the layout's")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	_ = cmd.RegisterFlagCompletionFunc("variant", completeVariants)

	return cmd
}
