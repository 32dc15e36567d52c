package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/pipeline"
)

// layoutOpts holds the flags of the layout command.
type layoutOpts struct {
	output   string
	autoRank bool
	refresh  bool
	config   configFlags
	cache    cacheOpts
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	opts := layoutOpts{autoRank: true}

	cmd := &cobra.Command{
		Use:   "layout [graph]",
		Short: "Anneal a graph into a layout",
		Long: `Anneal a graph into a layout.

The graph file may be JSON or YAML ({"nodes": [...], "edges": [...]}) or an
edge list with one "from to" pair per line. The result is written to
<graph>.layout.json and can be scored with 'analyze' or drawn with 'render'.

When the graph carries no ranks, ranks are derived from the edge directions
(--auto-rank). Results are cached by graph, settings and seed.

On interrupt the best layout found so far is still written.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeGraphFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <graph>.layout.json)")
	cmd.Flags().BoolVar(&opts.autoRank, "auto-rank", opts.autoRank, "derive ranks from edge directions when the graph has none")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even when a cached layout exists")
	opts.config.register(cmd)
	opts.cache.register(cmd)

	return cmd
}

// runLayout loads the graph, anneals it and writes the layout.
func (c *CLI) runLayout(cmd *cobra.Command, input string, opts layoutOpts) error {
	ctx := cmd.Context()
	cfg, err := opts.config.resolve(cmd)
	if err != nil {
		return err
	}
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	obs := newAnnealLogger(ctx)
	var spinner *Spinner
	if c.Logger.GetLevel() > log.DebugLevel {
		spinner = newSpinnerWithContext(ctx, errOutput, fmt.Sprintf("Annealing %s (%s)...", input, cfg.Variant))
		obs.onUpdate = func(e float64) {
			spinner.SetMessage(fmt.Sprintf("Annealing %s (%s)... energy %s", input, cfg.Variant, formatFloat(e)))
		}
		spinner.Start()
	}

	res, err := runner.Layout(ctx, pipeline.LayoutRequest{
		Graph:    g,
		Config:   cfg,
		AutoRank: opts.autoRank,
		Refresh:  opts.refresh,
		Observer: obs,
	})
	if spinner != nil {
		spinner.Stop()
	}
	cancelled := errors.Is(err, context.Canceled) && res != nil
	if err != nil && !cancelled {
		return fmt.Errorf("compute layout: %w", err)
	}

	a := res.Layout.Attributes
	obs.done(res.Layout.Energy, a.Overlaps+a.NodeOnEdge+a.Crossings)

	path := outputPath(opts.output, input, ".layout.json")
	if err := graph.WriteLayoutFile(res.Layout, path); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	if cancelled {
		printWarning("Interrupted, wrote best layout so far")
		printFile(path)
		return context.Canceled
	}

	printSuccess("Layout complete")
	printFile(path)
	printStats(len(res.Layout.Nodes), len(res.Layout.Edges), res.Layout.Energy, res.CacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+path)

	return nil
}
