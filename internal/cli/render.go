package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string // output file (single format) or base path
	formats    string // comma-separated formats
	size       int    // SVG size bound in pixels
	padding    float64
	hideLabels bool
	cache      cacheOpts
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{formats: string(render.FormatSVG)}

	cmd := &cobra.Command{
		Use:   "render [layout.json]",
		Short: "Draw a layout as SVG, PNG or DOT",
		Long: `Draw a layout as SVG, PNG or DOT.

Formats:
  svg     nodes as labelled circles and edges as arrows
  dot     Graphviz source with every node pinned to its position
  gv.svg  the DOT source drawn by Graphviz
  png     the DOT source rasterized by Graphviz`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeLayoutFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := render.ParseFormats(opts.formats)
			if err != nil {
				return err
			}
			return c.runRender(cmd, args[0], formats, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", opts.formats, "output format(s): svg, png, dot, gv.svg (comma-separated)")
	cmd.Flags().IntVar(&opts.size, "size", 800, "largest SVG dimension in pixels")
	cmd.Flags().Float64Var(&opts.padding, "padding", 0.5, "margin around the layout in lattice units")
	cmd.Flags().BoolVar(&opts.hideLabels, "hide-labels", false, "omit node labels")
	opts.cache.register(cmd)
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// runRender renders the layout at input in every format and writes one file
// per format.
func (c *CLI) runRender(cmd *cobra.Command, input string, formats []render.Format, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	l, err := graph.ReadLayoutFile(input)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", input, err)
	}
	logger.Debugf("Loaded layout: %d nodes, %d edges", len(l.Nodes), len(l.Edges))

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	artifacts, cached, err := runner.Render(ctx, l, formats, render.Options{
		Size:       opts.size,
		Padding:    opts.padding,
		HideLabels: opts.hideLabels,
	})
	if err != nil {
		return err
	}
	if cached {
		logger.Debug("all artifacts served from cache")
	}

	paths := renderPaths(opts.output, input, formats)
	for _, f := range formats {
		if err := writeFile(paths[f], artifacts[f]); err != nil {
			return err
		}
		logger.Debugf("Generated %s: %d bytes", paths[f], len(artifacts[f]))
	}

	printSuccess("Rendered %d format(s)", len(formats))
	for _, f := range formats {
		printFile(paths[f])
	}
	return nil
}

// renderPaths maps each format to its output file. A single format with an
// explicit output uses it verbatim; otherwise files are named
// <base>.<format>, where base is the output with a known extension removed
// or the input without ".layout.json".
func renderPaths(output, input string, formats []render.Format) map[render.Format]string {
	paths := make(map[render.Format]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}

	base := output
	if base == "" {
		base = outputPath("", input, "")
	} else {
		for _, f := range render.Formats {
			if strings.HasSuffix(base, "."+string(f)) {
				base = strings.TrimSuffix(base, "."+string(f))
				break
			}
		}
	}
	for _, f := range formats {
		paths[f] = base + "." + string(f)
	}
	return paths
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
