// Package render draws computed layouts.
//
// Two renderers are provided:
//
//   - [SVG] draws the layout directly: nodes as labelled circles, edges as
//     arrows shortened so they stop at the node outline.
//   - [DOT] emits a Graphviz graph with every node pinned to its computed
//     position. [GraphvizSVG] and [PNG] run it through the neato engine.
//
// Layout coordinates are abstract units; one unit is the distance between
// neighbouring integer lattice points. Nodes are half a unit wide.
//
//	svg, _ := render.Render(ctx, layout, render.FormatSVG, render.Options{})
package render

import (
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/graphanneal/pkg/graph"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatSVG         Format = "svg"
	FormatPNG         Format = "png"
	FormatDOT         Format = "dot"
	FormatGraphvizSVG Format = "gv.svg"
)

// Formats lists the supported formats.
var Formats = []Format{FormatSVG, FormatPNG, FormatDOT, FormatGraphvizSVG}

// Colors shared by all renderers.
const (
	background = "#FFFFFF"
	nodeFill   = "#FFEBD3"
	nodeColor  = "#00283F"
	edgeColor  = "#00283F"
	textColor  = "#00283F"
	fontFamily = "Helvetica"
)

// Options configures rendering.
type Options struct {
	// Size bounds the width and height of SVG output in pixels. The layout is
	// scaled uniformly to fit. Default 800.
	Size int

	// Padding is the margin around the outermost nodes, in layout units.
	// Default 0.5.
	Padding float64

	// HideLabels omits node labels.
	HideLabels bool
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 800
	}
	if o.Padding <= 0 {
		o.Padding = 0.5
	}
	return o
}

// ParseFormats splits a comma-separated format list, dropping duplicates.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		if !slices.Contains(Formats, f) {
			return nil, errs.New(errs.ErrCodeUnsupported, "unsupported format %q", f)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no output format given")
	}
	return out, nil
}

// Render produces l in the given format.
func Render(ctx context.Context, l graph.Layout, format Format, opts Options) ([]byte, error) {
	if len(l.Nodes) == 0 {
		return nil, errs.New(errs.ErrCodeEmptyGraph, "layout has no nodes")
	}
	switch format {
	case FormatSVG:
		return SVG(l, opts), nil
	case FormatDOT:
		return []byte(DOT(l, opts)), nil
	case FormatGraphvizSVG:
		return GraphvizSVG(ctx, DOT(l, opts))
	case FormatPNG:
		return PNG(ctx, DOT(l, opts))
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported format %q", format)
	}
}
