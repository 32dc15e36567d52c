package render

import (
	"bytes"
	"context"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/graphanneal/pkg/graph"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

func testLayout() graph.Layout {
	return graph.Layout{
		Nodes: []graph.Node{{ID: "a", X: 0, Y: 0}, {ID: "b", Label: "Bee", X: 2, Y: 0}},
		Edges: []graph.Edge{{From: "a", To: "b"}},
	}
}

func TestSVG(t *testing.T) {
	out := string(SVG(testLayout(), Options{}))

	if !strings.Contains(out, `width="800" height="267"`) {
		t.Errorf("SVG() missing scaled dimensions:\n%s", out)
	}
	if got := strings.Count(out, "<circle"); got != 2 {
		t.Errorf("circles = %d, want 2", got)
	}
	if got := strings.Count(out, "<polygon"); got != 1 {
		t.Errorf("arrowheads = %d, want 1", got)
	}
	if !strings.Contains(out, ">Bee</text>") || !strings.Contains(out, ">a</text>") {
		t.Errorf("SVG() missing labels:\n%s", out)
	}
}

func TestSVGHideLabels(t *testing.T) {
	out := string(SVG(testLayout(), Options{HideLabels: true}))
	if strings.Contains(out, "<text") {
		t.Error("SVG() drew labels with HideLabels")
	}
}

func TestSVGSkipsZeroLengthEdges(t *testing.T) {
	l := graph.Layout{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}},
		Edges: []graph.Edge{{From: "a", To: "b"}},
	}
	out := string(SVG(l, Options{Size: 100}))
	if strings.Contains(out, "<line") {
		t.Error("SVG() drew an edge between coincident nodes")
	}
}

func TestArrow(t *testing.T) {
	x0, y0, x1, y1, head := arrow(0, 0, 2, 0)
	if x0 != 0.25 || y0 != 0 || x1 != 1.75 || y1 != 0 {
		t.Errorf("arrow() = (%v, %v) -> (%v, %v), want (0.25, 0) -> (1.75, 0)", x0, y0, x1, y1)
	}
	if head[0] != [2]float64{1.75, 0} {
		t.Errorf("tip = %v, want [1.75 0]", head[0])
	}
	for _, p := range head[1:] {
		if math.Abs(p[0]-(1.75-1.0/12)) > 1e-9 || math.Abs(math.Abs(p[1])-1.0/24) > 1e-9 {
			t.Errorf("barb = %v", p)
		}
	}
}

func TestDOT(t *testing.T) {
	l := testLayout()
	l.Nodes[1].Y = 1.5
	out := DOT(l, Options{})

	for _, want := range []string{
		"digraph G {",
		`"a" [label="a", pos="0,0!"];`,
		`"b" [label="Bee", pos="2,-1.5!"];`,
		`"a" -> "b";`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT() missing %q:\n%s", want, out)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in       string
		want     []Format
		wantCode errs.Code
	}{
		{in: "svg", want: []Format{FormatSVG}},
		{in: "svg, PNG,svg", want: []Format{FormatSVG, FormatPNG}},
		{in: "dot,gv.svg", want: []Format{FormatDOT, FormatGraphvizSVG}},
		{in: "pdf", wantCode: errs.ErrCodeUnsupported},
		{in: " , ", wantCode: errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormats(tt.in)
			if tt.wantCode != "" {
				if !errs.Is(err, tt.wantCode) {
					t.Errorf("ParseFormats() error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormats() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseFormats() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Render(ctx, graph.Layout{}, FormatSVG, Options{}); !errs.Is(err, errs.ErrCodeEmptyGraph) {
		t.Errorf("Render(empty) error = %v, want EMPTY_GRAPH", err)
	}
	if _, err := Render(ctx, testLayout(), Format("pdf"), Options{}); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("Render(pdf) error = %v, want UNSUPPORTED", err)
	}
}

func TestRenderGraphviz(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering in short mode")
	}
	ctx := context.Background()

	svg, err := Render(ctx, testLayout(), FormatGraphvizSVG, Options{})
	if err != nil {
		t.Fatalf("Render(gv.svg) error = %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("Render(gv.svg) did not produce SVG")
	}

	png, err := Render(ctx, testLayout(), FormatPNG, Options{})
	if err != nil {
		t.Fatalf("Render(png) error = %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("Render(png) did not produce a PNG")
	}
}
