package render

import (
	"bytes"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/graphanneal/pkg/graph"
)

// SVG draws l as an SVG document.
func SVG(l graph.Layout, opts Options) []byte {
	var buf bytes.Buffer
	WriteSVG(&buf, l, opts)
	return buf.Bytes()
}

// WriteSVG draws l as an SVG document to w.
func WriteSVG(w io.Writer, l graph.Layout, opts Options) {
	opts = opts.withDefaults()
	v := newViewport(l, opts)

	canvas := svg.New(w)
	canvas.Start(v.width, v.height)
	canvas.Rect(0, 0, v.width, v.height, "fill:"+background)

	positions := make(map[string]graph.Node, len(l.Nodes))
	for _, n := range l.Nodes {
		positions[n.ID] = n
	}

	edgeStyle := fmt.Sprintf("stroke:%s;stroke-width:2", edgeColor)
	headStyle := fmt.Sprintf("fill:%s;stroke:%s", edgeColor, edgeColor)
	for _, e := range l.Edges {
		a, b := positions[e.From], positions[e.To]
		if a.X == b.X && a.Y == b.Y {
			continue
		}
		ax, ay, bx, by, head := arrow(a.X, a.Y, b.X, b.Y)
		canvas.Line(v.sx(ax), v.sy(ay), v.sx(bx), v.sy(by), edgeStyle)

		xs := make([]int, len(head))
		ys := make([]int, len(head))
		for i, p := range head {
			xs[i], ys[i] = v.sx(p[0]), v.sy(p[1])
		}
		canvas.Polygon(xs, ys, headStyle)
	}

	nodeStyle := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:2", nodeFill, nodeColor)
	textStyle := fmt.Sprintf("fill:%s;font-family:%s;font-size:%dpx;text-anchor:middle;dominant-baseline:central",
		textColor, fontFamily, max(1, int(v.scale/8)))
	radius := max(1, int(math.Round(v.scale/4)))
	for _, n := range l.Nodes {
		x, y := v.sx(n.X), v.sy(n.Y)
		canvas.Circle(x, y, radius, nodeStyle)
		if !opts.HideLabels {
			canvas.Text(x, y, n.DisplayLabel(), textStyle)
		}
	}
	canvas.End()
}

// arrow shortens the segment a->b by a quarter unit at both ends and returns
// the trimmed endpoints plus the arrowhead triangle at b.
func arrow(ax, ay, bx, by float64) (x0, y0, x1, y1 float64, head [3][2]float64) {
	angle := math.Atan2(by-ay, bx-ax)
	cos, sin := math.Cos(angle), math.Sin(angle)
	x0, y0 = ax+cos/4, ay+sin/4
	x1, y1 = bx-cos/4, by-sin/4

	perp := angle + math.Pi/2
	pc, ps := math.Cos(perp), math.Sin(perp)
	cx, cy := x1-cos/12, y1-sin/12
	head = [3][2]float64{
		{x1, y1},
		{cx + pc/24, cy + ps/24},
		{cx - pc/24, cy - ps/24},
	}
	return x0, y0, x1, y1, head
}

// viewport maps layout units to pixels.
type viewport struct {
	minX, minY    float64
	scale         float64
	width, height int
}

func newViewport(l graph.Layout, opts Options) viewport {
	minX, minY, maxX, maxY := l.Bounds()
	minX, minY = minX-opts.Padding, minY-opts.Padding
	maxX, maxY = maxX+opts.Padding, maxY+opts.Padding

	size := float64(opts.Size)
	scale := min(size/(maxX-minX), size/(maxY-minY))
	v := viewport{minX: minX, minY: minY, scale: scale}
	v.width, v.height = v.sx(maxX), v.sy(maxY)
	return v
}

func (v viewport) sx(x float64) int { return int(math.Round((x - v.minX) * v.scale)) }
func (v viewport) sy(y float64) int { return int(math.Round((y - v.minY) * v.scale)) }
