package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/model"
	"github.com/matzehuels/graphanneal/pkg/pipeline"
)

// Plot dimensions used until the terminal reports its size.
const (
	defaultPlotWidth  = 60
	defaultPlotHeight = 20
)

var (
	plotBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	plotNodeStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	plotEdgeStyle   = lipgloss.NewStyle().Foreground(colorDim)
	sparkStyle      = lipgloss.NewStyle().Foreground(colorGreen)
)

// watchOpts holds the command-line flags for the watch command.
type watchOpts struct {
	output   string
	autoRank bool
	refresh  bool
	config   configFlags
	cache    cacheOpts
}

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	opts := watchOpts{autoRank: true}

	cmd := &cobra.Command{
		Use:   "watch [graph]",
		Short: "Anneal a graph while drawing the best layout live",
		Long: `Anneal a graph while drawing the best layout live.

The terminal shows the energy history and a character plot of the best
layout found so far. Press q to stop early; the best layout is still
written.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeGraphFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <graph>.layout.json)")
	cmd.Flags().BoolVar(&opts.autoRank, "auto-rank", opts.autoRank, "derive ranks from edge directions when the graph has none")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", true, "recompute even when a cached layout exists")
	opts.config.register(cmd)
	opts.cache.register(cmd)

	return cmd
}

// watchResult carries the outcome of the background run.
type watchResult struct {
	res *pipeline.LayoutResult
	err error
}

func (c *CLI) runWatch(cmd *cobra.Command, input string, opts watchOpts) error {
	cfg, err := opts.config.resolve(cmd)
	if err != nil {
		return err
	}
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	p := tea.NewProgram(NewWatchModel(fmt.Sprintf("%s (%s)", input, cfg.Variant), nodeLabels(g), cancel))

	results := make(chan watchResult, 1)
	go func() {
		res, err := runner.Layout(ctx, pipeline.LayoutRequest{
			Graph:    g,
			Config:   cfg,
			AutoRank: opts.autoRank,
			Refresh:  opts.refresh,
			Observer: programObserver{p},
		})
		results <- watchResult{res, err}
		p.Send(WatchDoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-results
		return fmt.Errorf("watch: %w", err)
	}
	cancel()
	out := <-results

	cancelled := errors.Is(out.err, context.Canceled) && out.res != nil
	if out.err != nil && !cancelled {
		return fmt.Errorf("compute layout: %w", out.err)
	}

	path := outputPath(opts.output, input, ".layout.json")
	if err := graph.WriteLayoutFile(out.res.Layout, path); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	if cancelled {
		printWarning("Stopped, wrote best layout so far")
	} else {
		printSuccess("Layout complete")
	}
	printFile(path)
	printStats(len(out.res.Layout.Nodes), len(out.res.Layout.Edges), out.res.Layout.Energy, out.res.CacheHit)
	return nil
}

// nodeLabels returns display labels in model index order.
func nodeLabels(g graph.Graph) []string {
	explicit := g.Labels()
	ids := g.IDs()
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = id
		if l, ok := explicit[id]; ok {
			labels[i] = l
		}
	}
	return labels
}

// =============================================================================
// Messages
// =============================================================================

// ImprovementMsg reports a new best layout.
type ImprovementMsg struct {
	Snapshot *model.Model
	Energy   float64
}

// WatchDoneMsg reports the end of the run.
type WatchDoneMsg struct {
	Err error
}

// programObserver forwards improvements to a running program. Send is
// goroutine-safe and returns once the program has exited.
type programObserver struct {
	program *tea.Program
}

func (o programObserver) OnImprovement(snapshot *model.Model, energy float64) {
	o.program.Send(ImprovementMsg{Snapshot: snapshot, Energy: energy})
}

// =============================================================================
// WatchModel
// =============================================================================

// WatchModel is the bubbletea model of the watch view.
type WatchModel struct {
	Title    string
	Labels   []string
	History  []float64
	Best     *model.Model
	Done     bool
	Stopping bool
	Err      error
	Width    int
	Height   int

	start  time.Time
	cancel context.CancelFunc
}

// NewWatchModel creates a watch model. cancel stops the run when the user
// quits.
func NewWatchModel(title string, labels []string, cancel context.CancelFunc) WatchModel {
	return WatchModel{
		Title:  title,
		Labels: labels,
		Width:  defaultPlotWidth,
		Height: defaultPlotHeight,
		start:  time.Now(),
		cancel: cancel,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return nil
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.Done {
				return m, tea.Quit
			}
			m.Stopping = true
			if m.cancel != nil {
				m.cancel()
			}
		}
	case tea.WindowSizeMsg:
		m.Width = max(msg.Width-4, 10)
		m.Height = max(msg.Height-8, 5)
	case ImprovementMsg:
		m.Best = msg.Snapshot
		m.History = append(m.History, msg.Energy)
	case WatchDoneMsg:
		m.Done = true
		m.Err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Annealing " + m.Title))
	b.WriteString("\n")

	energy := "–"
	if n := len(m.History); n > 0 {
		energy = formatFloat(m.History[n-1])
	}
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
		StyleDim.Render("energy"), StyleNumber.Render(energy),
		StyleDim.Render("improvements"), StyleNumber.Render(fmt.Sprint(max(len(m.History)-1, 0))),
		StyleDim.Render("elapsed"), StyleValue.Render(time.Since(m.start).Truncate(100*time.Millisecond).String()))
	b.WriteString(sparkStyle.Render(sparkline(m.History, m.Width)))
	b.WriteString("\n")

	if m.Best != nil {
		b.WriteString(plotBorderStyle.Render(strings.Join(plotLayout(m.Best, m.Labels, m.Width, m.Height), "\n")))
		b.WriteString("\n")
	}

	switch {
	case m.Done:
	case m.Stopping:
		b.WriteString(StyleWarning.Render("stopping..."))
		b.WriteString("\n")
	default:
		b.WriteString(StyleDim.Render("q stop"))
		b.WriteString("\n")
	}
	return b.String()
}

// sparkBlocks are the levels of a sparkline, lowest first.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws the last width values, scaled between their minimum and
// maximum.
func sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[len(values)-width:]
	}
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}

	out := make([]rune, len(values))
	for i, v := range values {
		level := 0
		if hi > lo {
			level = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1)))
		}
		out[i] = sparkBlocks[level]
	}
	return string(out)
}

// plotLayout draws m on a width×height character grid. Nodes show the first
// rune of their label and edges are dotted. Y grows downward, as in SVG
// output.
func plotLayout(m *model.Model, labels []string, width, height int) []string {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range m.NodeCount() {
		n := m.Node(i)
		minX, maxX = min(minX, n.X), max(maxX, n.X)
		minY, maxY = min(minY, n.Y), max(maxY, n.Y)
	}
	cell := func(x, y float64) (int, int) {
		c, r := 0, 0
		if maxX > minX {
			c = int(math.Round((x - minX) / (maxX - minX) * float64(width-1)))
		}
		if maxY > minY {
			r = int(math.Round((y - minY) / (maxY - minY) * float64(height-1)))
		}
		return c, r
	}

	edges := make([][]bool, height)
	for r := range edges {
		edges[r] = make([]bool, width)
	}
	for i := range m.EdgeCount() {
		e := m.Edge(i)
		c0, r0 := cell(m.Node(e.A).X, m.Node(e.A).Y)
		c1, r1 := cell(m.Node(e.B).X, m.Node(e.B).Y)
		n := max(abs(c1-c0), abs(r1-r0))
		for s := 1; s < n; s++ {
			c := c0 + int(math.Round(float64((c1-c0)*s)/float64(n)))
			r := r0 + int(math.Round(float64((r1-r0)*s)/float64(n)))
			grid[r][c] = '·'
			edges[r][c] = true
		}
	}

	nodes := make([][]bool, height)
	for r := range nodes {
		nodes[r] = make([]bool, width)
	}
	for i := range m.NodeCount() {
		c, r := cell(m.Node(i).X, m.Node(i).Y)
		mark := '●'
		if i < len(labels) && labels[i] != "" {
			mark = []rune(labels[i])[0]
		}
		grid[r][c] = mark
		nodes[r][c] = true
	}

	lines := make([]string, height)
	for r, row := range grid {
		var b strings.Builder
		for c, ch := range row {
			switch {
			case nodes[r][c]:
				b.WriteString(plotNodeStyle.Render(string(ch)))
			case edges[r][c]:
				b.WriteString(plotEdgeStyle.Render(string(ch)))
			default:
				b.WriteRune(ch)
			}
		}
		lines[r] = b.String()
	}
	return lines
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
