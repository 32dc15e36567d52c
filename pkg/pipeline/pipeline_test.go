package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphanneal/pkg/cache"
	"github.com/matzehuels/graphanneal/pkg/config"
	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/model"
	"github.com/matzehuels/graphanneal/pkg/render"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	r := NewRunner(c, nil, log.New(io.Discard))
	t.Cleanup(func() { r.Close() })
	return r
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Seed = 1
	cfg.Restarts = 10
	cfg.Schedule.Steps = 2000
	return cfg
}

func testGraph() graph.Graph {
	return graph.Graph{
		Nodes: []graph.Node{{ID: "a", Label: "Alpha"}},
		Edges: []graph.Edge{{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "a", To: "c"}},
	}
}

func TestLayoutCaches(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()
	req := LayoutRequest{Graph: testGraph(), Config: testConfig(), AutoRank: true}

	first, err := r.Layout(ctx, req)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if first.CacheHit {
		t.Error("first Layout() reported a cache hit")
	}
	if first.Run.Steps == 0 {
		t.Error("first Layout() did not anneal")
	}

	second, err := r.Layout(ctx, req)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("second Layout() missed the cache")
	}
	if second.Layout.RunID != first.Layout.RunID || second.Layout.Energy != first.Layout.Energy {
		t.Errorf("cached layout = %+v, want %+v", second.Layout, first.Layout)
	}
	if second.GraphHash != first.GraphHash {
		t.Errorf("GraphHash = %q, want %q", second.GraphHash, first.GraphHash)
	}

	req.Refresh = true
	third, err := r.Layout(ctx, req)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if third.CacheHit {
		t.Error("Layout() with Refresh reported a cache hit")
	}
	if third.Layout.Energy != first.Layout.Energy {
		t.Errorf("refreshed energy = %v, want deterministic %v", third.Layout.Energy, first.Layout.Energy)
	}
}

func TestLayoutKeyCoversSettings(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()
	req := LayoutRequest{Graph: testGraph(), Config: testConfig(), AutoRank: true}
	if _, err := r.Layout(ctx, req); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*LayoutRequest)
	}{
		{"seed", func(q *LayoutRequest) { q.Config.Seed = 2 }},
		{"auto rank", func(q *LayoutRequest) { q.AutoRank = false }},
		{"weights", func(q *LayoutRequest) { q.Config.Weights.Length = 2 }},
		{"graph", func(q *LayoutRequest) { q.Graph.Edges = q.Graph.Edges[:2] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := req
			q.Graph.Edges = append([]graph.Edge(nil), req.Graph.Edges...)
			tt.mutate(&q)
			res, err := r.Layout(ctx, q)
			if err != nil {
				t.Fatalf("Layout() error = %v", err)
			}
			if res.CacheHit {
				t.Error("changed request hit the cache")
			}
		})
	}
}

func TestLayoutResult(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	res, err := r.Layout(context.Background(), LayoutRequest{Graph: testGraph(), Config: testConfig(), AutoRank: true})
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	l := res.Layout

	wantRanks := map[string]int{"a": 1, "b": 2, "c": 2}
	for id, want := range wantRanks {
		n, ok := l.Node(id)
		if !ok {
			t.Fatalf("node %q missing", id)
		}
		if n.Rank != want {
			t.Errorf("rank(%s) = %d, want %d", id, n.Rank, want)
		}
	}
	if n, _ := l.Node("a"); n.Label != "Alpha" {
		t.Errorf("label(a) = %q, want %q", n.Label, "Alpha")
	}
	if l.Variant != config.VariantThreshold || l.Seed != 1 || l.RunID == "" {
		t.Errorf("metadata = %q/%d/%q, want threshold/1/non-empty", l.Variant, l.Seed, l.RunID)
	}

	attrs, e, err := r.Analyze(l, testConfig().Evaluator())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if e != l.Energy || attrs != l.Attributes {
		t.Errorf("Analyze() = %+v, %v, want %+v, %v", attrs, e, l.Attributes, l.Energy)
	}
	if e != res.Run.Energy {
		t.Errorf("layout energy = %v, want run energy %v", e, res.Run.Energy)
	}
}

func TestLayoutWithoutAutoRank(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	res, err := r.Layout(context.Background(), LayoutRequest{Graph: testGraph(), Config: testConfig()})
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	for _, n := range res.Layout.Nodes {
		if n.Rank != 0 {
			t.Errorf("rank(%s) = %d, want 0", n.ID, n.Rank)
		}
	}
}

func TestLayoutObserverOnHit(t *testing.T) {
	r := testRunner(t)
	req := LayoutRequest{Graph: testGraph(), Config: testConfig()}
	if _, err := r.Layout(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	var calls []float64
	req.Observer = observerFunc(func(_ *model.Model, e float64) { calls = append(calls, e) })
	res, err := r.Layout(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != res.Layout.Energy {
		t.Errorf("observer calls = %v, want [%v]", calls, res.Layout.Energy)
	}
}

func TestLayoutCancelledNotCached(t *testing.T) {
	r := testRunner(t)
	req := LayoutRequest{Graph: testGraph(), Config: testConfig()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Layout(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Layout() error = %v, want context.Canceled", err)
	}
	if res == nil || len(res.Layout.Nodes) != 3 {
		t.Fatalf("Layout() result = %+v, want the partial layout", res)
	}

	again, err := r.Layout(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if again.CacheHit {
		t.Error("cancelled layout was cached")
	}
}

func TestLayoutErrors(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	bad := testConfig()
	bad.Schedule.MinTemp = 0

	tests := []struct {
		name string
		req  LayoutRequest
		code errs.Code
	}{
		{"empty graph", LayoutRequest{Config: testConfig()}, errs.ErrCodeEmptyGraph},
		{"self loop", LayoutRequest{Graph: graph.Graph{Edges: []graph.Edge{{From: "a", To: "a"}}}, Config: testConfig()}, errs.ErrCodeInvalidIndex},
		{"bad config", LayoutRequest{Graph: testGraph(), Config: bad}, errs.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Layout(context.Background(), tt.req)
			if !errs.Is(err, tt.code) {
				t.Errorf("Layout() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRenderCaches(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()
	res, err := r.Layout(ctx, LayoutRequest{Graph: testGraph(), Config: testConfig()})
	if err != nil {
		t.Fatal(err)
	}
	formats := []render.Format{render.FormatSVG, render.FormatDOT}

	first, hit, err := r.Render(ctx, res.Layout, formats, render.Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if hit {
		t.Error("first Render() reported a cache hit")
	}
	if len(first) != 2 || !bytes.HasPrefix(first[render.FormatDOT], []byte("digraph")) {
		t.Errorf("Render() artifacts = %d, dot = %.20q", len(first), first[render.FormatDOT])
	}

	second, hit, err := r.Render(ctx, res.Layout, formats, render.Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !hit {
		t.Error("second Render() missed the cache")
	}
	if !bytes.Equal(first[render.FormatSVG], second[render.FormatSVG]) {
		t.Error("cached SVG differs from the rendered one")
	}

	_, hit, err = r.Render(ctx, res.Layout, formats, render.Options{HideLabels: true})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("Render() with other options hit the cache")
	}
}

func TestRenderNoFormats(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	l := graph.Layout{Nodes: []graph.Node{{ID: "a"}}}
	if _, _, err := r.Render(context.Background(), l, nil, render.Options{}); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Render() error = %v, want INVALID_INPUT", err)
	}
}

type observerFunc func(*model.Model, float64)

func (f observerFunc) OnImprovement(m *model.Model, e float64) { f(m, e) }
