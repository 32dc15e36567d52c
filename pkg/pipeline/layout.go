package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/graphanneal/pkg/analyze"
	"github.com/matzehuels/graphanneal/pkg/anneal"
	"github.com/matzehuels/graphanneal/pkg/cache"
	"github.com/matzehuels/graphanneal/pkg/config"
	"github.com/matzehuels/graphanneal/pkg/energy"
	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/model"
	"github.com/matzehuels/graphanneal/pkg/observability"
)

// LayoutRequest describes one layout run.
type LayoutRequest struct {
	Graph  graph.Graph
	Config config.Config

	// AutoRank derives ranks from edge directions when the graph has none.
	AutoRank bool

	// Refresh skips the cache lookup. The new result is still stored.
	Refresh bool

	// Observer receives every improvement of a fresh run, or the cached
	// layout once on a hit. Nil is allowed.
	Observer anneal.Observer
}

// LayoutResult is the outcome of [Runner.Layout].
type LayoutResult struct {
	Layout    graph.Layout
	GraphHash string
	CacheHit  bool
	Run       anneal.Result // zero on a cache hit
}

// layoutSettings is everything besides the graph that changes a layout.
type layoutSettings struct {
	Config   config.Config `json:"config"`
	AutoRank bool          `json:"auto_rank"`
}

// Layout computes or fetches the layout for req.
//
// When the run is cancelled the best layout found so far is returned along
// with the context error. Such partial layouts are never cached.
func (r *Runner) Layout(ctx context.Context, req LayoutRequest) (*LayoutResult, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	m, ids, err := req.Graph.ToModel()
	if err != nil {
		return nil, err
	}

	graphHash, err := cache.HashJSON(req.Graph)
	if err != nil {
		return nil, fmt.Errorf("hash graph: %w", err)
	}
	key := r.Keyer.LayoutKey(graphHash, layoutSettings{Config: req.Config, AutoRank: req.AutoRank})

	if !req.Refresh {
		if l, ok := r.cachedLayout(ctx, key); ok {
			r.Logger.Debug("layout cache hit", "key", key)
			if req.Observer != nil {
				if cm, _, err := l.ToModel(); err == nil {
					req.Observer.OnImprovement(cm, l.Energy)
				}
			}
			return &LayoutResult{Layout: l, GraphHash: graphHash, CacheHit: true}, nil
		}
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnLayoutStart(ctx, req.Config.Variant, m.NodeCount())

	if req.AutoRank && !req.Graph.HasRanks() {
		if !model.AssignRanks(m) {
			r.Logger.Warn("graph has a cycle, ranks left unconstrained")
		}
	}

	opts := req.Config.AnnealOptions()
	opts.Logger = r.Logger
	eval := req.Config.Evaluator()

	run, runErr := anneal.Anneal(ctx, m, eval, opts, req.Observer)
	if runErr != nil && !isCancel(runErr) {
		hooks.OnLayoutComplete(ctx, req.Config.Variant, time.Since(start), runErr)
		return nil, runErr
	}

	l, err := r.export(m, ids, eval, req, run)
	if err != nil {
		hooks.OnLayoutComplete(ctx, req.Config.Variant, time.Since(start), err)
		return nil, err
	}
	hooks.OnLayoutComplete(ctx, req.Config.Variant, time.Since(start), runErr)

	res := &LayoutResult{Layout: l, GraphHash: graphHash, Run: run}
	if runErr != nil {
		return res, runErr
	}

	if data, err := graph.MarshalLayout(l); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeLayout, len(data))
		}
	}

	r.Logger.Info("computed layout",
		"nodes", m.NodeCount(),
		"edges", m.EdgeCount(),
		"energy", run.Energy,
		"steps", run.Steps,
		"duration", run.Duration.Round(time.Millisecond))
	return res, nil
}

func (r *Runner) cachedLayout(ctx context.Context, key string) (graph.Layout, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyTypeLayout)
		return graph.Layout{}, false
	}
	l, err := graph.UnmarshalLayout(data)
	if err != nil {
		// A corrupt entry is recomputed and overwritten.
		observability.Cache().OnCacheMiss(ctx, keyTypeLayout)
		return graph.Layout{}, false
	}
	observability.Cache().OnCacheHit(ctx, keyTypeLayout)
	return l, true
}

func (r *Runner) export(m *model.Model, ids []string, eval energy.Evaluator, req LayoutRequest, run anneal.Result) (graph.Layout, error) {
	l, err := graph.ExportLayout(m, ids)
	if err != nil {
		return graph.Layout{}, err
	}
	l.SetLabels(req.Graph.Labels())
	l.Variant = req.Config.Variant
	l.Seed = req.Config.Seed
	l.Steps = run.Steps
	l.Attributes, l.Energy = eval.Score(m)
	return l, nil
}

// Analyze scores a stored layout under eval.
func (r *Runner) Analyze(l graph.Layout, eval energy.Evaluator) (analyze.Attributes, float64, error) {
	m, _, err := l.ToModel()
	if err != nil {
		return analyze.Attributes{}, 0, err
	}
	attrs, e := eval.Score(m)
	return attrs, e, nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
