package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/graphanneal/pkg/cache"
	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/observability"
	"github.com/matzehuels/graphanneal/pkg/render"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Render draws l in every requested format. The boolean reports whether all
// artifacts came from the cache.
func (r *Runner) Render(ctx context.Context, l graph.Layout, formats []render.Format, opts render.Options) (map[render.Format][]byte, bool, error) {
	if len(formats) == 0 {
		return nil, false, errs.New(errs.ErrCodeInvalidInput, "no output format given")
	}
	// Only geometry and labels affect the drawing, not the run metadata.
	layoutHash, err := cache.HashJSON(l.Graph())
	if err != nil {
		return nil, false, fmt.Errorf("hash layout: %w", err)
	}

	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnRenderStart(ctx, names)

	artifacts := make(map[render.Format][]byte, len(formats))
	allHit := true
	for _, f := range formats {
		key := r.Keyer.ArtifactKey(layoutHash, cache.ArtifactKeyOpts{
			Format:     string(f),
			Size:       opts.Size,
			Padding:    opts.Padding,
			HideLabels: opts.HideLabels,
		})

		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			artifacts[f] = data
			continue
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
		allHit = false

		data, err := render.Render(ctx, l, f, opts)
		if err != nil {
			hooks.OnRenderComplete(ctx, names, time.Since(start), err)
			return nil, false, fmt.Errorf("render %s: %w", f, err)
		}
		artifacts[f] = data

		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}

	hooks.OnRenderComplete(ctx, names, time.Since(start), nil)
	r.Logger.Debug("rendered outputs", "formats", names, "cached", allHit, "duration", time.Since(start))
	return artifacts, allHit, nil
}
