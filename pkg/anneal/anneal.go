// Package anneal searches for a low-energy node placement by simulated
// annealing.
//
// # Search
//
// Each step moves one randomly chosen node to a random lattice point (see
// [Mover]) and rescores the whole layout. Moves that do not raise the energy
// are always kept. Moves that raise it by Δ are kept with probability
// exp(-Δ/T), where the temperature T decays exponentially from
// [Options.MaxTemp] to [Options.MinTemp] over [Options.Steps] steps; rejected
// moves are reverted through a single [Undo] record.
//
// The best layout seen is snapshotted on every strict improvement and handed
// to the [Observer]. The run stops early once the best energy reaches zero.
// Whatever happens, the best layout found is written back into the caller's
// model before [Anneal] returns.
//
// # Reproducibility
//
// All randomness comes from one [Source] owned by the run. With equal inputs
// and an equal [Options.Seed], two runs visit the same layouts in the same
// order and notify the observer with the same energies.
//
// # Concurrency
//
// A run is single-threaded and the observer runs inline, blocking the loop.
// Separate runs share nothing and may execute concurrently as long as each
// has its own model and source.
package anneal

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphanneal/pkg/model"
	"github.com/matzehuels/graphanneal/pkg/observability"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Default schedule values.
const (
	DefaultMaxTemp  = 100.0
	DefaultMinTemp  = 0.1
	DefaultSteps    = 100000
	DefaultRestarts = 1000
)

// Evaluator scores a layout. Lower is better. energy.Evaluator satisfies it.
type Evaluator interface {
	Energy(m *model.Model) float64
}

// Observer is notified with an independent snapshot each time the best
// energy strictly improves, and once with the starting layout.
type Observer interface {
	OnImprovement(snapshot *model.Model, energy float64)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(snapshot *model.Model, energy float64)

// OnImprovement calls f.
func (f ObserverFunc) OnImprovement(snapshot *model.Model, energy float64) { f(snapshot, energy) }

// Options configures a run.
type Options struct {
	MaxTemp  float64 // Starting temperature
	MinTemp  float64 // Final temperature; must not exceed MaxTemp
	Steps    int     // Number of proposed moves
	Seed     uint64  // Seed for NewSource; ignored when Source is set
	Restarts int     // Random-restart trials before the search; 0 disables
	Lattice  Lattice // Grid for proposed coordinates

	// Source overrides the seeded generator. It is consumed sequentially and
	// must not be shared with a concurrent run.
	Source Source

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// DefaultOptions returns the standard schedule on the threshold lattice.
func DefaultOptions() Options {
	return Options{
		MaxTemp:  DefaultMaxTemp,
		MinTemp:  DefaultMinTemp,
		Steps:    DefaultSteps,
		Restarts: DefaultRestarts,
		Lattice:  ThresholdLattice(),
	}
}

// Validate checks the schedule, restart count and lattice.
func (o Options) Validate() error {
	if o.MaxTemp <= 0 || math.IsNaN(o.MaxTemp) || math.IsInf(o.MaxTemp, 0) {
		return errs.New(errs.ErrCodeInvalidConfig, "max temperature must be positive and finite, got %v", o.MaxTemp)
	}
	if o.MinTemp <= 0 || math.IsNaN(o.MinTemp) {
		return errs.New(errs.ErrCodeInvalidConfig, "min temperature must be positive, got %v", o.MinTemp)
	}
	if o.MinTemp > o.MaxTemp {
		return errs.New(errs.ErrCodeInvalidConfig, "min temperature %v exceeds max temperature %v", o.MinTemp, o.MaxTemp)
	}
	if o.Steps < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "steps must be non-negative, got %d", o.Steps)
	}
	if o.Restarts < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "restarts must be non-negative, got %d", o.Restarts)
	}
	return o.Lattice.Validate()
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard)
}

// Temperature returns the temperature at step i of a schedule of the given
// length: maxTemp * (minTemp/maxTemp)^(i/steps). A zero-length schedule stays
// at maxTemp.
func Temperature(i, steps int, maxTemp, minTemp float64) float64 {
	if steps <= 0 {
		return maxTemp
	}
	return maxTemp * math.Exp(math.Log(minTemp/maxTemp)*float64(i)/float64(steps))
}

// Result summarizes a run.
type Result struct {
	Energy        float64       // Best energy; the model holds this layout
	InitialEnergy float64       // Energy after the random-restart warm start
	Steps         int           // Steps actually performed
	Accepted      int           // Moves kept
	Rejected      int           // Moves reverted
	Improvements  int           // Strict improvements of the best energy
	EarlyExit     bool          // Stopped because the best energy reached zero
	Duration      time.Duration // Wall time of the run
}

// Anneal minimizes eval over the node positions of m.
//
// On return m holds the best layout found. obs may be nil. The context is
// checked once at the top of every step; on cancellation the best layout is
// still written back and ctx.Err() is returned alongside the partial result.
// Invalid options return an [errs.ErrCodeInvalidConfig] error and leave m
// untouched.
func Anneal(ctx context.Context, m *model.Model, eval Evaluator, opts Options, obs Observer) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if m == nil || m.NodeCount() == 0 {
		return Result{}, errs.New(errs.ErrCodeEmptyGraph, "nothing to lay out")
	}
	if obs == nil {
		obs = ObserverFunc(func(*model.Model, float64) {})
	}

	start := time.Now()
	logger := opts.logger()
	hooks := observability.Anneal()
	hooks.OnAnnealStart(ctx, m.NodeCount(), m.EdgeCount(), opts.Steps)

	src := opts.Source
	if src == nil {
		src = NewSource(opts.Seed)
	}
	mover := Mover{Source: src, Lattice: opts.Lattice}

	if opts.Restarts > 0 {
		e := RandomStart(m, eval, src, opts.Restarts)
		logger.Debug("warm start", "trials", opts.Restarts, "energy", e)
	}

	current := eval.Energy(m)
	best := m.Clone()
	res := Result{Energy: current, InitialEnergy: current}
	obs.OnImprovement(best.Clone(), current)
	logger.Debug("annealing", "nodes", m.NodeCount(), "edges", m.EdgeCount(), "steps", opts.Steps, "energy", current)

	var (
		undo Undo
		err  error
	)
	for i := 0; i < opts.Steps; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		res.Steps++

		temp := Temperature(i, opts.Steps, opts.MaxTemp, opts.MinTemp)
		mover.Propose(m, &undo)
		next := eval.Energy(m)

		if delta := next - current; delta > 0 && math.Exp(-delta/temp) < src.Float64() {
			mover.Revert(m, &undo)
			res.Rejected++
			continue
		}
		current = next
		res.Accepted++

		if current < res.Energy {
			res.Energy = current
			res.Improvements++
			copyPositions(best, m)
			obs.OnImprovement(best.Clone(), current)
			hooks.OnImprovement(ctx, i, current)
			if current <= 0 {
				res.EarlyExit = true
				break
			}
		}
	}

	copyPositions(m, best)
	res.Duration = time.Since(start)
	hooks.OnAnnealComplete(ctx, res.Steps, res.Energy, res.Duration, err)
	logger.Debug("annealing done",
		"energy", res.Energy,
		"steps", res.Steps,
		"accepted", res.Accepted,
		"improvements", res.Improvements,
		"elapsed", res.Duration.Round(time.Millisecond))
	return res, err
}
