package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphanneal/pkg/model"
)

// heartbeat is the interval between "still searching" log lines.
const heartbeat = 10 * time.Second

// annealLogger is an anneal.Observer that logs the search. It logs the
// starting energy, every improvement at debug level, and a periodic
// heartbeat so long runs show they are alive.
//
// It is not safe for concurrent use; one run drives it sequentially.
type annealLogger struct {
	logger   *log.Logger
	prog     *progress
	onUpdate func(energy float64) // optional, e.g. a spinner message

	calls     int
	first     float64
	last      float64
	lastLog   time.Time
	nodeCount int
}

// newAnnealLogger creates an observer logging to the logger in ctx.
func newAnnealLogger(ctx context.Context) *annealLogger {
	logger := loggerFromContext(ctx)
	return &annealLogger{logger: logger, prog: newProgress(logger)}
}

// OnImprovement implements anneal.Observer.
func (a *annealLogger) OnImprovement(snapshot *model.Model, energy float64) {
	a.calls++
	switch {
	case a.calls == 1:
		a.first = energy
		a.nodeCount = snapshot.NodeCount()
		a.logger.Debugf("Initial: energy %.3f (%d nodes)", energy, a.nodeCount)
		a.lastLog = time.Now()
	default:
		a.logger.Debugf("Improved: energy %.3f (↓%.3f)", energy, a.last-energy)
		if time.Since(a.lastLog) >= heartbeat {
			elapsed := a.prog.elapsed().Truncate(time.Second)
			a.logger.Infof("Annealing... %v elapsed, energy %.3f", elapsed, energy)
			a.lastLog = time.Now()
		}
	}
	a.last = energy
	if a.onUpdate != nil {
		a.onUpdate(energy)
	}
}

// done logs the final energy and warns about remaining hard defects.
func (a *annealLogger) done(energy float64, hardDefects int) {
	a.prog.done("Layout complete: energy %.3f", energy)
	if a.calls > 1 {
		a.logger.Debugf("Best: energy %.3f from %.3f after %d improvements", energy, a.first, a.calls-1)
	}
	if hardDefects > 0 {
		a.logger.Warn("Layout still has overlaps, crossings or nodes on edges; try more --steps or another --seed", "defects", hardDefects)
	}
}
