package anneal

import (
	"math"

	"github.com/matzehuels/graphanneal/pkg/model"
)

// RandomStart searches for a better starting layout by scattering every node
// over a ceil(sqrt(n)) x ceil(sqrt(n)) integer grid, trials times. The current
// layout of m competes as the first candidate, so the result is never worse
// than the input. The winner is written into m and its energy returned.
func RandomStart(m *model.Model, eval Evaluator, src Source, trials int) float64 {
	best := m.Clone()
	bestEnergy := eval.Energy(m)

	n := m.NodeCount()
	side := int(math.Ceil(math.Sqrt(float64(n))))
	trial := m.Clone()
	for range trials {
		for i := range n {
			x := float64(src.IntN(side))
			y := float64(src.IntN(side))
			trial.SetPos(i, x, y)
		}
		if e := eval.Energy(trial); e < bestEnergy {
			bestEnergy = e
			copyPositions(best, trial)
		}
	}

	copyPositions(m, best)
	return bestEnergy
}

// copyPositions copies coordinates between models cloned from one another.
func copyPositions(dst, src *model.Model) {
	for i := range src.NodeCount() {
		p := src.Pos(i)
		dst.SetPos(i, p.X, p.Y)
	}
}
