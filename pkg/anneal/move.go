package anneal

import (
	"math"

	"github.com/matzehuels/graphanneal/pkg/model"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Lattice is the grid from which candidate coordinates are drawn. Each axis
// takes one of Size values: 0, Step, 2*Step, ..., (Size-1)*Step.
type Lattice struct {
	Size int     `json:"size" toml:"size"`
	Step float64 `json:"step" toml:"step"`
}

// ThresholdLattice returns the half-unit grid 0, 0.5, ..., 4.5.
func ThresholdLattice() Lattice { return Lattice{Size: 10, Step: 0.5} }

// ExactLattice returns the integer grid 0, 1, ..., 9.
func ExactLattice() Lattice { return Lattice{Size: 10, Step: 1} }

// Validate requires a positive size and step.
func (l Lattice) Validate() error {
	if l.Size <= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "lattice size must be positive, got %d", l.Size)
	}
	if !(l.Step > 0) || math.IsInf(l.Step, 1) {
		return errs.New(errs.ErrCodeInvalidConfig, "lattice step must be positive and finite, got %v", l.Step)
	}
	return nil
}

// Extent returns the largest coordinate the lattice can produce.
func (l Lattice) Extent() float64 { return float64(l.Size-1) * l.Step }

func (l Lattice) draw(src Source) float64 {
	return float64(src.IntN(l.Size)) * l.Step
}

// Undo remembers the single most recent move so it can be reverted.
type Undo struct {
	Node  int
	X, Y  float64
	Valid bool
}

// Mover relocates one node at a time to a random lattice point.
type Mover struct {
	Source  Source
	Lattice Lattice
}

// Propose moves a uniformly chosen node to a fresh lattice position and
// records its previous position in u, overwriting any earlier record. The
// node index is drawn first, then x, then y. It returns the moved node.
func (mv Mover) Propose(m *model.Model, u *Undo) int {
	i := mv.Source.IntN(m.NodeCount())
	prev := m.Node(i)
	*u = Undo{Node: i, X: prev.X, Y: prev.Y, Valid: true}

	x := mv.Lattice.draw(mv.Source)
	y := mv.Lattice.draw(mv.Source)
	m.SetPos(i, x, y)
	return i
}

// Revert restores the position recorded in u and invalidates it. It reports
// false, leaving m untouched, when u holds no move.
func (mv Mover) Revert(m *model.Model, u *Undo) bool {
	if !u.Valid {
		return false
	}
	m.SetPos(u.Node, u.X, u.Y)
	u.Valid = false
	return true
}
