package anneal

import (
	"testing"

	"github.com/matzehuels/graphanneal/pkg/energy"
	"github.com/matzehuels/graphanneal/pkg/model"
)

// scripted replays fixed draws.
type scripted struct {
	ints   []int
	floats []float64
}

func (s *scripted) IntN(n int) int {
	v := s.ints[0] % n
	s.ints = s.ints[1:]
	return v
}

func (s *scripted) Float64() float64 {
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func TestProposeDrawOrder(t *testing.T) {
	m := triangle(t)
	src := &scripted{ints: []int{2, 3, 7}}
	mv := Mover{Source: src, Lattice: ThresholdLattice()}

	var u Undo
	if got := mv.Propose(m, &u); got != 2 {
		t.Fatalf("Propose() = %d, want 2", got)
	}
	if got := m.Node(2); got.X != 1.5 || got.Y != 3.5 {
		t.Errorf("Node(2) = %+v, want (1.5, 3.5)", got)
	}
	if !u.Valid || u.Node != 2 || u.X != 0 || u.Y != 0 {
		t.Errorf("Undo = %+v, want valid record of node 2 at origin", u)
	}
}

func TestProposeRevertIdentity(t *testing.T) {
	m := square(t)
	m.SetPos(1, 2, 3)
	before := m.Clone()

	for _, lat := range []Lattice{ThresholdLattice(), ExactLattice()} {
		mv := Mover{Source: NewSource(5), Lattice: lat}
		var u Undo
		for range 100 {
			mv.Propose(m, &u)
			if !mv.Revert(m, &u) {
				t.Fatal("Revert() = false after Propose()")
			}
			if !m.Equal(before) {
				t.Fatalf("model changed after propose/revert with lattice %+v", lat)
			}
		}
	}
}

func TestRevertWithoutMove(t *testing.T) {
	m := triangle(t)
	before := m.Clone()
	mv := Mover{Source: NewSource(1), Lattice: ExactLattice()}

	var u Undo
	if mv.Revert(m, &u) {
		t.Error("Revert() on empty record = true, want false")
	}
	mv.Propose(m, &u)
	mv.Revert(m, &u)
	if mv.Revert(m, &u) {
		t.Error("second Revert() = true, want false")
	}
	if !m.Equal(before) {
		t.Error("model changed")
	}
}

func TestProposeStaysOnLattice(t *testing.T) {
	m := square(t)
	lat := ThresholdLattice()
	mv := Mover{Source: NewSource(11), Lattice: lat}

	var u Undo
	for range 500 {
		i := mv.Propose(m, &u)
		n := m.Node(i)
		for _, c := range []float64{n.X, n.Y} {
			if c < 0 || c > lat.Extent() || c/lat.Step != float64(int(c/lat.Step)) {
				t.Fatalf("coordinate %v is not on lattice %+v", c, lat)
			}
		}
	}
}

func TestRandomStartNeverWorse(t *testing.T) {
	eval := energy.Default()
	for seed := range uint64(10) {
		m := square(t)
		m.SetPos(0, 0, 0)
		m.SetPos(1, -1, 1)
		m.SetPos(2, 1, 1)
		m.SetPos(3, 0, 2)
		start := eval.Energy(m)

		got := RandomStart(m, eval, NewSource(seed), 50)
		if got > start {
			t.Errorf("seed %d: RandomStart() = %v, worse than %v", seed, got, start)
		}
		if e := eval.Energy(m); e != got {
			t.Errorf("seed %d: Energy(m) = %v, want %v", seed, e, got)
		}
	}
}

func TestRandomStartZeroTrials(t *testing.T) {
	m := triangle(t)
	before := m.Clone()
	eval := energy.Default()

	if got, want := RandomStart(m, eval, NewSource(0), 0), eval.Energy(before); got != want {
		t.Errorf("RandomStart() = %v, want %v", got, want)
	}
	if !m.Equal(before) {
		t.Error("RandomStart() with no trials modified the model")
	}
}

func TestRandomStartGrid(t *testing.T) {
	// Five nodes use a 3x3 grid.
	m, err := model.New(make([]model.Node, 5), nil)
	if err != nil {
		t.Fatalf("model.New() error = %v", err)
	}
	RandomStart(m, energy.Default(), NewSource(3), 200)
	for i := range m.NodeCount() {
		n := m.Node(i)
		if n.X < 0 || n.X > 2 || n.Y < 0 || n.Y > 2 || n.X != float64(int(n.X)) || n.Y != float64(int(n.Y)) {
			t.Errorf("Node(%d) = %+v, want integer coordinates in [0, 2]", i, n)
		}
	}
}

func TestNewSourceDeterministic(t *testing.T) {
	a, b := NewSource(99), NewSource(99)
	for range 20 {
		if a.IntN(1000) != b.IntN(1000) || a.Float64() != b.Float64() {
			t.Fatal("equal seeds produced different draws")
		}
	}
}
