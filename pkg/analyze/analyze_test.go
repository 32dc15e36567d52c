package analyze

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/matzehuels/graphanneal/pkg/model"
)

func mustModel(t *testing.T, nodes []model.Node, edges []model.Edge) *model.Model {
	t.Helper()
	m, err := model.New(nodes, edges)
	if err != nil {
		t.Fatalf("model.New() error = %v", err)
	}
	return m
}

func TestAnalyzeScenarios(t *testing.T) {
	tests := []struct {
		name   string
		nodes  []model.Node
		edges  []model.Edge
		policy Policy
		want   Attributes
	}{
		{
			name:   "three coincident unranked nodes",
			nodes:  []model.Node{{}, {}, {}},
			policy: ThresholdPolicy(),
			want:   Attributes{Overlaps: 3},
		},
		{
			name:   "three coincident nodes exact",
			nodes:  []model.Node{{}, {}, {}},
			policy: ExactPolicy(),
			want:   Attributes{Overlaps: 3},
		},
		{
			name: "crossing diagonals",
			nodes: []model.Node{
				{X: 0, Y: 0}, {X: 1, Y: 1},
				{X: 0, Y: 1}, {X: 1, Y: 0},
			},
			edges:  []model.Edge{{A: 0, B: 1}, {A: 2, B: 3}},
			policy: ThresholdPolicy(),
			want:   Attributes{Crossings: 1, Length: 2 * math.Sqrt2, Area: 1},
		},
		{
			name:   "rank order violated",
			nodes:  []model.Node{{Rank: 1, X: 0, Y: 5}, {Rank: 2, X: 4, Y: 3}},
			policy: ThresholdPolicy(),
			want:   Attributes{RankViolations: 1, Area: 8},
		},
		{
			name:   "rank order respected",
			nodes:  []model.Node{{Rank: 1, X: 0, Y: 3}, {Rank: 2, X: 4, Y: 5}},
			policy: ThresholdPolicy(),
			want:   Attributes{Area: 8},
		},
		{
			name:   "equal ranks on different rows",
			nodes:  []model.Node{{Rank: 2, X: 0, Y: 0}, {Rank: 2, X: 3, Y: 1}},
			policy: ThresholdPolicy(),
			want:   Attributes{RankViolations: 1, Area: 3},
		},
		{
			name:   "unranked node skipped",
			nodes:  []model.Node{{Rank: 0, X: 0, Y: 9}, {Rank: 2, X: 3, Y: 1}},
			policy: ThresholdPolicy(),
			want:   Attributes{Area: 24},
		},
		{
			name:   "node near edge threshold",
			nodes:  []model.Node{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 2, Y: 0.2}},
			edges:  []model.Edge{{A: 0, B: 1}},
			policy: ThresholdPolicy(),
			want:   Attributes{NodeOnEdge: 1, Length: 4, Area: 0.8},
		},
		{
			name:   "node near edge exact",
			nodes:  []model.Node{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 2, Y: 0.2}},
			edges:  []model.Edge{{A: 0, B: 1}},
			policy: ExactPolicy(),
			want:   Attributes{Length: 4, Area: 0.8},
		},
		{
			name:   "node on edge exact",
			nodes:  []model.Node{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 2, Y: 0}},
			edges:  []model.Edge{{A: 0, B: 1}},
			policy: ExactPolicy(),
			want:   Attributes{NodeOnEdge: 1, Length: 4},
		},
		{
			name:   "close nodes overlap only under threshold",
			nodes:  []model.Node{{X: 0, Y: 0}, {X: 0.5, Y: 0}},
			policy: ThresholdPolicy(),
			want:   Attributes{Overlaps: 1},
		},
		{
			name:   "close nodes exact",
			nodes:  []model.Node{{X: 0, Y: 0}, {X: 0.5, Y: 0}},
			policy: ExactPolicy(),
			want:   Attributes{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(mustModel(t, tt.nodes, tt.edges), tt.policy)
			if got.Overlaps != tt.want.Overlaps ||
				got.NodeOnEdge != tt.want.NodeOnEdge ||
				got.Crossings != tt.want.Crossings ||
				got.RankViolations != tt.want.RankViolations {
				t.Errorf("Analyze() counts = %v, want %v", got, tt.want)
			}
			if math.Abs(got.Length-tt.want.Length) > 1e-9 {
				t.Errorf("Length = %v, want %v", got.Length, tt.want.Length)
			}
			if math.Abs(got.Area-tt.want.Area) > 1e-9 {
				t.Errorf("Area = %v, want %v", got.Area, tt.want.Area)
			}
		})
	}
}

func TestAnalyzeNonNegative(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := range 50 {
		m := randomModel(t, rng, 2+rng.IntN(12), rng.IntN(20))
		for _, p := range []Policy{ThresholdPolicy(), ExactPolicy()} {
			for i, v := range Analyze(m, p).Vector() {
				if v < 0 {
					t.Fatalf("trial %d: %s = %v, want >= 0", trial, FieldNames[i], v)
				}
			}
		}
	}
}

func TestAnalyzeRelabelInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := range 50 {
		m := randomModel(t, rng, 2+rng.IntN(12), rng.IntN(20))
		perm := rng.Perm(m.NodeCount())

		nodes := make([]model.Node, m.NodeCount())
		for i := range m.NodeCount() {
			nodes[perm[i]] = m.Node(i)
		}
		edges := make([]model.Edge, m.EdgeCount())
		for i := range m.EdgeCount() {
			e := m.Edge(i)
			edges[i] = model.Edge{A: perm[e.A], B: perm[e.B]}
		}
		relabeled := mustModel(t, nodes, edges)

		for _, p := range []Policy{ThresholdPolicy(), ExactPolicy()} {
			if got, want := Analyze(relabeled, p), Analyze(m, p); got != want {
				t.Fatalf("trial %d: relabeled = %v, want %v", trial, got, want)
			}
		}
	}
}

func TestAnalyzeDoesNotMutate(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	m := randomModel(t, rng, 8, 10)
	before := m.Clone()
	Analyze(m, ThresholdPolicy())
	if !m.Equal(before) {
		t.Error("Analyze() modified the model")
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"threshold", ThresholdPolicy(), false},
		{"exact", ExactPolicy(), false},
		{"negative overlap", Policy{OverlapDistance: -1}, true},
		{"negative near edge", Policy{NearEdgeDistance: -0.1}, true},
		{"nan overlap", Policy{OverlapDistance: math.NaN()}, true},
		{"infinite overlap", Policy{OverlapDistance: math.Inf(1)}, true},
		{"nan near edge", Policy{OverlapDistance: 1, NearEdgeDistance: math.NaN()}, true},
		{"infinite near edge", Policy{NearEdgeDistance: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.policy.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAttributesStructural(t *testing.T) {
	a := Attributes{Overlaps: 1, NodeOnEdge: 2, Crossings: 3, RankViolations: 4, Length: 10, Area: 20}
	if got := a.Structural(); got != 10 {
		t.Errorf("Structural() = %d, want 10", got)
	}
	if got := a.Vector(); got != [6]float64{1, 2, 3, 4, 10, 20} {
		t.Errorf("Vector() = %v", got)
	}
}

// randomModel places nodes on a small half-step lattice so that coincident
// nodes, collinear edges and crossings all occur.
func randomModel(t *testing.T, rng *rand.Rand, nodes, edges int) *model.Model {
	t.Helper()
	ns := make([]model.Node, nodes)
	for i := range ns {
		ns[i] = model.Node{
			Rank: rng.IntN(4),
			X:    float64(rng.IntN(8)) / 2,
			Y:    float64(rng.IntN(8)) / 2,
		}
	}
	es := make([]model.Edge, 0, edges)
	for len(es) < edges {
		a, b := rng.IntN(nodes), rng.IntN(nodes)
		if a != b {
			es = append(es, model.Edge{A: a, B: b})
		}
	}
	return mustModel(t, ns, es)
}
