package graph

import (
	"cmp"
	"slices"

	"github.com/matzehuels/graphanneal/pkg/model"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// =============================================================================
// Graph - Input Topology
// =============================================================================

// Graph is the serialization format for graphs to be laid out.
type Graph struct {
	Nodes []Node `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Node is a vertex with an optional rank hint and starting position.
type Node struct {
	ID    string  `json:"id" yaml:"id"`
	Label string  `json:"label,omitempty" yaml:"label,omitempty"` // Display label (defaults to ID)
	Rank  int     `json:"rank,omitempty" yaml:"rank,omitempty"`   // Layering hint; 0 means none
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a directed edge between two node IDs.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// HasRanks reports whether any node carries a rank hint.
func (g Graph) HasRanks() bool {
	return slices.ContainsFunc(g.Nodes, func(n Node) bool { return n.Rank != 0 })
}

// Validate checks node IDs and rejects duplicate nodes and self loops.
func (g Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if err := errs.ValidateNodeID(n.ID); err != nil {
			return err
		}
		if seen[n.ID] {
			return errs.New(errs.ErrCodeInvalidInput, "duplicate node %q", n.ID)
		}
		seen[n.ID] = true
	}
	for i, e := range g.Edges {
		if err := errs.ValidateNodeID(e.From); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "edge %d", i)
		}
		if err := errs.ValidateNodeID(e.To); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "edge %d", i)
		}
		if e.From == e.To {
			return errs.New(errs.ErrCodeInvalidIndex, "edge %d: self loop on %q", i, e.From)
		}
	}
	return nil
}

// IDs returns the sorted set of node IDs, including edge endpoints that are
// not listed as nodes.
func (g Graph) IDs() []string {
	ids := make([]string, 0, len(g.Nodes)+2*len(g.Edges))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	for _, e := range g.Edges {
		ids = append(ids, e.From, e.To)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// ToModel validates g and converts it to a model. The returned slice maps
// each model index to its node ID.
func (g Graph) ToModel() (*model.Model, []string, error) {
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}
	ids := g.IDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	nodes := make([]model.Node, len(ids))
	for _, n := range g.Nodes {
		nodes[index[n.ID]] = model.Node{Rank: n.Rank, X: n.X, Y: n.Y}
	}
	edges := make([]model.Edge, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = model.Edge{A: index[e.From], B: index[e.To]}
	}

	m, err := model.New(nodes, edges)
	if err != nil {
		return nil, nil, err
	}
	return m, ids, nil
}

// FromModel builds a graph from m using ids as node IDs. Nodes are emitted in
// ID order.
func FromModel(m *model.Model, ids []string, labels map[string]string) (Graph, error) {
	if len(ids) != m.NodeCount() {
		return Graph{}, errs.New(errs.ErrCodeInvalidInput, "%d ids for %d nodes", len(ids), m.NodeCount())
	}
	g := Graph{
		Nodes: make([]Node, m.NodeCount()),
		Edges: make([]Edge, m.EdgeCount()),
	}
	for i := range m.NodeCount() {
		n := m.Node(i)
		g.Nodes[i] = Node{ID: ids[i], Label: labels[ids[i]], Rank: n.Rank, X: n.X, Y: n.Y}
	}
	for i := range m.EdgeCount() {
		e := m.Edge(i)
		g.Edges[i] = Edge{From: ids[e.A], To: ids[e.B]}
	}
	slices.SortStableFunc(g.Nodes, func(a, b Node) int { return cmp.Compare(a.ID, b.ID) })
	return g, nil
}

// Labels returns the explicit display labels keyed by node ID.
func (g Graph) Labels() map[string]string {
	labels := make(map[string]string)
	for _, n := range g.Nodes {
		if n.Label != "" {
			labels[n.ID] = n.Label
		}
	}
	return labels
}
