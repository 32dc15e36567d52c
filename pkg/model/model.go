// Package model holds the graph being laid out: a fixed topology of nodes and
// edges plus one mutable coordinate per node.
//
// A [Model] is built once with [New], which enforces the invariants every
// other package relies on:
//
//   - At least one node and at most [Capacity] nodes and edges
//   - Every edge endpoint is a valid node index
//   - No edge connects a node to itself
//
// After construction only node coordinates (and, through [AssignRanks], node
// ranks) change. The edge list is immutable. [Model.Clone] produces an
// independent deep copy, which is how layout snapshots are taken.
//
// A Model is not safe for concurrent use.
package model

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Capacity is the maximum number of nodes and the maximum number of edges a
// model may hold.
const Capacity = 128

// Node is a vertex with an optional rank hint and a position.
type Node struct {
	Rank int     // Layering hint; 0 means unconstrained
	X    float64 // Horizontal coordinate
	Y    float64 // Vertical coordinate
}

// Pos returns the node position as a vector.
func (n Node) Pos() r2.Vec { return r2.Vec{X: n.X, Y: n.Y} }

// Edge connects two distinct node indices.
type Edge struct {
	A int
	B int
}

// Model is a validated graph with mutable node positions.
//
// The zero value is not usable - use [New].
type Model struct {
	nodes []Node
	edges []Edge
}

// New validates the topology and returns a model that owns copies of nodes
// and edges.
//
// Errors carry the codes [errs.ErrCodeEmptyGraph], [errs.ErrCodeCapacityExceeded]
// or [errs.ErrCodeInvalidIndex]. Nothing is truncated.
func New(nodes []Node, edges []Edge) (*Model, error) {
	if len(nodes) == 0 {
		return nil, errs.New(errs.ErrCodeEmptyGraph, "graph has no nodes")
	}
	if len(nodes) > Capacity {
		return nil, errs.New(errs.ErrCodeCapacityExceeded, "%d nodes exceeds capacity of %d", len(nodes), Capacity)
	}
	if len(edges) > Capacity {
		return nil, errs.New(errs.ErrCodeCapacityExceeded, "%d edges exceeds capacity of %d", len(edges), Capacity)
	}
	for i, e := range edges {
		if e.A < 0 || e.A >= len(nodes) {
			return nil, errs.New(errs.ErrCodeInvalidIndex, "edge %d: source index %d out of range [0, %d)", i, e.A, len(nodes))
		}
		if e.B < 0 || e.B >= len(nodes) {
			return nil, errs.New(errs.ErrCodeInvalidIndex, "edge %d: target index %d out of range [0, %d)", i, e.B, len(nodes))
		}
		if e.A == e.B {
			return nil, errs.New(errs.ErrCodeInvalidIndex, "edge %d: self loop on node %d", i, e.A)
		}
	}
	return &Model{
		nodes: slices.Clone(nodes),
		edges: slices.Clone(edges),
	}, nil
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.nodes) }

// EdgeCount returns the number of edges.
func (m *Model) EdgeCount() int { return len(m.edges) }

// Node returns node i. It panics if i is out of range.
func (m *Model) Node(i int) Node { return m.nodes[i] }

// Edge returns edge i. It panics if i is out of range.
func (m *Model) Edge(i int) Edge { return m.edges[i] }

// Nodes returns a copy of the node sequence.
func (m *Model) Nodes() []Node { return slices.Clone(m.nodes) }

// Edges returns a copy of the edge sequence.
func (m *Model) Edges() []Edge { return slices.Clone(m.edges) }

// Pos returns the position of node i.
func (m *Model) Pos(i int) r2.Vec { return m.nodes[i].Pos() }

// SetPos moves node i to (x, y).
func (m *Model) SetPos(i int, x, y float64) {
	m.nodes[i].X = x
	m.nodes[i].Y = y
}

// SetRank changes the rank hint of node i.
func (m *Model) SetRank(i, rank int) { m.nodes[i].Rank = rank }

// EdgeSegment returns the endpoints of edge i.
func (m *Model) EdgeSegment(i int) (r2.Vec, r2.Vec) {
	e := m.edges[i]
	return m.nodes[e.A].Pos(), m.nodes[e.B].Pos()
}

// Clone returns an independent deep copy.
func (m *Model) Clone() *Model {
	return &Model{
		nodes: slices.Clone(m.nodes),
		edges: slices.Clone(m.edges),
	}
}

// CopyPositions overwrites the node coordinates of m with those of src.
// Both models must describe the same topology; only the node count is
// checked.
func (m *Model) CopyPositions(src *Model) error {
	if len(src.nodes) != len(m.nodes) {
		return errs.New(errs.ErrCodeInvalidInput, "cannot copy %d positions into a model with %d nodes", len(src.nodes), len(m.nodes))
	}
	for i, n := range src.nodes {
		m.nodes[i].X = n.X
		m.nodes[i].Y = n.Y
	}
	return nil
}

// Equal reports whether two models have identical nodes and edges.
func (m *Model) Equal(o *Model) bool {
	return slices.Equal(m.nodes, o.nodes) && slices.Equal(m.edges, o.edges)
}
