// Package analyze measures the aesthetic defects of a node-link layout.
//
// [Analyze] recomputes six attributes from scratch on every call. Graphs are
// capped at [model.Capacity] nodes and edges, so the O(n² + n·e + e²) pass is
// cheap enough to run once per annealing step.
//
// Two tests in the analysis are policy choices rather than geometry: when two
// nodes count as overlapping and when a node counts as sitting on an edge.
// Both are configured through [Policy]; [ThresholdPolicy] and [ExactPolicy]
// reproduce the two historical behaviors.
package analyze

import (
	"fmt"
	"math"

	"github.com/matzehuels/graphanneal/pkg/geom"
	"github.com/matzehuels/graphanneal/pkg/model"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Attributes is the defect vector of one layout.
type Attributes struct {
	Overlaps       int     `json:"overlaps" toml:"overlaps"`               // Node pairs that coincide or are too close
	NodeOnEdge     int     `json:"node_on_edge" toml:"node_on_edge"`       // Nodes on or near a foreign edge
	Crossings      int     `json:"crossings" toml:"crossings"`             // Edge pairs that properly intersect
	RankViolations int     `json:"rank_violations" toml:"rank_violations"` // Ranked pairs in the wrong vertical order
	Length         float64 `json:"length" toml:"length"`                   // Total edge length
	Area           float64 `json:"area" toml:"area"`                       // Bounding box area
}

// FieldNames lists the attribute names in [Attributes.Vector] order.
var FieldNames = [6]string{"overlaps", "node_on_edge", "crossings", "rank_violations", "length", "area"}

// Vector returns the attributes as an ordered array (see [FieldNames]).
func (a Attributes) Vector() [6]float64 {
	return [6]float64{
		float64(a.Overlaps),
		float64(a.NodeOnEdge),
		float64(a.Crossings),
		float64(a.RankViolations),
		a.Length,
		a.Area,
	}
}

// Structural reports the number of hard defects: overlaps, nodes on edges,
// crossings and rank violations.
func (a Attributes) Structural() int {
	return a.Overlaps + a.NodeOnEdge + a.Crossings + a.RankViolations
}

// String formats the attributes on a single line.
func (a Attributes) String() string {
	return fmt.Sprintf("overlaps=%d node_on_edge=%d crossings=%d rank_violations=%d length=%.3f area=%.3f",
		a.Overlaps, a.NodeOnEdge, a.Crossings, a.RankViolations, a.Length, a.Area)
}

// Policy selects the proximity tests used by [Analyze].
type Policy struct {
	// OverlapDistance counts two nodes as overlapping when they are strictly
	// closer than this. Zero means only exactly coincident nodes overlap.
	OverlapDistance float64 `json:"overlap_distance" toml:"overlap_distance"`

	// NearEdgeDistance counts a node as sitting on an edge when its distance to
	// the segment is strictly less than this. Ignored with ExactContainment.
	NearEdgeDistance float64 `json:"near_edge_distance" toml:"near_edge_distance"`

	// ExactContainment uses [geom.PointOnSegment] instead of a distance test.
	ExactContainment bool `json:"exact_containment" toml:"exact_containment"`
}

// ThresholdPolicy returns the distance-threshold policy: nodes closer than one
// unit overlap and nodes within a quarter unit of an edge sit on it.
func ThresholdPolicy() Policy {
	return Policy{
		OverlapDistance:  1,
		NearEdgeDistance: 0.25,
	}
}

// ExactPolicy returns the exact policy: only coincident nodes overlap and only
// nodes strictly inside an edge segment sit on it.
func ExactPolicy() Policy {
	return Policy{ExactContainment: true}
}

// DefaultPolicy returns [ThresholdPolicy].
func DefaultPolicy() Policy { return ThresholdPolicy() }

// Validate rejects negative or non-finite thresholds.
func (p Policy) Validate() error {
	if !nonNegative(p.OverlapDistance) {
		return errs.New(errs.ErrCodeInvalidConfig, "overlap distance must be non-negative and finite, got %v", p.OverlapDistance)
	}
	if !nonNegative(p.NearEdgeDistance) {
		return errs.New(errs.ErrCodeInvalidConfig, "near-edge distance must be non-negative and finite, got %v", p.NearEdgeDistance)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

// Analyze computes the attribute vector of the current layout of m.
// It does not modify m.
func Analyze(m *model.Model, p Policy) Attributes {
	return Attributes{
		Overlaps:       countOverlaps(m, p),
		NodeOnEdge:     countNodesOnEdges(m, p),
		Crossings:      countCrossings(m),
		RankViolations: countRankViolations(m),
		Length:         totalLength(m),
		Area:           boundingArea(m),
	}
}

func countOverlaps(m *model.Model, p Policy) int {
	count := 0
	n := m.NodeCount()
	for i := 0; i < n; i++ {
		a := m.Pos(i)
		for j := i + 1; j < n; j++ {
			b := m.Pos(j)
			if a == b || geom.Distance(a, b) < p.OverlapDistance {
				count++
			}
		}
	}
	return count
}

func countNodesOnEdges(m *model.Model, p Policy) int {
	count := 0
	for i := 0; i < m.EdgeCount(); i++ {
		e := m.Edge(i)
		a, b := m.EdgeSegment(i)
		for j := 0; j < m.NodeCount(); j++ {
			if j == e.A || j == e.B {
				continue
			}
			q := m.Pos(j)
			if p.ExactContainment {
				if geom.PointOnSegment(a, b, q) {
					count++
				}
			} else if geom.PointSegmentDistance(a, b, q) < p.NearEdgeDistance {
				count++
			}
		}
	}
	return count
}

func countCrossings(m *model.Model) int {
	count := 0
	for i := 0; i < m.EdgeCount(); i++ {
		a, b := m.EdgeSegment(i)
		for j := i + 1; j < m.EdgeCount(); j++ {
			c, d := m.EdgeSegment(j)
			if geom.SegmentsIntersect(a, b, c, d) {
				count++
			}
		}
	}
	return count
}

// countRankViolations counts ranked pairs whose vertical order disagrees
// with their rank order. Equal ranks must share a y coordinate.
func countRankViolations(m *model.Model) int {
	count := 0
	n := m.NodeCount()
	for i := 0; i < n; i++ {
		a := m.Node(i)
		if a.Rank == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			b := m.Node(j)
			if b.Rank == 0 {
				continue
			}
			if (a.Rank >= b.Rank && a.Y < b.Y) || (a.Rank <= b.Rank && a.Y > b.Y) {
				count++
			}
		}
	}
	return count
}

func totalLength(m *model.Model) float64 {
	length := 0.0
	for i := 0; i < m.EdgeCount(); i++ {
		a, b := m.EdgeSegment(i)
		length += geom.Distance(a, b)
	}
	return length
}

func boundingArea(m *model.Model) float64 {
	if m.NodeCount() == 0 {
		return 0
	}
	first := m.Node(0)
	minX, maxX := first.X, first.X
	minY, maxY := first.Y, first.Y
	for i := 1; i < m.NodeCount(); i++ {
		n := m.Node(i)
		minX, maxX = min(minX, n.X), max(maxX, n.X)
		minY, maxY = min(minY, n.Y), max(maxY, n.Y)
	}
	return (maxX - minX) * (maxY - minY)
}
