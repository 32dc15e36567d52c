// Package geom provides the planar predicates used to score node-link
// layouts: point distances, point-to-segment distance, exact point-on-segment
// containment and proper segment intersection.
//
// Points are [r2.Vec] values from gonum. All predicates treat degenerate
// input (zero-length segments, parallel or collinear segments) through
// explicit branches rather than errors:
//
//   - A zero-length segment behaves like a point.
//   - Parallel and collinear segments never intersect, even when they overlap.
//   - Shared endpoints are not intersections, and segment endpoints are not
//     contained in their own segment.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the tolerance used when comparing interpolation parameters in
// [PointOnSegment].
const Epsilon = 1e-9

// Distance returns the Euclidean distance between p and q.
func Distance(p, q r2.Vec) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// PointSegmentDistance returns the shortest distance from q to the segment
// [p0, p1]. When the foot of the perpendicular falls outside the segment the
// distance to the nearer endpoint is returned.
func PointSegmentDistance(p0, p1, q r2.Vec) float64 {
	if p0 == p1 {
		return Distance(p0, q)
	}
	// q lies beyond p1 when the direction p0->p1 and p1->q agree.
	if r2.Dot(r2.Sub(p1, p0), r2.Sub(q, p1)) > 0 {
		return Distance(p1, q)
	}
	if r2.Dot(r2.Sub(p0, p1), r2.Sub(q, p0)) > 0 {
		return Distance(p0, q)
	}
	return math.Abs(r2.Cross(r2.Sub(p1, p0), r2.Sub(q, p0))) / Distance(p0, p1)
}

// PointOnSegment reports whether q lies strictly inside the segment
// [p0, p1]. Endpoints are excluded. Axis-aligned segments only constrain the
// varying coordinate; the fixed coordinate must match exactly.
func PointOnSegment(p0, p1, q r2.Vec) bool {
	t, ok := project(p0, p1, q)
	return ok && t > 0 && t < 1
}

// project solves q = p0 + t*(p1-p0) for t. It reports false when no single t
// satisfies both axes.
func project(p0, p1, q r2.Vec) (float64, bool) {
	var (
		xt, yt     float64
		hasX, hasY bool
	)
	if p0.X != p1.X {
		xt, hasX = (q.X-p0.X)/(p1.X-p0.X), true
	} else if q.X != p0.X {
		return 0, false
	}
	if p0.Y != p1.Y {
		yt, hasY = (q.Y-p0.Y)/(p1.Y-p0.Y), true
	} else if q.Y != p0.Y {
		return 0, false
	}

	switch {
	case hasX && hasY:
		if math.Abs(xt-yt) > Epsilon {
			return 0, false
		}
		return xt, true
	case hasX:
		return xt, true
	case hasY:
		return yt, true
	}
	// Zero-length segment at q: there is no interior to be on.
	return 0, false
}

// SegmentsIntersect reports whether the segments [p0, p1] and [p2, p3] cross
// at a single point interior to both. A zero determinant (parallel or
// collinear directions) reports false.
func SegmentsIntersect(p0, p1, p2, p3 r2.Vec) bool {
	d1 := r2.Sub(p1, p0)
	d2 := r2.Sub(p3, p2)
	det := r2.Cross(d1, d2)
	if det == 0 {
		return false
	}
	w := r2.Sub(p0, p2)
	s := r2.Cross(d1, w) / det
	t := r2.Cross(d2, w) / det
	return s > 0 && s < 1 && t > 0 && t < 1
}
