// Package geometry provides the planar joint-angle primitive used by every exercise analyzer.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// minMagnitude is the vector length below which two points are treated as coincident.
const minMagnitude = 1e-12

// AngleAt returns the angle in degrees, in the range [0, 180], that opens at vertex
// between the rays vertex->a and vertex->b.
//
// A nil point means the joint is missing. AngleAt returns 0 when any point is missing,
// holds a non-finite coordinate, or coincides with the vertex. Callers treat 0 as
// "no reliable angle".
func AngleAt(a, vertex, b *r2.Vec) float64 {
	if a == nil || vertex == nil || b == nil {
		return 0
	}
	if !finite(*a) || !finite(*vertex) || !finite(*b) {
		return 0
	}

	v1 := r2.Sub(*a, *vertex)
	v2 := r2.Sub(*b, *vertex)

	m1 := r2.Norm(v1)
	m2 := r2.Norm(v2)
	if m1 < minMagnitude || m2 < minMagnitude {
		return 0
	}

	// Parallel rays give exactly 0 or 180.
	return math.Atan2(math.Abs(r2.Cross(v1, v2)), r2.Dot(v1, v2)) * 180 / math.Pi
}

func finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
