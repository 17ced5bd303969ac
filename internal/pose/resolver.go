package pose

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/gymbro/internal/geometry"
)

// DefaultVisibilityThreshold is the confidence a landmark must exceed to be used.
const DefaultVisibilityThreshold = 0.5

// Resolver extracts usable 2-D joint positions from a frame.
type Resolver struct {
	threshold float64
}

// NewResolver creates a Resolver that accepts landmarks whose visibility is
// strictly greater than threshold.
func NewResolver(threshold float64) *Resolver {
	return &Resolver{threshold: threshold}
}

// Joints holds the resolved positions of a set of requested joints.
// A requested joint that was not usable is absent from the map.
type Joints map[Joint]r2.Vec

// Resolve returns the usable positions for the requested joints. A joint is
// absent when its index is outside the frame, its visibility is at or below
// the threshold, or its coordinates are not finite.
func (r *Resolver) Resolve(frame Frame, joints ...Joint) Joints {
	out := make(Joints, len(joints))
	for _, j := range joints {
		if j < 0 || int(j) >= len(frame) {
			continue
		}
		lm := frame[j]
		if lm.Visibility <= r.threshold || !lm.Finite() {
			continue
		}
		out[j] = r2.Vec{X: lm.X, Y: lm.Y}
	}
	return out
}

// Angle returns the angle at vertex between a and b in degrees, or 0 when any
// of the three joints is absent.
func (js Joints) Angle(a, vertex, b Joint) float64 {
	return geometry.AngleAt(js.point(a), js.point(vertex), js.point(b))
}

func (js Joints) point(j Joint) *r2.Vec {
	p, ok := js[j]
	if !ok {
		return nil
	}
	return &p
}
