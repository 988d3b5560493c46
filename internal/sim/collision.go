package sim

import (
	"math"

	"github.com/sloperunner/engine/pkg/core"
)

// Hit describes what ended a run.
type Hit struct {
	// Boundary is set when the skier left the slope.
	Boundary bool
	// Index is the position of the obstacle in the live set, or -1.
	Index    int
	Obstacle core.Obstacle
}

// Detector decides collisions on the horizontal plane. Height is ignored
// because both skier and obstacles derive it from Z.
type Detector struct {
	SkierRadius    float64
	SlopeHalfWidth float64
	BoundaryMargin float64
}

// NewDetector builds a detector from the tuning.
func NewDetector(t Tuning) Detector {
	return Detector{
		SkierRadius:    t.SkierRadius,
		SlopeHalfWidth: t.SlopeHalfWidth,
		BoundaryMargin: t.BoundaryMargin,
	}
}

// Check reports whether the skier at pos collides with any obstacle or is off the slope.
func (d Detector) Check(pos core.Vec, obstacles []core.Obstacle) bool {
	_, hit := d.Detect(pos, obstacles)
	return hit
}

// Detect is Check that also reports the first qualifying condition.
func (d Detector) Detect(pos core.Vec, obstacles []core.Obstacle) (Hit, bool) {
	if d.OffSlope(pos[0]) {
		return Hit{Boundary: true, Index: -1}, true
	}
	for i, o := range obstacles {
		// strict: touching at exactly the summed radii is not a hit
		if pos.Sub(o.Position).Len() < d.SkierRadius+o.Radius {
			return Hit{Index: i, Obstacle: o}, true
		}
	}
	return Hit{Index: -1}, false
}

// OffSlope reports whether x lies beyond the usable slope width.
func (d Detector) OffSlope(x float64) bool {
	return math.Abs(x) > d.SlopeHalfWidth-d.BoundaryMargin
}
