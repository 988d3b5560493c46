package control

import (
	"fmt"
	"math"

	"github.com/sloperunner/engine/pkg/core"
)

// DefaultDeadZone is the head roll, in radians, below which the pose source stays neutral.
const DefaultDeadZone = 0.15

// Pose converts the head roll reported by an external pose estimator into an
// intent. Negative roll is a tilt to the player's left.
type Pose struct {
	DeadZone float64
	latest   Latest
}

// NewPose creates a pose source with the given dead zone. Non-positive values use DefaultDeadZone.
func NewPose(deadZone float64) *Pose {
	if deadZone <= 0 {
		deadZone = DefaultDeadZone
	}
	return &Pose{DeadZone: deadZone}
}

// Observe publishes the intent for a roll estimate. A non-finite roll is
// rejected and the source falls back to neutral.
func (p *Pose) Observe(roll float64) error {
	if math.IsNaN(roll) || math.IsInf(roll, 0) {
		_ = p.latest.Publish(core.IntentNone)
		return fmt.Errorf("%w: head roll %v", ErrInvalidControlInput, roll)
	}
	switch {
	case roll <= -p.DeadZone:
		return p.latest.Publish(core.IntentLeft)
	case roll >= p.DeadZone:
		return p.latest.Publish(core.IntentRight)
	default:
		return p.latest.Publish(core.IntentNone)
	}
}

// Lost is called when the estimator loses the face.
func (p *Pose) Lost() {
	_ = p.latest.Publish(core.IntentNone)
}

// Sample implements Source.
func (p *Pose) Sample() core.Intent {
	return p.latest.Sample()
}
