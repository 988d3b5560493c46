package sim

import "github.com/sloperunner/engine/pkg/core"

// Skier is the player avatar. Its height is derived from Z on every move and
// cannot be set directly.
type Skier struct {
	Position core.Vec
	Speed    float64
	Tilt     core.Tilt
	y        float64
}

func newSkier(t Tuning) Skier {
	return Skier{
		Position: core.Vec{0, 0},
		Speed:    t.BaseSpeed,
		Tilt:     core.TiltNeutral,
		y:        t.Height(0),
	}
}

// X returns the lateral coordinate.
func (s Skier) X() float64 { return s.Position[0] }

// Z returns the forward coordinate. It decreases while skiing downhill.
func (s Skier) Z() float64 { return s.Position[1] }

// Y returns the slope height for the current Z.
func (s Skier) Y() float64 { return s.y }

func (s *Skier) advance(t Tuning) {
	s.Position[1] -= s.Speed
	s.y = t.Height(s.Position[1])
}

// steer applies lateral movement for one tick. Left wins when the caller
// somehow produced both, since Intent is single valued by then.
func (s *Skier) steer(t Tuning, intent core.Intent) {
	switch {
	case intent == core.IntentLeft && s.Position[0] > -t.LateralLimit:
		s.Position[0] -= t.MoveSpeed
		s.Tilt = core.TiltLeft
	case intent == core.IntentRight && s.Position[0] < t.LateralLimit:
		s.Position[0] += t.MoveSpeed
		s.Tilt = core.TiltRight
	default:
		s.Tilt = core.TiltNeutral
	}
}
