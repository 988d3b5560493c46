package control

import (
	"math"

	"github.com/sloperunner/engine/pkg/core"
)

// Autopilot steers a headless run away from the nearest obstacle ahead. It is
// fed snapshots as a renderer and polled as a Source, so it reacts one tick late
// like a human would.
type Autopilot struct {
	Lookahead float64
	Clearance float64
	Limit     float64
	latest    Latest
}

// NewAutopilot returns an autopilot tuned for the default slope.
func NewAutopilot(limit float64) *Autopilot {
	return &Autopilot{Lookahead: 12, Clearance: 1.6, Limit: limit}
}

// Present implements sim.Renderer.
func (a *Autopilot) Present(snap core.Snapshot) error {
	return a.latest.Publish(a.decide(snap))
}

func (a *Autopilot) decide(snap core.Snapshot) core.Intent {
	x, z := snap.Position[0], snap.Position[1]

	var threat *core.Obstacle
	for i := range snap.Obstacles {
		o := &snap.Obstacles[i]
		ahead := z - o.Z()
		if ahead < -o.Radius || ahead > a.Lookahead {
			continue
		}
		if math.Abs(o.X()-x) >= a.Clearance+o.Radius {
			continue
		}
		if threat == nil || o.Z() > threat.Z() {
			threat = o
		}
	}
	if threat == nil {
		return core.IntentNone
	}

	goLeft := threat.X() >= x
	if goLeft && x <= -a.Limit+a.Clearance {
		goLeft = false
	} else if !goLeft && x >= a.Limit-a.Clearance {
		goLeft = true
	}
	if goLeft {
		return core.IntentLeft
	}
	return core.IntentRight
}

// Sample implements Source.
func (a *Autopilot) Sample() core.Intent {
	return a.latest.Sample()
}
