// pkg/core/slope.go
package core

import "github.com/go-gl/mathgl/mgl64"

// Vec is a position on the slope plane. Index 0 is the lateral X axis and
// index 1 is the forward Z axis. Height is never stored, it is derived from Z.
type Vec = mgl64.Vec2

// Intent is the normalized lateral control signal sampled once per tick.
type Intent uint8

const (
	IntentNone Intent = iota
	IntentLeft
	IntentRight
)

func (i Intent) String() string {
	switch i {
	case IntentLeft:
		return "left"
	case IntentRight:
		return "right"
	default:
		return "none"
	}
}

// Valid reports whether i is one of the declared intents.
func (i Intent) Valid() bool {
	return i <= IntentRight
}

// Tilt is the cosmetic lean of the skier, derived from the intent of the current tick.
type Tilt uint8

const (
	TiltNeutral Tilt = iota
	TiltLeft
	TiltRight
)

func (t Tilt) String() string {
	switch t {
	case TiltLeft:
		return "left"
	case TiltRight:
		return "right"
	default:
		return "neutral"
	}
}

// MarshalText renders the tilt as its name in JSON snapshots.
func (t Tilt) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ObstacleKind distinguishes the obstacle meshes.
type ObstacleKind uint8

const (
	KindTree ObstacleKind = iota
	KindRock
)

func (k ObstacleKind) String() string {
	if k == KindRock {
		return "rock"
	}
	return "tree"
}

// MarshalText renders the kind as its name in JSON snapshots.
func (k ObstacleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Obstacle is a static hazard on the slope. It is never mutated after spawn.
type Obstacle struct {
	Kind     ObstacleKind `json:"kind"`
	Position Vec          `json:"position"`
	Y        float64      `json:"y"`
	Radius   float64      `json:"radius"`
}

// X returns the lateral coordinate.
func (o Obstacle) X() float64 { return o.Position[0] }

// Z returns the forward coordinate.
func (o Obstacle) Z() float64 { return o.Position[1] }

// GameState is the state of the simulation state machine.
type GameState string

const (
	StatePlaying  GameState = "playing"
	StateGameOver GameState = "game_over"
)

// Snapshot is the read-only per-tick view handed to renderers.
type Snapshot struct {
	Tick      uint64     `json:"tick"`
	State     GameState  `json:"state"`
	Position  Vec        `json:"position"`
	Y         float64    `json:"y"`
	Tilt      Tilt       `json:"tilt"`
	TiltAngle float64    `json:"tiltAngle"`
	Speed     float64    `json:"speed"`
	Score     int        `json:"score"`
	Obstacles []Obstacle `json:"obstacles"`
}
