// Package sim is the slope runner tick engine: skier integration, obstacle
// lifecycle, collision detection and the Playing/GameOver state machine.
// A Simulation is not safe for concurrent use; one goroutine owns it.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sloperunner/engine/pkg/core"
)

// Renderer receives a read-only snapshot after every tick.
type Renderer interface {
	Present(snap core.Snapshot) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(core.Snapshot) error

// Present calls f.
func (f RendererFunc) Present(snap core.Snapshot) error { return f(snap) }

// Options configures a Simulation. Zero fields take defaults.
type Options struct {
	Tuning   *Tuning
	Rand     Rand
	Renderer Renderer
	// OnGameOver is called exactly once per run with the final score.
	OnGameOver func(score int)
	Logger     *slog.Logger
}

// TickResult is what the caller needs after a tick.
type TickResult struct {
	Score    int
	Tilt     core.Tilt
	GameOver bool
	Hit      Hit
}

// Simulation owns all mutable game state.
type Simulation struct {
	tuning   Tuning
	field    *Field
	detector Detector
	skier    Skier

	state    core.GameState
	tick     uint64
	survived uint64
	score    int

	renderer   Renderer
	onGameOver func(score int)
	log        *slog.Logger
}

// New creates a simulation in the Playing state.
func New(opts Options) (*Simulation, error) {
	t := DefaultTuning()
	if opts.Tuning != nil {
		t = *opts.Tuning
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Simulation{
		tuning:     t,
		field:      NewField(t, rng),
		detector:   NewDetector(t),
		renderer:   opts.Renderer,
		onGameOver: opts.OnGameOver,
		log:        logger,
	}
	s.restart()
	return s, nil
}

func (s *Simulation) restart() {
	s.field.Clear()
	s.skier = newSkier(s.tuning)
	s.state = core.StatePlaying
	s.tick = 0
	s.survived = 0
	s.score = 0
}

// Tick advances the world by one step using the intent sampled for it.
func (s *Simulation) Tick(intent core.Intent) (TickResult, error) {
	if s.state != core.StatePlaying {
		return TickResult{Score: s.score, Tilt: s.skier.Tilt, GameOver: true},
			fmt.Errorf("%w: tick while %s", ErrInvalidTransition, s.state)
	}
	if !intent.Valid() {
		s.log.Warn("Ignoring malformed intent", "intent", uint8(intent), "tick", s.tick+1)
		intent = core.IntentNone
	}

	s.tick++
	s.skier.Speed += s.tuning.SpeedIncrement
	s.skier.advance(s.tuning)
	s.skier.steer(s.tuning, intent)
	s.field.Advance(s.tick, s.skier.Z())

	if hit, ok := s.detector.Detect(s.skier.Position, s.field.Obstacles()); ok {
		s.state = core.StateGameOver
		s.present()
		s.log.Info("Run ended",
			"tick", s.tick,
			"score", s.score,
			"boundary", hit.Boundary,
			"obstacle", hit.Obstacle.Kind.String(),
		)
		if s.onGameOver != nil {
			s.onGameOver(s.score)
		}
		return TickResult{Score: s.score, Tilt: s.skier.Tilt, GameOver: true, Hit: hit}, nil
	}

	s.survived++
	s.score = int(s.survived / s.tuning.TicksPerScoreUnit)
	s.present()
	return TickResult{Score: s.score, Tilt: s.skier.Tilt}, nil
}

func (s *Simulation) present() {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.Present(s.Snapshot()); err != nil {
		s.log.Debug("Renderer failed", "tick", s.tick, "error", err)
	}
}

// Reset starts a new run. It is only valid after the game is over.
func (s *Simulation) Reset() error {
	if s.state != core.StateGameOver {
		return fmt.Errorf("%w: reset while %s", ErrInvalidTransition, s.state)
	}
	s.restart()
	return nil
}

// Snapshot returns a copy of the renderable state.
func (s *Simulation) Snapshot() core.Snapshot {
	obstacles := make([]core.Obstacle, len(s.field.Obstacles()))
	copy(obstacles, s.field.Obstacles())

	tiltAngle := 0.0
	switch s.skier.Tilt {
	case core.TiltLeft:
		tiltAngle = s.tuning.TiltAngle
	case core.TiltRight:
		tiltAngle = -s.tuning.TiltAngle
	}

	return core.Snapshot{
		Tick:      s.tick,
		State:     s.state,
		Position:  s.skier.Position,
		Y:         s.skier.Y(),
		Tilt:      s.skier.Tilt,
		TiltAngle: tiltAngle,
		Speed:     s.skier.Speed,
		Score:     s.score,
		Obstacles: obstacles,
	}
}

// State returns the current state machine state.
func (s *Simulation) State() core.GameState { return s.state }

// Score returns the current score.
func (s *Simulation) Score() int { return s.score }

// Elapsed returns the number of ticks run since the last reset.
func (s *Simulation) Elapsed() uint64 { return s.tick }

// Skier returns a copy of the skier state.
func (s *Simulation) Skier() Skier { return s.skier }

// Obstacles returns a copy of the live obstacle set.
func (s *Simulation) Obstacles() []core.Obstacle {
	out := make([]core.Obstacle, len(s.field.Obstacles()))
	copy(out, s.field.Obstacles())
	return out
}

// Tuning returns the constants in use.
func (s *Simulation) Tuning() Tuning { return s.tuning }
