package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/sloperunner/engine/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRand always returns the same draw. 0.99 yields a rock near the right edge,
// well clear of a skier holding the centre line.
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

func newTestSimulation(t *testing.T, opts Options) *Simulation {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = fixedRand(0.99)
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func TestNew_StartsPlayingAtOrigin(t *testing.T) {
	s := newTestSimulation(t, Options{})

	assert.Equal(t, core.StatePlaying, s.State())
	assert.Equal(t, core.Vec{0, 0}, s.Skier().Position)
	assert.Equal(t, BaseSpeed, s.Skier().Speed)
	assert.Equal(t, DefaultTuning().Height(0), s.Skier().Y())
	assert.Equal(t, 0, s.Score())
	assert.Empty(t, s.Obstacles())
}

func TestNew_RejectsInvalidTuning(t *testing.T) {
	tuning := DefaultTuning()
	tuning.SpawnInterval = 0

	_, err := New(Options{Tuning: &tuning})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTuning))
}

func TestTick_SpeedIncreasesAndZDecreases(t *testing.T) {
	s := newTestSimulation(t, Options{})

	prevSpeed := s.Skier().Speed
	prevZ := s.Skier().Z()
	for i := 0; i < 300; i++ {
		res, err := s.Tick(core.IntentNone)
		require.NoError(t, err)
		require.False(t, res.GameOver, "unexpected collision at tick %d", i+1)

		sk := s.Skier()
		assert.Greater(t, sk.Speed, prevSpeed)
		assert.Less(t, sk.Z(), prevZ)
		prevSpeed, prevZ = sk.Speed, sk.Z()
	}
}

func TestTick_HeightFollowsZ(t *testing.T) {
	s := newTestSimulation(t, Options{})
	tuning := s.Tuning()

	for i := 0; i < 200; i++ {
		_, err := s.Tick(core.IntentNone)
		require.NoError(t, err)

		sk := s.Skier()
		assert.Equal(t, math.Sin(SlopeAngle)*math.Abs(sk.Z())+HeightOffset, sk.Y())
		for _, o := range s.Obstacles() {
			assert.Equal(t, tuning.Height(o.Z()), o.Y)
		}
	}
}

func TestTick_LateralMovementAndTilt(t *testing.T) {
	s := newTestSimulation(t, Options{})

	res, err := s.Tick(core.IntentLeft)
	require.NoError(t, err)
	assert.Equal(t, core.TiltLeft, res.Tilt)
	assert.InDelta(t, -MoveSpeed, s.Skier().X(), 1e-12)

	res, err = s.Tick(core.IntentRight)
	require.NoError(t, err)
	assert.Equal(t, core.TiltRight, res.Tilt)
	assert.InDelta(t, 0, s.Skier().X(), 1e-12)

	res, err = s.Tick(core.IntentNone)
	require.NoError(t, err)
	assert.Equal(t, core.TiltNeutral, res.Tilt)
	assert.InDelta(t, 0, s.Skier().X(), 1e-12)
}

func TestTick_LateralLimitStopsMovement(t *testing.T) {
	s := newTestSimulation(t, Options{})
	s.skier.Position[0] = -LateralLimit

	res, err := s.Tick(core.IntentLeft)
	require.NoError(t, err)
	assert.Equal(t, core.TiltNeutral, res.Tilt)
	assert.Equal(t, -LateralLimit, s.Skier().X())
}

func TestTick_MalformedIntentTreatedAsNone(t *testing.T) {
	s := newTestSimulation(t, Options{})

	res, err := s.Tick(core.Intent(42))
	require.NoError(t, err)
	assert.Equal(t, core.TiltNeutral, res.Tilt)
	assert.Equal(t, 0.0, s.Skier().X())
}

func TestTick_ScoreCountsSurvivedTicks(t *testing.T) {
	s := newTestSimulation(t, Options{})

	var res TickResult
	var err error
	for i := 0; i < 2*TicksPerScoreUnit+30; i++ {
		res, err = s.Tick(core.IntentNone)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 2, s.Score())
}

func TestTick_CollisionEntersGameOverOnce(t *testing.T) {
	var finals []int
	var snaps []core.Snapshot
	s := newTestSimulation(t, Options{
		OnGameOver: func(score int) { finals = append(finals, score) },
		Renderer: RendererFunc(func(snap core.Snapshot) error {
			snaps = append(snaps, snap)
			return nil
		}),
	})

	for i := 0; i < 2*TicksPerScoreUnit; i++ {
		_, err := s.Tick(core.IntentNone)
		require.NoError(t, err)
	}
	sk := s.Skier()
	s.field.obstacles = append(s.field.obstacles, core.Obstacle{
		Kind:     core.KindTree,
		Position: core.Vec{sk.X(), sk.Z() - 0.5},
		Radius:   TreeRadius,
	})

	res, err := s.Tick(core.IntentLeft)
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.False(t, res.Hit.Boundary)
	assert.Equal(t, core.KindTree, res.Hit.Obstacle.Kind)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, core.StateGameOver, s.State())
	require.Equal(t, []int{2}, finals)

	last := snaps[len(snaps)-1]
	assert.Equal(t, core.StateGameOver, last.State)
	assert.Equal(t, core.TiltLeft, last.Tilt)
	assert.Equal(t, TiltAngle, last.TiltAngle)

	frozen := s.Skier()
	_, err = s.Tick(core.IntentRight)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, frozen, s.Skier())
	assert.Equal(t, []int{2}, finals, "game over must be emitted once")
}

func TestTick_BoundaryEndsRun(t *testing.T) {
	s := newTestSimulation(t, Options{})
	s.skier.Position[0] = SlopeHalfWidth

	res, err := s.Tick(core.IntentNone)
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.True(t, res.Hit.Boundary)
}

func TestTick_RendererErrorDoesNotAffectState(t *testing.T) {
	s := newTestSimulation(t, Options{
		Renderer: RendererFunc(func(core.Snapshot) error { return errors.New("gpu on fire") }),
	})

	for i := 0; i < 10; i++ {
		res, err := s.Tick(core.IntentNone)
		require.NoError(t, err)
		assert.False(t, res.GameOver)
	}
	assert.Equal(t, uint64(10), s.Elapsed())
}

func TestReset_WhilePlayingFails(t *testing.T) {
	s := newTestSimulation(t, Options{})

	err := s.Reset()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, core.StatePlaying, s.State())
}

func TestReset_AfterGameOverRestoresInitialState(t *testing.T) {
	s := newTestSimulation(t, Options{})
	for i := 0; i < SpawnInterval*3; i++ {
		_, err := s.Tick(core.IntentNone)
		require.NoError(t, err)
	}
	require.NotEmpty(t, s.Obstacles())
	s.skier.Position[0] = -SlopeHalfWidth
	res, err := s.Tick(core.IntentNone)
	require.NoError(t, err)
	require.True(t, res.GameOver)

	require.NoError(t, s.Reset())

	assert.Equal(t, core.StatePlaying, s.State())
	assert.Equal(t, core.Vec{0, 0}, s.Skier().Position)
	assert.Equal(t, BaseSpeed, s.Skier().Speed)
	assert.Equal(t, uint64(0), s.Elapsed())
	assert.Equal(t, 0, s.Score())
	assert.Empty(t, s.Obstacles())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newTestSimulation(t, Options{})
	for i := 0; i < SpawnInterval; i++ {
		_, err := s.Tick(core.IntentNone)
		require.NoError(t, err)
	}

	snap := s.Snapshot()
	require.Len(t, snap.Obstacles, 1)
	snap.Obstacles[0].Radius = 99

	assert.Equal(t, RockRadius, s.Obstacles()[0].Radius)
}
