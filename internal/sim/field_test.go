package sim

import (
	"math/rand"
	"testing"

	"github.com/sloperunner/engine/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRand replays draws in order and wraps around.
type seqRand struct {
	draws []float64
	i     int
}

func (r *seqRand) Float64() float64 {
	v := r.draws[r.i%len(r.draws)]
	r.i++
	return v
}

func TestAdvance_SpawnsOnlyOnCadence(t *testing.T) {
	f := NewField(DefaultTuning(), fixedRand(0.5))

	for tick := uint64(1); tick < SpawnInterval; tick++ {
		assert.False(t, f.Advance(tick, 0))
	}
	assert.Equal(t, 0, f.Len())

	assert.True(t, f.Advance(SpawnInterval, 0))
	assert.Equal(t, 1, f.Len())

	assert.True(t, f.Advance(2*SpawnInterval, 0))
	assert.Equal(t, 2, f.Len(), "exactly one obstacle per cadence tick")
}

func TestAdvance_SpawnPlacement(t *testing.T) {
	tuning := DefaultTuning()
	f := NewField(tuning, &seqRand{draws: []float64{0.1, 0.0, 0.9, 1.0}})

	f.Advance(SpawnInterval, -20)
	f.Advance(2*SpawnInterval, -20)
	obs := f.Obstacles()
	require.Len(t, obs, 2)

	assert.Equal(t, core.KindTree, obs[0].Kind)
	assert.Equal(t, TreeRadius, obs[0].Radius)
	assert.Equal(t, -SpawnHalfWidth, obs[0].X())
	assert.Equal(t, -20-SpawnDistance, obs[0].Z())
	assert.Equal(t, tuning.Height(-20-SpawnDistance), obs[0].Y)

	assert.Equal(t, core.KindRock, obs[1].Kind)
	assert.Equal(t, RockRadius, obs[1].Radius)
	assert.Equal(t, SpawnHalfWidth, obs[1].X())
}

func TestAdvance_SpawnXWithinHalfWidth(t *testing.T) {
	f := NewField(DefaultTuning(), rand.New(rand.NewSource(7)))

	for i := uint64(1); i <= 500; i++ {
		f.Advance(i*SpawnInterval, 0)
	}
	require.Equal(t, 500, f.Len())
	trees := 0
	for _, o := range f.Obstacles() {
		assert.GreaterOrEqual(t, o.X(), -SpawnHalfWidth)
		assert.LessOrEqual(t, o.X(), SpawnHalfWidth)
		if o.Kind == core.KindTree {
			trees++
		}
	}
	assert.InDelta(t, 0.7, float64(trees)/500, 0.08)
}

func TestAdvance_CullsBehindTrailingWindow(t *testing.T) {
	f := NewField(DefaultTuning(), fixedRand(0.5))
	f.obstacles = []core.Obstacle{
		{Position: core.Vec{0, -10}},
		{Position: core.Vec{0, -39.9}},
		{Position: core.Vec{0, -40}},
		{Position: core.Vec{0, -80}},
	}

	skierZ := -50.0
	f.Advance(1, skierZ)

	require.Len(t, f.Obstacles(), 2)
	for _, o := range f.Obstacles() {
		assert.LessOrEqual(t, o.Z(), skierZ+CullDistance)
	}
	assert.Equal(t, -40.0, f.Obstacles()[0].Z())
	assert.Equal(t, -80.0, f.Obstacles()[1].Z())
}

func TestAdvance_LiveSetStaysBounded(t *testing.T) {
	tuning := DefaultTuning()
	f := NewField(tuning, fixedRand(0.5))

	z := 0.0
	maxLive := 0
	for tick := uint64(1); tick <= 20000; tick++ {
		z -= tuning.BaseSpeed
		f.Advance(tick, z)
		if f.Len() > maxLive {
			maxLive = f.Len()
		}
	}
	// obstacles live for (SpawnDistance+CullDistance)/speed ticks
	window := (SpawnDistance + CullDistance) / BaseSpeed
	assert.LessOrEqual(t, maxLive, int(window/SpawnInterval)+1)
}

func TestClear(t *testing.T) {
	f := NewField(DefaultTuning(), fixedRand(0.5))
	f.Advance(SpawnInterval, 0)
	require.Equal(t, 1, f.Len())

	f.Clear()
	assert.Equal(t, 0, f.Len())
}
