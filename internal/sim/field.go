package sim

import "github.com/sloperunner/engine/pkg/core"

// Rand is the random source the field draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Field owns the live obstacle set.
type Field struct {
	tuning    Tuning
	rng       Rand
	obstacles []core.Obstacle
}

// NewField creates an empty field.
func NewField(t Tuning, rng Rand) *Field {
	return &Field{tuning: t, rng: rng}
}

// Advance spawns one obstacle on cadence ticks, then culls every obstacle that
// has fallen more than CullDistance behind skierZ. It reports whether an
// obstacle was spawned.
func (f *Field) Advance(tick uint64, skierZ float64) bool {
	spawned := false
	if tick%f.tuning.SpawnInterval == 0 {
		f.obstacles = append(f.obstacles, f.spawn(skierZ))
		spawned = true
	}
	f.cull(skierZ)
	return spawned
}

func (f *Field) spawn(skierZ float64) core.Obstacle {
	kind, radius := core.KindRock, f.tuning.RockRadius
	if f.rng.Float64() < f.tuning.TreeWeight {
		kind, radius = core.KindTree, f.tuning.TreeRadius
	}
	x := (f.rng.Float64()*2 - 1) * f.tuning.SpawnHalfWidth
	z := skierZ - f.tuning.SpawnDistance
	return core.Obstacle{
		Kind:     kind,
		Position: core.Vec{x, z},
		Y:        f.tuning.Height(z),
		Radius:   radius,
	}
}

// cull rebuilds the live set instead of deleting while iterating.
func (f *Field) cull(skierZ float64) {
	limit := skierZ + f.tuning.CullDistance
	kept := f.obstacles[:0:0]
	for _, o := range f.obstacles {
		if o.Z() > limit {
			continue
		}
		kept = append(kept, o)
	}
	f.obstacles = kept
}

// Obstacles returns the live set. Callers must not modify it.
func (f *Field) Obstacles() []core.Obstacle {
	return f.obstacles
}

// Len returns the number of live obstacles.
func (f *Field) Len() int {
	return len(f.obstacles)
}

// Clear drops every obstacle.
func (f *Field) Clear() {
	f.obstacles = nil
}
