package sim

import (
	"fmt"
	"math"
)

// Defaults mirror the feel of the browser build: 60 ticks per second,
// one obstacle per second and one score point per second survived.
const (
	SlopeAngle        = math.Pi / 6
	HeightOffset      = -2.0
	BaseSpeed         = 0.2
	SpeedIncrement    = 0.0001
	MoveSpeed         = 0.15
	LateralLimit      = 8.0
	SpawnHalfWidth    = 8.0
	SlopeHalfWidth    = 10.0
	BoundaryMargin    = 1.0
	SpawnDistance     = 50.0
	CullDistance      = 10.0
	SpawnInterval     = 60
	TicksPerScoreUnit = 60
	TreeWeight        = 0.7
	SkierRadius       = 0.4
	TreeRadius        = 0.7
	RockRadius        = 0.8
	TiltAngle         = math.Pi / 12
)

// Tuning holds every constant the simulation reads. The zero value is not
// usable; start from DefaultTuning and override fields.
type Tuning struct {
	SlopeAngle        float64
	HeightOffset      float64
	BaseSpeed         float64
	SpeedIncrement    float64
	MoveSpeed         float64
	LateralLimit      float64
	SpawnHalfWidth    float64
	SlopeHalfWidth    float64
	BoundaryMargin    float64
	SpawnDistance     float64
	CullDistance      float64
	SpawnInterval     uint64
	TicksPerScoreUnit uint64
	TreeWeight        float64
	SkierRadius       float64
	TreeRadius        float64
	RockRadius        float64
	TiltAngle         float64
}

// DefaultTuning returns the stock constants.
func DefaultTuning() Tuning {
	return Tuning{
		SlopeAngle:        SlopeAngle,
		HeightOffset:      HeightOffset,
		BaseSpeed:         BaseSpeed,
		SpeedIncrement:    SpeedIncrement,
		MoveSpeed:         MoveSpeed,
		LateralLimit:      LateralLimit,
		SpawnHalfWidth:    SpawnHalfWidth,
		SlopeHalfWidth:    SlopeHalfWidth,
		BoundaryMargin:    BoundaryMargin,
		SpawnDistance:     SpawnDistance,
		CullDistance:      CullDistance,
		SpawnInterval:     SpawnInterval,
		TicksPerScoreUnit: TicksPerScoreUnit,
		TreeWeight:        TreeWeight,
		SkierRadius:       SkierRadius,
		TreeRadius:        TreeRadius,
		RockRadius:        RockRadius,
		TiltAngle:         TiltAngle,
	}
}

// Height returns the slope height at forward coordinate z.
func (t Tuning) Height(z float64) float64 {
	return math.Sin(t.SlopeAngle)*math.Abs(z) + t.HeightOffset
}

// Validate rejects tunings that would break the tick invariants.
func (t Tuning) Validate() error {
	switch {
	case t.SpawnInterval == 0:
		return fmt.Errorf("%w: spawn interval must be positive", ErrInvalidTuning)
	case t.TicksPerScoreUnit == 0:
		return fmt.Errorf("%w: ticks per score unit must be positive", ErrInvalidTuning)
	case t.BaseSpeed <= 0 || t.SpeedIncrement <= 0:
		return fmt.Errorf("%w: forward speed and its increment must be positive", ErrInvalidTuning)
	case t.TreeWeight < 0 || t.TreeWeight > 1:
		return fmt.Errorf("%w: tree weight must be within [0,1]", ErrInvalidTuning)
	case t.SkierRadius < 0 || t.TreeRadius < 0 || t.RockRadius < 0:
		return fmt.Errorf("%w: radii must not be negative", ErrInvalidTuning)
	}
	return nil
}
