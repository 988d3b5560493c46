package sim

import "errors"

var (
	// ErrInvalidTransition is returned when Tick or Reset is called from a state
	// that does not allow it. It signals a caller bug, not a runtime condition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidTuning is returned by New when the tuning would break tick invariants.
	ErrInvalidTuning = errors.New("invalid tuning")
)
