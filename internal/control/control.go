// Package control turns raw player input into the lateral intent the
// simulation samples once per tick. Every source publishes last-write-wins:
// there is no history, so a press and release between two ticks is lost.
package control

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sloperunner/engine/pkg/core"
)

// ErrInvalidControlInput marks malformed input. Sources recover by publishing IntentNone.
var ErrInvalidControlInput = errors.New("invalid control input")

// Source is polled by the tick loop.
type Source interface {
	Sample() core.Intent
}

// SourceFunc adapts a function to Source.
type SourceFunc func() core.Intent

// Sample calls f.
func (f SourceFunc) Sample() core.Intent { return f() }

// Normalize folds two direction flags into one intent. Left wins when both are held.
func Normalize(left, right bool) core.Intent {
	switch {
	case left:
		return core.IntentLeft
	case right:
		return core.IntentRight
	default:
		return core.IntentNone
	}
}

// Latest is a last-write-wins intent cell safe for one writer goroutine and
// the tick goroutine.
type Latest struct {
	v atomic.Uint32
}

// Publish stores the intent. An undeclared intent is stored as IntentNone.
func (l *Latest) Publish(i core.Intent) error {
	if !i.Valid() {
		l.v.Store(uint32(core.IntentNone))
		return fmt.Errorf("%w: intent %d", ErrInvalidControlInput, i)
	}
	l.v.Store(uint32(i))
	return nil
}

// Sample returns the most recently published intent.
func (l *Latest) Sample() core.Intent {
	return core.Intent(l.v.Load())
}

// First polls sources in order and returns the first intent that is not none.
func First(sources ...Source) Source {
	return SourceFunc(func() core.Intent {
		for _, s := range sources {
			if s == nil {
				continue
			}
			if i := s.Sample(); i != core.IntentNone {
				return i
			}
		}
		return core.IntentNone
	})
}

// Parse maps a wire name ("left", "right", "none" or "") to an intent.
func Parse(name string) (core.Intent, error) {
	switch name {
	case "left":
		return core.IntentLeft, nil
	case "right":
		return core.IntentRight, nil
	case "none", "":
		return core.IntentNone, nil
	default:
		return core.IntentNone, fmt.Errorf("%w: unknown intent %q", ErrInvalidControlInput, name)
	}
}
