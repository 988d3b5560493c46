package control

import (
	"sync/atomic"

	"github.com/sloperunner/engine/pkg/core"
)

// Key names follow the DOM KeyboardEvent.key values the browser client forwards.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

// Keyboard tracks the held state of the two steering keys.
type Keyboard struct {
	left  atomic.Bool
	right atomic.Bool
}

// NewKeyboard returns a keyboard with no keys held.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// KeyDown records a press. Other keys are ignored.
func (k *Keyboard) KeyDown(key string) {
	k.set(key, true)
}

// KeyUp records a release. Other keys are ignored.
func (k *Keyboard) KeyUp(key string) {
	k.set(key, false)
}

func (k *Keyboard) set(key string, down bool) {
	switch key {
	case KeyArrowLeft:
		k.left.Store(down)
	case KeyArrowRight:
		k.right.Store(down)
	}
}

// Release clears both keys, e.g. when the client disconnects.
func (k *Keyboard) Release() {
	k.left.Store(false)
	k.right.Store(false)
}

// Sample implements Source.
func (k *Keyboard) Sample() core.Intent {
	return Normalize(k.left.Load(), k.right.Load())
}
