package session

import (
	"log/slog"
	"sync"

	"github.com/sloperunner/engine/pkg/core"
)

// Context holds the state of the current run for log enrichment. The tick
// goroutine writes it; log handlers on any goroutine read it.
type Context struct {
	mu    sync.RWMutex
	runID string
	run   int
	tick  uint64
	score int
	state core.GameState
}

// NewContext creates a Context with no run loaded.
func NewContext() *Context {
	return &Context{state: core.StatePlaying}
}

// StartRun records a fresh run.
func (c *Context) StartRun(runID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runID = runID
	c.run = n
	c.tick = 0
	c.score = 0
	c.state = core.StatePlaying
}

// Update records the progress of the current run.
func (c *Context) Update(tick uint64, score int, state core.GameState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = tick
	c.score = score
	c.state = state
}

// RunID returns the id of the current run.
func (c *Context) RunID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runID
}

// Attrs returns the run attributes. It is a logging.ContextProvider.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.runID == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("run", c.runID),
		slog.Uint64("tick", c.tick),
		slog.Int("score", c.score),
		slog.String("state", string(c.state)),
	}
}
