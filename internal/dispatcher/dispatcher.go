package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrQueueFull is returned when a non-blocking buffered handler is saturated.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned for events dispatched after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event represents an incoming command.
type Event struct {
	Command   string
	Args      []string
	Payload   any
	Timestamp time.Time
	// Context bounds how long an awaited Dispatch waits. It is not passed on
	// to stores: a queued command always runs to completion.
	Context context.Context
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	awaited    bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size. One
// goroutine drains the queue, so handler calls never overlap.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Awaited makes Dispatch on a buffered handler wait for the handler's result
// instead of returning "queued".
func Awaited() Option {
	return func(c *config) {
		c.awaited = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type result struct {
	value any
	err   error
}

type job struct {
	event Event
	reply chan result
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	// Track buffers for gauge callback
	mu      sync.RWMutex
	buffers map[string]chan job

	// closeMu orders enqueues against Close: a job is either in a buffer
	// before done closes, and so drained, or rejected with ErrClosed.
	closeMu sync.RWMutex
	closed  bool
	done    chan struct{}
	workers sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan job),
		logger:   logger,
		done:     make(chan struct{}),
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Handlers are registered at startup, before the first Dispatch.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	if e.Context == nil {
		e.Context = context.Background()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Close stops accepting buffered events, lets every queue drain and waits for
// the consumers to exit.
func (d *Dispatcher) Close() {
	d.closeMu.Lock()
	if !d.closed {
		d.closed = true
		close(d.done)
	}
	d.closeMu.Unlock()
	d.workers.Wait()
}

// enqueue puts j on buffer unless the dispatcher is closed. Blocking waits
// for room or for ctx.
func (d *Dispatcher) enqueue(ctx context.Context, buffer chan job, j job, blocking bool) error {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	if blocking {
		select {
		case buffer <- j:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case buffer <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) withBuffer(command string, cfg *config, h HandlerFunc) HandlerFunc {
	buffer := make(chan job, cfg.bufferSize)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	run := func(j job) {
		value, err := h(j.event)
		d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		if j.reply != nil {
			j.reply <- result{value: value, err: err}
		}
	}

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for {
			select {
			case j := <-buffer:
				run(j)
			case <-d.done:
				for {
					select {
					case j := <-buffer:
						run(j)
					default:
						return
					}
				}
			}
		}
	}()

	return func(e Event) (any, error) {
		j := job{event: e}
		if cfg.awaited {
			j.reply = make(chan result, 1)
		}

		if err := d.enqueue(e.Context, buffer, j, cfg.blocking); err != nil {
			switch {
			case errors.Is(err, ErrQueueFull):
				d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
				return nil, fmt.Errorf("%w: %s", err, command)
			case errors.Is(err, ErrClosed):
				return nil, fmt.Errorf("%w: %s", err, command)
			default:
				return nil, err
			}
		}

		if !cfg.awaited {
			return "queued", nil
		}

		select {
		case r := <-j.reply:
			return r.value, r.err
		case <-e.Context.Done():
			return nil, e.Context.Err()
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
