package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register("leaderboard:get", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: "leaderboard:get", Args: []string{"arg1"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "leaderboard:unknown"})

	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register("run:finished", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(100))

	// Dispatch 3 events
	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Command: "run:finished"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	// Wait for processing
	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	// Block the handler so queue fills up
	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("run:finished", func(e Event) (any, error) {
		started <- struct{}{}
		<-block
		return nil, nil
	}, Buffered(2))

	d.Dispatch(Event{Command: "run:finished"}) // being processed
	<-started
	d.Dispatch(Event{Command: "run:finished"}) // queued
	d.Dispatch(Event{Command: "run:finished"}) // queued

	// This should be dropped
	_, err := d.Dispatch(Event{Command: "run:finished"})

	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(block)
	go func() {
		for range started {
		}
	}()
	d.Close()
	close(started)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("run:finished", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	// First event starts processing
	d.Dispatch(Event{Command: "run:finished"})
	<-started
	// Second event fills the queue
	d.Dispatch(Event{Command: "run:finished"})

	// Third event should block (test with timeout)
	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: "run:finished"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
	<-done
	d.Close()
}

func TestDispatcher_BlockingRespectsContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("run:finished", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: "run:finished"})
	<-started
	d.Dispatch(Event{Command: "run:finished"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Dispatch(Event{Command: "run:finished", Context: ctx})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	close(block)
	d.Close()
}

func TestDispatcher_AwaitedReturnsHandlerResult(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("leaderboard:submit", func(e Event) (any, error) {
		if e.Payload == "bad" {
			return nil, fmt.Errorf("rejected")
		}
		return e.Payload, nil
	}, Buffered(4), Awaited())

	result, err := d.Dispatch(Event{Command: "leaderboard:submit", Payload: "Ann"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Ann" {
		t.Errorf("expected 'Ann', got %v", result)
	}

	_, err = d.Dispatch(Event{Command: "leaderboard:submit", Payload: "bad"})
	if err == nil {
		t.Error("expected handler error to be returned")
	}
	d.Close()
}

func TestDispatcher_AwaitedSerializesHandlers(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var inFlight, maxInFlight atomic.Int32
	d.Register("leaderboard:submit", func(e Event) (any, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	}, Buffered(64), Blocking(), Awaited())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Dispatch(Event{Command: "leaderboard:submit"}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	d.Close()

	if maxInFlight.Load() != 1 {
		t.Errorf("expected handler calls to be serialized, saw %d concurrent", maxInFlight.Load())
	}
}

func TestDispatcher_CloseDrainsAndRejects(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("run:finished", func(e Event) (any, error) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		d.Dispatch(Event{Command: "run:finished"})
	}
	d.Close()

	if processed.Load() != 5 {
		t.Errorf("expected queue to drain, processed %d", processed.Load())
	}
	if _, err := d.Dispatch(Event{Command: "run:finished"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("leaderboard:get", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: "leaderboard:get", Args: []string{"a", "b"}})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("leaderboard:get", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(Event{Command: "leaderboard:get"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("leaderboard:get", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("leaderboard:get") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("leaderboard:missing") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32

	d.Register("run:finished", func(e Event) (any, error) {
		processed.Add(1)
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(Event{Command: "run:finished"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "queued" {
		t.Errorf("expected 'queued', got %v", result)
	}

	d.Close()

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_AwaitedDispatchRacingCloseNeverHangs(t *testing.T) {
	for round := 0; round < 50; round++ {
		d, _ := newTestDispatcher(t)
		d.Register("leaderboard:write", func(e Event) (any, error) {
			return "saved", nil
		}, Buffered(4), Blocking(), Awaited())

		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := d.Dispatch(Event{Command: "leaderboard:write"})
				if err == nil && v != "saved" {
					err = fmt.Errorf("unexpected result %v", v)
				}
				results <- err
			}()
		}
		d.Close()

		finished := make(chan struct{})
		go func() {
			wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: awaited dispatch hung after Close", round)
		}
		close(results)
		for err := range results {
			if err != nil && !errors.Is(err, ErrClosed) {
				t.Errorf("round %d: expected success or ErrClosed, got %v", round, err)
			}
		}
	}
}
