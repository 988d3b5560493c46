// Package stream attaches external renderers and input devices to a running
// session over WebSocket. The hub broadcasts every snapshot to all attached
// clients and folds their keyboard, pose and intent messages into one
// control source.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	ws "github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"github.com/sloperunner/engine/internal/control"
	"github.com/sloperunner/engine/pkg/core"
	"github.com/sloperunner/engine/pkg/streaming"
)

// ErrClosed is returned when the hub no longer accepts clients.
var ErrClosed = errors.New("stream hub closed")

// Hub is a sim.Renderer and a control.Source at the same time.
type Hub struct {
	mu      deadlock.Mutex
	clients map[*connection]struct{}
	closed  bool

	keyboard *control.Keyboard
	pose     *control.Pose
	remote   control.Latest
	source   control.Source

	upgrader ws.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub. Browser connections are only accepted from
// allowedOrigin; "*" accepts any origin.
func NewHub(logger *slog.Logger, allowedOrigin string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:  make(map[*connection]struct{}),
		keyboard: control.NewKeyboard(),
		pose:     control.NewPose(control.DefaultDeadZone),
		logger:   logger,
	}
	h.source = control.First(h.keyboard, h.pose, &h.remote)
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
		},
	}
	return h
}

// Source returns the merged intent of every attached client. The keyboard
// takes precedence over pose, pose over direct intents.
func (h *Hub) Source() control.Source {
	return h.source
}

// Clients returns the number of attached clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Present implements sim.Renderer by broadcasting the snapshot.
func (h *Hub) Present(snap core.Snapshot) error {
	return h.broadcast(streaming.TypeSnapshot, snap)
}

// GameOver announces the end of a run to every client.
func (h *Hub) GameOver(payload streaming.GameOverPayload) error {
	return h.broadcast(streaming.TypeGameOver, payload)
}

func (h *Hub) broadcast(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.send(data)
	}
	return nil
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newConnection(conn, h.logger)
	if err := h.attach(c); err != nil {
		_ = c.close()
		return
	}
	h.logger.Info("Stream client attached", "remote", c.remote)

	go c.writeLoop()
	c.readLoop(func(data []byte) {
		if err := h.handle(c, data); err != nil {
			h.logger.Debug("Discarding client message", "remote", c.remote, "error", err)
		}
	})

	h.detach(c)
	_ = c.close()
	h.logger.Info("Stream client detached", "remote", c.remote)
}

func (h *Hub) attach(c *connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.clients[c] = struct{}{}
	return nil
}

// detach removes the client. When the last client leaves, held input is
// released so the skier does not keep turning.
func (h *Hub) detach(c *connection) {
	h.mu.Lock()
	delete(h.clients, c)
	remaining := len(h.clients)
	h.mu.Unlock()

	if remaining == 0 {
		h.keyboard.Release()
		h.pose.Lost()
		_ = h.remote.Publish(core.IntentNone)
	}
}

// handle applies one inbound message. Malformed input resets the affected
// source to neutral.
func (h *Hub) handle(c *connection, data []byte) error {
	var env streaming.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", control.ErrInvalidControlInput, err)
	}

	switch env.Type {
	case streaming.TypeKey:
		var p streaming.KeyPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("%w: key payload: %v", control.ErrInvalidControlInput, err)
		}
		if p.Down {
			h.keyboard.KeyDown(p.Key)
		} else {
			h.keyboard.KeyUp(p.Key)
		}
	case streaming.TypePose:
		var p streaming.PosePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.pose.Lost()
			return fmt.Errorf("%w: pose payload: %v", control.ErrInvalidControlInput, err)
		}
		if p.Lost || p.Roll == nil {
			h.pose.Lost()
			return nil
		}
		if err := h.pose.Observe(*p.Roll); err != nil {
			return err
		}
	case streaming.TypeIntent:
		var p streaming.IntentPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			_ = h.remote.Publish(core.IntentNone)
			return fmt.Errorf("%w: intent payload: %v", control.ErrInvalidControlInput, err)
		}
		intent, err := control.Parse(p.Intent)
		_ = h.remote.Publish(intent)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown message type %q", control.ErrInvalidControlInput, env.Type)
	}

	if env.Type != streaming.TypePose {
		ack, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
		c.send(ack)
	}
	return nil
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*connection, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.close(); err != nil && !errors.Is(err, ws.ErrCloseSent) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
