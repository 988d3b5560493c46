package stream

import (
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	sendChSize = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
)

// connection is one attached renderer with a single write goroutine.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{} // closed on shutdown
	closed bool

	remote string
	logger *slog.Logger
}

func newConnection(conn *ws.Conn, logger *slog.Logger) *connection {
	c := &connection{
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		remote: conn.RemoteAddr().String(),
		logger: logger,
	}
	c.logger = logger.With("remote", c.remote)
	return c
}

// writeLoop drains sendCh and writes messages to the WebSocket. It also
// keeps the connection alive with pings; it returns on error or shutdown.
func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				_ = c.close()
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Debug("WebSocket write error", "error", err)
				_ = c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.close()
				return
			}
		}
	}
}

// readLoop hands every inbound message to handle until the peer goes away.
func (c *connection) readLoop(handle func([]byte)) {
	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
					c.logger.Warn("WebSocket read error", "error", err)
				}
			}
			return
		}
		handle(message)
	}
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *connection) send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- data:
		return true
	default:
		c.logger.Debug("WebSocket send channel full, dropping message")
		return false
	}
}

// close sends a WebSocket close frame and shuts down the write goroutine.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	_ = c.conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return c.conn.Close()
}
