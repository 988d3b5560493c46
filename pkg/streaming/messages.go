package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/sloperunner/engine/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	// server -> client
	TypeSnapshot = "snapshot"
	TypeGameOver = "game_over"
	TypeAck      = "ack"

	// client -> server
	TypeKey    = "key"
	TypePose   = "pose"
	TypeIntent = "intent"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SnapshotPayload is the per-tick renderable state.
type SnapshotPayload = core.Snapshot

// GameOverPayload announces the end of a run.
type GameOverPayload struct {
	RunID     string `json:"runId"`
	Score     int    `json:"score"`
	Qualified bool   `json:"qualified"`
	Cause     string `json:"cause"`
}

// KeyPayload forwards a browser keydown/keyup event.
type KeyPayload struct {
	Key  string `json:"key"`
	Down bool   `json:"down"`
}

// PosePayload carries the head roll from a pose estimator, in radians.
// Lost is set when the estimator no longer sees a face.
type PosePayload struct {
	Roll *float64 `json:"roll"`
	Lost bool     `json:"lost"`
}

// IntentPayload sets the intent directly by name.
type IntentPayload struct {
	Intent string `json:"intent"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
