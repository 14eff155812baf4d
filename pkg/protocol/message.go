// Package protocol defines the WebSocket message types exchanged between
// camera clients, the perception server and event consumers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-cockpit/pkg/perception"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeObservation MessageType = "observation" // One frame of detector output
	TypeReset       MessageType = "reset"       // Re-arm the session's debounce state

	// Server → Client messages
	TypeSession       MessageType = "session"        // Assigned session id, sent on connect
	TypeEvents        MessageType = "events"         // Non-empty event batch
	TypeSessionEvents MessageType = "session_events" // Event batch tagged with its session, for subscribers
	TypeGaze          MessageType = "gaze"           // Latest gaze state
	TypeError         MessageType = "error"          // Rejected message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// ObservationData is one frame of detector output. Every field except
// TimestampMs may be omitted independently.
type ObservationData struct {
	TimestampMs float64       `json:"ts_ms"`              // Session-relative, monotonic
	Rotation    [][]float64   `json:"rotation,omitempty"` // 3×3 head rotation, row-major
	Face        []Point3      `json:"face,omitempty"`     // Face mesh incl. iris points, normalized
	Hand        []Point2      `json:"hand,omitempty"`     // 21 hand landmarks, normalized
	Gesture     *GestureLabel `json:"gesture,omitempty"`  // Raw classifier output
	Frame       *FrameSize    `json:"frame,omitempty"`    // Pixel size for landmark scaling
	Image       string        `json:"image,omitempty"`    // Optional base64 JPEG for pupil refinement
}

// Point2 is a normalized 2D landmark
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3 is a normalized 3D landmark
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GestureLabel is the top gesture classifier result
type GestureLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// FrameSize is the source frame size in pixels
type FrameSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// GazeData is a snapshot of the session's gaze state
type GazeData struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
	Distracted bool    `json:"distracted"`
	AwayMs     float64 `json:"away_ms,omitempty"` // Duration of the current excursion
}

// SessionData identifies the session a connection was given
type SessionData struct {
	ID   string `json:"id"`
	User string `json:"user"`
}

// SessionEventsData is one session's event batch as seen by subscribers
type SessionEventsData struct {
	SessionID string                `json:"session_id"`
	User      string                `json:"user"`
	Batch     perception.EventBatch `json:"batch"`
}

// ErrorData reports a message the server could not handle
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
