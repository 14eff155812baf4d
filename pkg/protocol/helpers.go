package protocol

import (
	"time"

	"github.com/teslashibe/go-cockpit/pkg/perception"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewObservationMessage creates an observation message
func NewObservationMessage(obs ObservationData) (*Message, error) {
	return NewMessage(TypeObservation, obs)
}

// NewResetMessage creates a reset message
func NewResetMessage() (*Message, error) {
	return NewMessage(TypeReset, nil)
}

// NewEventsMessage creates an events message from a processed batch
func NewEventsMessage(batch perception.EventBatch) (*Message, error) {
	return NewMessage(TypeEvents, batch)
}

// NewSessionMessage creates a session assignment message
func NewSessionMessage(id, user string) (*Message, error) {
	return NewMessage(TypeSession, SessionData{ID: id, User: user})
}

// NewSessionEventsMessage creates a subscriber-facing events message
func NewSessionEventsMessage(sessionID, user string, batch perception.EventBatch) (*Message, error) {
	return NewMessage(TypeSessionEvents, SessionEventsData{SessionID: sessionID, User: user, Batch: batch})
}

// NewGazeMessage creates a gaze snapshot message
func NewGazeMessage(state perception.GazeState, now time.Duration) (*Message, error) {
	data := GazeData{
		Direction:  string(state.Direction),
		Confidence: state.Confidence,
		Horizontal: state.Ratios.Horizontal,
		Vertical:   state.Ratios.Vertical,
		Distracted: state.Distracted,
	}
	if state.Away && now >= state.AwayStart {
		data.AwayMs = durationMs(now - state.AwayStart)
	}
	return NewMessage(TypeGaze, data)
}

// NewErrorMessage creates an error message
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetObservationData extracts observation data from a message
func (m *Message) GetObservationData() (*ObservationData, error) {
	var data ObservationData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEvents extracts an event batch from a message
func (m *Message) GetEvents() (*perception.EventBatch, error) {
	var data perception.EventBatch
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSessionData extracts a session assignment from a message
func (m *Message) GetSessionData() (*SessionData, error) {
	var data SessionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSessionEvents extracts a tagged event batch from a message
func (m *Message) GetSessionEvents() (*SessionEventsData, error) {
	var data SessionEventsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGazeData extracts gaze data from a message
func (m *Message) GetGazeData() (*GazeData, error) {
	var data GazeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
