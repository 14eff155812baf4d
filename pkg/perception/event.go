package perception

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind tags a SemanticEvent variant.
type EventKind string

const (
	KindHeadMotion     EventKind = "head_motion"
	KindGazeUpdate     EventKind = "gaze_update"
	KindGestureCommand EventKind = "gesture_command"
)

// SemanticEvent is one of HeadMotion, GazeUpdate or GestureCommand.
// Consumers switch on the concrete type.
type SemanticEvent interface {
	Kind() EventKind
	semanticEvent()
}

// HeadGesture is a discrete head movement.
type HeadGesture string

const (
	HeadNone  HeadGesture = ""
	HeadNod   HeadGesture = "NOD"
	HeadShake HeadGesture = "SHAKE"
)

// HeadMotion reports a debounced nod or shake.
type HeadMotion struct {
	Motion HeadGesture `json:"motion"`
}

// GazeUpdate reports a change of gaze direction or distraction state.
type GazeUpdate struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Distracted bool      `json:"distracted"`
	Horizontal float64   `json:"horizontal"`
	Vertical   float64   `json:"vertical"`
}

// GestureCommand is a hand gesture mapped to a vehicle action.
type GestureCommand struct {
	Action  string       `json:"action"`
	Gesture string       `json:"gesture"`
	Class   GestureClass `json:"class"`
}

func (HeadMotion) Kind() EventKind     { return KindHeadMotion }
func (GazeUpdate) Kind() EventKind     { return KindGazeUpdate }
func (GestureCommand) Kind() EventKind { return KindGestureCommand }

func (HeadMotion) semanticEvent()     {}
func (GazeUpdate) semanticEvent()     {}
func (GestureCommand) semanticEvent() {}

// EventBatch is the output of one processed frame.
type EventBatch struct {
	Timestamp time.Duration
	Events    []SemanticEvent
}

// Empty reports whether the batch carries no events.
func (b EventBatch) Empty() bool { return len(b.Events) == 0 }

type eventEnvelope struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type batchJSON struct {
	TimestampMs float64         `json:"ts_ms"`
	Events      []eventEnvelope `json:"events"`
}

// MarshalJSON encodes the batch as {"ts_ms":..., "events":[{"kind","payload"}]}.
func (b EventBatch) MarshalJSON() ([]byte, error) {
	out := batchJSON{
		TimestampMs: float64(b.Timestamp) / float64(time.Millisecond),
		Events:      make([]eventEnvelope, 0, len(b.Events)),
	}
	for _, ev := range b.Events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
		}
		out.Events = append(out.Events, eventEnvelope{Kind: ev.Kind(), Payload: payload})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the format produced by MarshalJSON.
func (b *EventBatch) UnmarshalJSON(data []byte) error {
	var in batchJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.Timestamp = time.Duration(in.TimestampMs * float64(time.Millisecond))
	b.Events = make([]SemanticEvent, 0, len(in.Events))
	for _, env := range in.Events {
		var ev SemanticEvent
		var err error
		switch env.Kind {
		case KindHeadMotion:
			var v HeadMotion
			err = json.Unmarshal(env.Payload, &v)
			ev = v
		case KindGazeUpdate:
			var v GazeUpdate
			err = json.Unmarshal(env.Payload, &v)
			ev = v
		case KindGestureCommand:
			var v GestureCommand
			err = json.Unmarshal(env.Payload, &v)
			ev = v
		default:
			return fmt.Errorf("perception: unknown event kind %q", env.Kind)
		}
		if err != nil {
			return fmt.Errorf("decode %s event: %w", env.Kind, err)
		}
		b.Events = append(b.Events, ev)
	}
	return nil
}
