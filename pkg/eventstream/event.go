// Package eventstream defines transport-neutral events for completed chat
// turns and the Publisher interface backends implement. The nop subpackage
// serves disabled mode and tests; the kafka subpackage publishes to a broker.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/rwahub/chatlink/pkg/chat"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a conversation turn commits.
	EventTypeTurnCompleted = "chatlink.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for one committed
// conversation turn.
type TurnCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	TurnMeta      TurnMeta    `json:"turn_meta"`
	Turn          chat.Turn   `json:"turn"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	Service string `json:"service"`
	UserID  string `json:"user_id,omitempty"`
}

// TurnMeta captures turn lifecycle metadata for the event.
type TurnMeta struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Streaming      bool   `json:"streaming"`
	Errored        bool   `json:"errored,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// NewTurnCompletedEvent wraps a committed turn in a v1 event envelope.
func NewTurnCompletedEvent(source EventSource, turn chat.Turn) *TurnCompletedEvent {
	return &TurnCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		TurnMeta: TurnMeta{
			ConversationID: turn.ConversationID,
			Streaming:      turn.Streaming,
			Errored:        turn.Errored,
			DurationMs:     turn.Duration.Milliseconds(),
		},
		Turn: turn,
	}
}
