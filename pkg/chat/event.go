package chat

import (
	"encoding/json"
	"fmt"
)

// Stream event types emitted by the bridge during a streaming turn.
//
// A turn's event sequence is normally zero or more message_delta events
// followed by chat_completed and then end. The bridge may also close the
// stream right after the last delta (end without chat_completed), or report
// a failure mid-turn with an error event. Session reconciles all of these
// into at most one committed assistant message per turn.
const (
	EventMessageDelta  = "message_delta"
	EventChatCompleted = "chat_completed"
	EventError         = "error"
	EventEnd           = "end"
)

// StreamEvent is one decoded frame from the bridge's streaming response.
// It is transient: events drive session state transitions and caller
// rendering but are never stored.
type StreamEvent struct {
	// Type is one of the Event* constants.
	Type string `json:"type"`

	// Content carries the partial text of a message_delta, or the full
	// reply of a chat_completed when the bridge did not stream deltas.
	Content string `json:"content,omitempty"`

	// ConversationID is set on chat_completed when the server issued or
	// rotated the conversation id.
	ConversationID string `json:"conversation_id,omitempty"`

	// Error carries the upstream failure description on error events.
	// It is never surfaced to the transcript.
	Error string `json:"error,omitempty"`

	// Timestamp is informational and may be empty.
	Timestamp string `json:"timestamp,omitempty"`
}

// IsTerminal reports whether the event ends the current turn's stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}

// ParseStreamEvent decodes a data frame payload into a StreamEvent.
// A payload that is not valid JSON, or that carries no recognized type, is a
// per-frame error: callers log and skip it without aborting the stream.
func ParseStreamEvent(payload []byte) (*StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("parsing stream event: %w", err)
	}

	switch ev.Type {
	case EventMessageDelta, EventChatCompleted, EventError, EventEnd:
		return &ev, nil
	default:
		return nil, fmt.Errorf("unknown stream event type %q", ev.Type)
	}
}
