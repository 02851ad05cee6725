package chat

import "time"

// Turn is one completed exchange: the user message and the assistant reply
// the session committed for it.
type Turn struct {
	// ConversationID is the session's conversation id at commit time.
	// Empty when the server never issued one.
	ConversationID string `json:"conversation_id,omitempty"`

	// User is the message that opened the turn.
	User Message `json:"user"`

	// Assistant is the committed reply. On upstream failure this is the
	// fixed fallback reply, not the raw error.
	Assistant Message `json:"assistant"`

	// Streaming reports whether the turn used the streaming path.
	Streaming bool `json:"streaming"`

	// Errored reports whether the assistant reply is the fallback committed
	// after an upstream error event.
	Errored bool `json:"errored,omitempty"`

	// Duration is the wall time from send to commit.
	Duration time.Duration `json:"-"`
}

// TurnObserver receives a notification once per committed assistant message.
// Observers are registered on a Session with Subscribe and removed by calling
// the returned cancel function; their lifetime is explicit and owned by the
// caller, never process-global.
//
// OnTurnCompleted is invoked synchronously after the commit, outside the
// session's lock. Implementations that do slow work should hand off to their
// own goroutine.
type TurnObserver interface {
	OnTurnCompleted(turn Turn)
}

// TurnObserverFunc adapts a function to the TurnObserver interface.
type TurnObserverFunc func(turn Turn)

// OnTurnCompleted calls f(turn).
func (f TurnObserverFunc) OnTurnCompleted(turn Turn) { f(turn) }
