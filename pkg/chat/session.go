package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rwahub/chatlink/pkg/logger"
)

// ErrorReply is the fixed user-facing reply committed to history when the
// bridge reports a failure mid-turn. Raw upstream error strings never reach
// the transcript.
const ErrorReply = "Sorry, something went wrong. Please try again later."

// defaultUserID is sent when neither the call nor the session supplies one.
const defaultUserID = "guest"

// BridgeClient is the transport a Session drives. *bridge.Client satisfies
// it; tests supply fakes.
type BridgeClient interface {
	// Chat performs a blocking chat call.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream performs a streaming chat call, invoking onEvent for every
	// decoded event in arrival order. It returns when the stream ends or on
	// transport failure.
	ChatStream(ctx context.Context, req ChatRequest, onEvent func(StreamEvent)) error
}

// Session owns the conversation state for one logical dialogue with the
// bridge: the server-issued conversation id, the append-only message
// history, and the per-turn accumulation of streamed partial content.
//
// A session is safe for concurrent use, but turns are expected to be
// serialized by the caller: starting a second streaming turn while one is in
// flight interleaves replies in an order the bridge does not define. The
// session's own state stays consistent either way, because each turn's
// accumulator lives in a turn-scoped state object and history commits happen
// under the session lock.
type Session struct {
	client BridgeClient
	logger *slog.Logger
	userID string

	mu             sync.Mutex
	conversationID string
	history        []Message
	observers      map[uint64]TurnObserver
	nextObserverID uint64
}

// SessionOption configures a Session created with NewSession.
type SessionOption func(*Session)

// WithLogger sets the session's logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithUserID sets the user id sent on requests that don't supply their own.
func WithUserID(id string) SessionOption {
	return func(s *Session) { s.userID = id }
}

// WithConversationID restores a previously persisted conversation id so the
// dialogue resumes its server-side context.
func WithConversationID(id string) SessionOption {
	return func(s *Session) { s.conversationID = id }
}

// NewSession creates a Session over the given client.
func NewSession(client BridgeClient, opts ...SessionOption) *Session {
	s := &Session{
		client:    client,
		logger:    logger.Nop(),
		observers: make(map[uint64]TurnObserver),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// turnState carries the accumulation state for a single turn. It is created
// at turn start and passed explicitly through the event handling path, so
// nothing of one turn can leak into the next through captured variables.
type turnState struct {
	user        Message
	accumulator strings.Builder
	streaming   bool
	committed   bool
	startedAt   time.Time
}

// SendMessage performs one blocking turn: the user message is appended to
// history, sent to the bridge along with the current conversation id, and
// the assistant's reply from the response body is appended on success.
//
// userID overrides the session's configured user id for this call when
// non-empty. On failure the user message stays in history and no assistant
// message is committed.
func (s *Session) SendMessage(ctx context.Context, content, userID string) (*ChatResponse, error) {
	userMsg := NewUserMessage(content)

	s.mu.Lock()
	s.history = append(s.history, userMsg)
	conversationID := s.conversationID
	s.mu.Unlock()

	startedAt := time.Now()

	resp, err := s.client.Chat(ctx, ChatRequest{
		UserID:         s.resolveUserID(userID),
		Messages:       []Message{userMsg},
		ConversationID: conversationID,
		Stream:         false,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return resp, fmt.Errorf("bridge rejected chat: %s", resp.Message)
	}

	s.mu.Lock()
	if resp.ConversationID != "" {
		s.conversationID = resp.ConversationID
	}

	var assistant Message
	committed := false
	if resp.Data.Content != "" {
		assistant = NewAssistantMessage(resp.Data.Content)
		s.history = append(s.history, assistant)
		committed = true
	}

	conversationID = s.conversationID
	observers := s.observerList()
	s.mu.Unlock()

	if committed {
		s.notify(observers, Turn{
			ConversationID: conversationID,
			User:           userMsg,
			Assistant:      assistant,
			Duration:       time.Since(startedAt),
		})
	}

	return resp, nil
}

// SendStreamMessage performs one streaming turn. The user message is
// appended to history immediately, before the request is issued, so callers
// can render it without waiting on the bridge. Every decoded stream event is
// first applied to the session's reconciliation policy and then forwarded to
// onEvent (which may be nil). The call returns when the stream ends.
//
// Transport failures bubble up; the turn's accumulator is discarded and no
// partial assistant message is committed, so the next turn starts clean.
func (s *Session) SendStreamMessage(ctx context.Context, content string, onEvent func(StreamEvent), userID string) error {
	userMsg := NewUserMessage(content)

	s.mu.Lock()
	s.history = append(s.history, userMsg)
	conversationID := s.conversationID
	s.mu.Unlock()

	turn := &turnState{
		user:      userMsg,
		streaming: true,
		startedAt: time.Now(),
	}

	req := ChatRequest{
		UserID:         s.resolveUserID(userID),
		Messages:       []Message{userMsg},
		ConversationID: conversationID,
		Stream:         true,
	}

	return s.client.ChatStream(ctx, req, func(ev StreamEvent) {
		s.applyEvent(turn, ev)
		if onEvent != nil {
			onEvent(ev)
		}
	})
}

// applyEvent advances the turn through the reconciliation policy.
//
// The invariant at stake: at most one assistant message is committed per
// turn, no matter which of chat_completed / end / error arrives, or in what
// combination.
func (s *Session) applyEvent(turn *turnState, ev StreamEvent) {
	switch ev.Type {
	case EventMessageDelta:
		// Fragments concatenate in arrival order, no separator. An empty
		// delta is a no-op.
		if ev.Content != "" {
			turn.accumulator.WriteString(ev.Content)
		}

	case EventChatCompleted:
		final := turn.accumulator.String()
		if final == "" {
			final = ev.Content
		}
		assistant := NewAssistantMessage(final)

		s.mu.Lock()
		if ev.ConversationID != "" {
			// The server may rotate ids; its latest word is authoritative.
			s.conversationID = ev.ConversationID
		}
		// A completion arriving after the turn already terminated (an error
		// event, or a duplicated chat_completed) must not commit again.
		if turn.committed {
			s.mu.Unlock()
			turn.accumulator.Reset()
			return
		}
		turn.committed = true
		s.history = append(s.history, assistant)
		conversationID := s.conversationID
		observers := s.observerList()
		s.mu.Unlock()

		turn.accumulator.Reset()

		s.notify(observers, Turn{
			ConversationID: conversationID,
			User:           turn.user,
			Assistant:      assistant,
			Streaming:      turn.streaming,
			Duration:       time.Since(turn.startedAt),
		})

	case EventError:
		s.logger.Warn("bridge reported stream error", "error", ev.Error)

		// Terminal for the turn. If a reply was already committed, log and
		// leave the transcript alone.
		if turn.committed {
			turn.accumulator.Reset()
			return
		}
		turn.committed = true

		assistant := NewAssistantMessage(ErrorReply)

		s.mu.Lock()
		s.history = append(s.history, assistant)
		conversationID := s.conversationID
		observers := s.observerList()
		s.mu.Unlock()

		turn.accumulator.Reset()

		s.notify(observers, Turn{
			ConversationID: conversationID,
			User:           turn.user,
			Assistant:      assistant,
			Streaming:      turn.streaming,
			Errored:        true,
			Duration:       time.Since(turn.startedAt),
		})

	case EventEnd:
		// end is a stream-termination signal, not necessarily a
		// content-bearing one. A leftover accumulator means chat_completed
		// never fired (e.g. the transport closed right after the last
		// delta) and the turn must not silently lose content.
		if turn.committed || turn.accumulator.Len() == 0 {
			return
		}

		assistant := NewAssistantMessage(turn.accumulator.String())
		turn.accumulator.Reset()

		s.mu.Lock()
		// Duplicate suppression: if this turn's reply already landed, the
		// last history entry is an assistant message and committing again
		// would double-append.
		if n := len(s.history); n > 0 && s.history[n-1].IsAssistant() {
			s.mu.Unlock()
			return
		}
		turn.committed = true
		s.history = append(s.history, assistant)
		conversationID := s.conversationID
		observers := s.observerList()
		s.mu.Unlock()

		s.notify(observers, Turn{
			ConversationID: conversationID,
			User:           turn.user,
			Assistant:      assistant,
			Streaming:      turn.streaming,
			Duration:       time.Since(turn.startedAt),
		})

	default:
		s.logger.Debug("ignoring unknown stream event", "type", ev.Type)
	}
}

// Clear atomically resets the conversation id, the history, and any pending
// accumulation. After Clear the session behaves like a freshly created one.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversationID = ""
	s.history = nil
}

// ConversationID returns the server-issued conversation id, or the empty
// string when the server has not issued one yet.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// SetConversationID overrides the conversation id, typically to resume a
// previously persisted dialogue.
func (s *Session) SetConversationID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = id
}

// Messages returns a defensive copy of the history; callers cannot mutate
// the session's internal state through it.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Subscribe registers an observer for completed turns and returns a cancel
// function that removes it. The cancel function is idempotent.
func (s *Session) Subscribe(o TurnObserver) func() {
	s.mu.Lock()
	id := s.nextObserverID
	s.nextObserverID++
	s.observers[id] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// observerList snapshots the registered observers. Callers must hold s.mu.
func (s *Session) observerList() []TurnObserver {
	out := make([]TurnObserver, 0, len(s.observers))
	for _, o := range s.observers {
		out = append(out, o)
	}
	return out
}

// notify delivers a completed turn to observers outside the session lock.
func (s *Session) notify(observers []TurnObserver, turn Turn) {
	for _, o := range observers {
		o.OnTurnCompleted(turn)
	}
}

func (s *Session) resolveUserID(userID string) string {
	if userID != "" {
		return userID
	}
	if s.userID != "" {
		return s.userID
	}
	return defaultUserID
}
