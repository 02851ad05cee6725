package eventstream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rwahub/chatlink/pkg/chat"
	"github.com/rwahub/chatlink/pkg/logger"
)

// publishTimeout bounds a single background publish.
const publishTimeout = 15 * time.Second

// TurnPublisher forwards completed session turns to a Publisher. Publishing
// happens on a background goroutine per turn: a slow or failing broker never
// stalls or fails the conversation, failures are logged and dropped.
type TurnPublisher struct {
	publisher Publisher
	source    EventSource
	logger    *slog.Logger

	wg sync.WaitGroup
}

// TurnPublisherOption configures a TurnPublisher.
type TurnPublisherOption func(*TurnPublisher)

// WithLogger sets the publisher's logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) TurnPublisherOption {
	return func(tp *TurnPublisher) { tp.logger = l }
}

// NewTurnPublisher wraps publisher as a session turn observer emitting events
// attributed to source.
func NewTurnPublisher(publisher Publisher, source EventSource, opts ...TurnPublisherOption) *TurnPublisher {
	tp := &TurnPublisher{
		publisher: publisher,
		source:    source,
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(tp)
	}

	return tp
}

// OnTurnCompleted implements chat.TurnObserver.
func (tp *TurnPublisher) OnTurnCompleted(turn chat.Turn) {
	event := NewTurnCompletedEvent(tp.source, turn)

	tp.wg.Add(1)
	go func() {
		defer tp.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := tp.publisher.PublishTurn(ctx, event); err != nil {
			tp.logger.Warn("failed to publish turn event",
				"error", err,
				"event_id", event.EventID,
				"conversation_id", event.TurnMeta.ConversationID,
			)
		}
	}()
}

// Close waits for in-flight publishes and closes the underlying publisher.
func (tp *TurnPublisher) Close() error {
	tp.wg.Wait()
	return tp.publisher.Close()
}

var _ chat.TurnObserver = (*TurnPublisher)(nil)
