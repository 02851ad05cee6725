package chat

// ChatRequest is the wire-format request body for the bridge's
// POST /api/v1/chat endpoint. The same shape is used for both the blocking
// and the streaming mode; Stream selects between them.
type ChatRequest struct {
	// UserID identifies the end user on whose behalf the request is made.
	UserID string `json:"user_id"`

	// Messages carries the current turn's messages. The bridge maintains
	// server-side context keyed by ConversationID, so a turn normally sends
	// only the new user message.
	Messages []Message `json:"messages"`

	// ConversationID correlates turns into one logical dialogue. Empty on
	// the first turn; the server issues one and the client echoes it back
	// on every subsequent request.
	ConversationID string `json:"conversation_id,omitempty"`

	// Stream selects the server-sent-event response mode.
	Stream bool `json:"stream"`
}
