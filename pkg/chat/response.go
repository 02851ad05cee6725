package chat

// ChatResponse is the wire-format response body for the bridge's blocking
// (non-streaming) chat mode.
type ChatResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    ResponseData `json:"data"`

	// ConversationID is present when the server issued or confirmed a
	// conversation id for this dialogue.
	ConversationID string `json:"conversation_id,omitempty"`
}

// ResponseData is the payload of a successful blocking chat response.
type ResponseData struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	BotID     string `json:"bot_id,omitempty"`
	UserID    string `json:"user_id"`
}
