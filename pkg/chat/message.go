// Package chat holds the provider-neutral conversation model for the bridge
// service: messages, the streaming event union, the wire request/response
// shapes, and the Session that owns conversation state for one dialogue.
package chat

import "strings"

// Role constants for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ContentTypeText is the only content type the bridge currently accepts.
const ContentTypeText = "text"

// Message is a single message in a conversation. Messages are immutable once
// appended to a session's history.
type Message struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

// NewUserMessage creates a user message with the text content type set,
// matching what the bridge expects on the wire.
func NewUserMessage(content string) Message {
	return Message{
		Role:        RoleUser,
		Content:     strings.TrimSpace(content),
		ContentType: ContentTypeText,
	}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{
		Role:    RoleSystem,
		Content: content,
	}
}

// IsUser reports whether the message was authored by the user.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// IsAssistant reports whether the message was authored by the assistant.
func (m Message) IsAssistant() bool { return m.Role == RoleAssistant }
