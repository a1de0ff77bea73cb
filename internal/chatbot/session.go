package chatbot

import "context"

// Chat roles understood by OpenAI-compatible backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn half.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionStore keeps a bounded conversation history per user. Stores trim to
// their configured message budget on every append.
type SessionStore interface {
	History(ctx context.Context, key string) ([]Message, error)
	Append(ctx context.Context, key string, msgs ...Message) error
	Reset(ctx context.Context, key string) error
}
