package chat

import (
	"context"
	"errors"
	"time"
)

// ErrConversationNotFound is returned when a delete targets an unknown conversation.
var ErrConversationNotFound = errors.New("conversation not found")

// Store persists conversations and their messages. A list limit of zero or
// less means no limit.
type Store interface {
	InsertConversation(ctx context.Context, conversation Conversation) error
	InsertMessage(ctx context.Context, message Message) error

	// ListConversations returns at most limit conversations, most recently updated first.
	ListConversations(ctx context.Context, limit int) ([]Conversation, error)
	// ListMessages returns at most limit messages of a conversation in chronological order.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)

	// UpdateConversationTimestamp sets updated_at unconditionally. A missing
	// conversation is not an error.
	UpdateConversationTimestamp(ctx context.Context, conversationID string, updatedAt time.Time) error

	// DeleteConversationCascade removes the messages of a conversation and then
	// the conversation itself. It is not atomic.
	DeleteConversationCascade(ctx context.Context, conversationID string) error

	Close(ctx context.Context) error
}
