package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Ronak501/Research-Agent/backend/internal/model/chat"
)

// ErrInvalidInput is returned when a required field of a request is empty.
var ErrInvalidInput = errors.New("invalid input")

// FallbackReply is stored as the assistant message when generation fails.
const FallbackReply = "I encountered an error while generating a response. Please try again."

const (
	ConversationLimit = 100
	MessageLimit      = 1000
)

// Generator produces the assistant reply for a user prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service coordinates conversation state and reply generation.
type Service struct {
	store     chat.Store
	generator Generator
	now       func() time.Time
	newID     func() string
	logger    *log.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithLogger replaces the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService wires the orchestrator to its store and generator.
func NewService(store chat.Store, generator Generator, opts ...Option) *Service {
	s := &Service{
		store:     store,
		generator: generator,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    log.Default().WithPrefix("chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConversation persists a new conversation. An empty title falls back to chat.DefaultTitle.
func (s *Service) CreateConversation(ctx context.Context, title string) (chat.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = chat.DefaultTitle
	}

	now := chat.Normalize(s.now())
	conversation := chat.Conversation{
		ID:        s.newID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.InsertConversation(ctx, conversation); err != nil {
		return chat.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	return conversation, nil
}

// ListConversations returns the most recently updated conversations.
func (s *Service) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	conversations, err := s.store.ListConversations(ctx, ConversationLimit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if conversations == nil {
		conversations = []chat.Conversation{}
	}
	return conversations, nil
}

// ListMessages returns a conversation's history in chronological order. An
// unknown conversation yields an empty slice.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	messages, err := s.store.ListMessages(ctx, conversationID, MessageLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}

// DeleteConversation removes a conversation and all of its messages.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := s.store.DeleteConversationCascade(ctx, conversationID); err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return err
		}
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	return nil
}

// SendMessage stores the user message, generates and stores the reply, then
// bumps the conversation's updated_at. A failed generation is replaced by
// FallbackReply. Once started the operation runs to completion even if the
// caller goes away.
func (s *Service) SendMessage(ctx context.Context, conversationID, content string) (chat.Message, chat.Message, error) {
	if strings.TrimSpace(conversationID) == "" || strings.TrimSpace(content) == "" {
		return chat.Message{}, chat.Message{}, ErrInvalidInput
	}

	ctx = context.WithoutCancel(ctx)

	userMessage := chat.Message{
		ID:             s.newID(),
		ConversationID: conversationID,
		Role:           chat.RoleUser,
		Content:        content,
		Timestamp:      chat.Normalize(s.now()),
	}
	if err := s.store.InsertMessage(ctx, userMessage); err != nil {
		return chat.Message{}, chat.Message{}, fmt.Errorf("insert user message: %w", err)
	}

	reply, err := s.generator.Generate(ctx, content)
	if err != nil {
		s.logger.Error("generation failed", "conversation_id", conversationID, "err", err)
		reply = FallbackReply
	}

	replyAt := chat.Normalize(s.now())
	if replyAt.Before(userMessage.Timestamp) {
		replyAt = userMessage.Timestamp
	}

	aiMessage := chat.Message{
		ID:             s.newID(),
		ConversationID: conversationID,
		Role:           chat.RoleAssistant,
		Content:        reply,
		Timestamp:      replyAt,
	}
	if err := s.store.InsertMessage(ctx, aiMessage); err != nil {
		return chat.Message{}, chat.Message{}, fmt.Errorf("insert assistant message: %w", err)
	}

	if err := s.store.UpdateConversationTimestamp(ctx, conversationID, replyAt); err != nil {
		return chat.Message{}, chat.Message{}, fmt.Errorf("touch conversation: %w", err)
	}

	return userMessage, aiMessage, nil
}
