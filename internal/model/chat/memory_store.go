package chat

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store with in-process maps, suitable for tests and local runs.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      map[string][]Message
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
	}
}

// InsertConversation stores a conversation keyed by its id.
func (s *MemoryStore) InsertConversation(_ context.Context, conversation Conversation) error {
	conversation.CreatedAt = Normalize(conversation.CreatedAt)
	conversation.UpdatedAt = Normalize(conversation.UpdatedAt)

	s.mu.Lock()
	s.conversations[conversation.ID] = conversation
	s.mu.Unlock()
	return nil
}

// InsertMessage appends a message to its conversation's history. The parent
// conversation does not have to exist.
func (s *MemoryStore) InsertMessage(_ context.Context, message Message) error {
	message.Timestamp = Normalize(message.Timestamp)

	s.mu.Lock()
	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], message)
	s.mu.Unlock()
	return nil
}

// ListConversations returns up to limit conversations ordered by updated_at descending.
func (s *MemoryStore) ListConversations(_ context.Context, limit int) ([]Conversation, error) {
	s.mu.RLock()
	out := make([]Conversation, 0, len(s.conversations))
	for _, conversation := range s.conversations {
		out = append(out, conversation)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListMessages returns up to limit messages ordered by timestamp, ties kept in insertion order.
func (s *MemoryStore) ListMessages(_ context.Context, conversationID string, limit int) ([]Message, error) {
	s.mu.RLock()
	stored := s.messages[conversationID]
	out := make([]Message, len(stored))
	copy(out, stored)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateConversationTimestamp sets updated_at when the conversation exists.
func (s *MemoryStore) UpdateConversationTimestamp(_ context.Context, conversationID string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[conversationID]
	if !ok {
		return nil
	}
	conversation.UpdatedAt = Normalize(updatedAt)
	s.conversations[conversationID] = conversation
	return nil
}

// DeleteConversationCascade drops the messages and then the conversation.
func (s *MemoryStore) DeleteConversationCascade(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, conversationID)

	if _, ok := s.conversations[conversationID]; !ok {
		return ErrConversationNotFound
	}
	delete(s.conversations, conversationID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}
