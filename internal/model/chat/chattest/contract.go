// Package chattest holds the behaviour every chat.Store backend must share.
package chattest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ronak501/Research-Agent/backend/internal/model/chat"
)

// Factory returns a fresh, empty store. Cleanup is the factory's responsibility.
type Factory func(t *testing.T) chat.Store

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// RunStoreContract exercises a chat.Store implementation.
func RunStoreContract(t *testing.T, newStore Factory) {
	t.Run("ListConversationsOrderedByUpdatedAt", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		older := conversationAt("older", base, base.Add(time.Minute))
		newer := conversationAt("newer", base.Add(time.Second), base.Add(2*time.Minute))
		stale := conversationAt("stale", base.Add(2*time.Second), base.Add(2*time.Second))
		for _, c := range []chat.Conversation{older, newer, stale} {
			require.NoError(t, store.InsertConversation(ctx, c))
		}

		got, err := store.ListConversations(ctx, 100)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{newer.ID, older.ID, stale.ID}, conversationIDs(got))
	})

	t.Run("ListConversationsHonoursLimit", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 0; i < 7; i++ {
			ts := base.Add(time.Duration(i) * time.Second)
			require.NoError(t, store.InsertConversation(ctx, conversationAt(fmt.Sprintf("c%d", i), ts, ts)))
		}

		got, err := store.ListConversations(ctx, 5)
		require.NoError(t, err)
		assert.Len(t, got, 5)
		assert.Equal(t, "c6", got[0].Title)
	})

	t.Run("ConversationTimestampsRoundTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		created := chat.Now()
		conversation := conversationAt("round-trip", created, created)
		require.NoError(t, store.InsertConversation(ctx, conversation))

		got, err := store.ListConversations(ctx, 100)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, conversation.ID, got[0].ID)
		assert.Equal(t, "round-trip", got[0].Title)
		assert.True(t, got[0].CreatedAt.Equal(created), "created_at %s != %s", got[0].CreatedAt, created)
		assert.True(t, got[0].UpdatedAt.Equal(created), "updated_at %s != %s", got[0].UpdatedAt, created)
	})

	t.Run("ListMessagesChronological", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		conversation := conversationAt("messages", base, base)
		require.NoError(t, store.InsertConversation(ctx, conversation))

		third := messageAt(conversation.ID, chat.RoleUser, "third", base.Add(3*time.Second))
		first := messageAt(conversation.ID, chat.RoleUser, "first", base.Add(time.Second))
		second := messageAt(conversation.ID, chat.RoleAssistant, "second", base.Add(2*time.Second))
		other := messageAt("someone-else", chat.RoleUser, "elsewhere", base)
		for _, m := range []chat.Message{third, first, second, other} {
			require.NoError(t, store.InsertMessage(ctx, m))
		}

		got, err := store.ListMessages(ctx, conversation.ID, 1000)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"first", "second", "third"}, contents(got))
		assert.Equal(t, chat.RoleAssistant, got[1].Role)
		assert.Equal(t, conversation.ID, got[1].ConversationID)
		assert.True(t, got[0].Timestamp.Equal(first.Timestamp))
	})

	t.Run("ListMessagesKeepsInsertionOrderOnTies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		ts := chat.Now()
		user := messageAt("tie", chat.RoleUser, "question", ts)
		assistant := messageAt("tie", chat.RoleAssistant, "answer", ts)
		require.NoError(t, store.InsertMessage(ctx, user))
		require.NoError(t, store.InsertMessage(ctx, assistant))

		got, err := store.ListMessages(ctx, "tie", 1000)
		require.NoError(t, err)
		assert.Equal(t, []string{"question", "answer"}, contents(got))
	})

	t.Run("ListMessagesHonoursLimit", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 0; i < 6; i++ {
			m := messageAt("limited", chat.RoleUser, fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
			require.NoError(t, store.InsertMessage(ctx, m))
		}

		got, err := store.ListMessages(ctx, "limited", 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"m0", "m1", "m2", "m3"}, contents(got))
	})

	t.Run("NonPositiveLimitMeansUnlimited", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			ts := base.Add(time.Duration(i) * time.Second)
			require.NoError(t, store.InsertConversation(ctx, conversationAt(fmt.Sprintf("c%d", i), ts, ts)))
			require.NoError(t, store.InsertMessage(ctx, messageAt("unlimited", chat.RoleUser, fmt.Sprintf("m%d", i), ts)))
		}

		for _, limit := range []int{0, -1} {
			conversations, err := store.ListConversations(ctx, limit)
			require.NoError(t, err)
			assert.Len(t, conversations, 3, "limit %d", limit)

			messages, err := store.ListMessages(ctx, "unlimited", limit)
			require.NoError(t, err)
			assert.Equal(t, []string{"m0", "m1", "m2"}, contents(messages), "limit %d", limit)
		}
	})

	t.Run("ListMessagesUnknownConversation", func(t *testing.T) {
		store := newStore(t)

		got, err := store.ListMessages(context.Background(), "missing", 1000)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("UpdateConversationTimestamp", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		a := conversationAt("a", base, base)
		b := conversationAt("b", base, base.Add(time.Minute))
		require.NoError(t, store.InsertConversation(ctx, a))
		require.NoError(t, store.InsertConversation(ctx, b))

		bumped := base.Add(time.Hour)
		require.NoError(t, store.UpdateConversationTimestamp(ctx, a.ID, bumped))

		got, err := store.ListConversations(ctx, 100)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, a.ID, got[0].ID)
		assert.True(t, got[0].UpdatedAt.Equal(bumped))
		assert.True(t, got[0].CreatedAt.Equal(base))
	})

	t.Run("UpdateConversationTimestampMissingIsNoop", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.UpdateConversationTimestamp(ctx, "missing", base))

		got, err := store.ListConversations(ctx, 100)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("DeleteConversationCascade", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		keep := conversationAt("keep", base, base)
		drop := conversationAt("drop", base, base)
		require.NoError(t, store.InsertConversation(ctx, keep))
		require.NoError(t, store.InsertConversation(ctx, drop))
		require.NoError(t, store.InsertMessage(ctx, messageAt(drop.ID, chat.RoleUser, "bye", base)))
		require.NoError(t, store.InsertMessage(ctx, messageAt(keep.ID, chat.RoleUser, "hi", base)))

		require.NoError(t, store.DeleteConversationCascade(ctx, drop.ID))

		messages, err := store.ListMessages(ctx, drop.ID, 1000)
		require.NoError(t, err)
		assert.Empty(t, messages)

		kept, err := store.ListMessages(ctx, keep.ID, 1000)
		require.NoError(t, err)
		assert.Len(t, kept, 1)

		conversations, err := store.ListConversations(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, []string{keep.ID}, conversationIDs(conversations))

		err = store.DeleteConversationCascade(ctx, drop.ID)
		assert.ErrorIs(t, err, chat.ErrConversationNotFound)
	})

	t.Run("DeleteMissingConversation", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		existing := conversationAt("existing", base, base)
		require.NoError(t, store.InsertConversation(ctx, existing))

		err := store.DeleteConversationCascade(ctx, "missing")
		assert.ErrorIs(t, err, chat.ErrConversationNotFound)

		conversations, err := store.ListConversations(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, conversations, 1)
	})

	t.Run("DeleteOrphanMessagesStillNotFound", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.InsertMessage(ctx, messageAt("orphan", chat.RoleUser, "lost", base)))

		err := store.DeleteConversationCascade(ctx, "orphan")
		assert.ErrorIs(t, err, chat.ErrConversationNotFound)
	})
}

func conversationAt(title string, created, updated time.Time) chat.Conversation {
	return chat.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func messageAt(conversationID string, role chat.Role, content string, ts time.Time) chat.Message {
	return chat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      ts,
	}
}

func conversationIDs(conversations []chat.Conversation) []string {
	ids := make([]string, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
	}
	return ids
}

func contents(messages []chat.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}
