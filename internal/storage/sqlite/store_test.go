package sqlite

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ronak501/Research-Agent/backend/internal/model/chat"
	"github.com/Ronak501/Research-Agent/backend/internal/model/chat/chattest"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close(context.Background())
	})
	return store
}

func TestStoreContract(t *testing.T) {
	chattest.RunStoreContract(t, func(t *testing.T) chat.Store {
		return setupTestStore(t)
	})
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "research.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close(context.Background())

	assert.FileExists(t, path)
}

func TestListReadsLegacyTimestampForms(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		"legacy", "Legacy", "2025-03-01T10:00:00.123456+00:00", "2025-03-01T11:00:00+00:00",
	)
	require.NoError(t, err)

	got, err := store.ListConversations(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 123456000, got[0].CreatedAt.Nanosecond())
	assert.Equal(t, 11, got[0].UpdatedAt.Hour())
}

func TestListRejectsCorruptTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		"m1", "c1", "user", "hello", "not-a-time",
	)
	require.NoError(t, err)

	_, err = store.ListMessages(ctx, "c1", 1000)
	assert.Error(t, err)
}

func TestDeleteOrphanMessagesLogsWarning(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var buf bytes.Buffer
	store.logger = log.New(&buf)

	require.NoError(t, store.InsertMessage(ctx, chat.Message{
		ID:             "m1",
		ConversationID: "orphan",
		Role:           chat.RoleUser,
		Content:        "lost",
		Timestamp:      chat.Now(),
	}))

	err := store.DeleteConversationCascade(ctx, "orphan")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
	assert.Contains(t, buf.String(), "removed messages of unknown conversation")

	messages, err := store.ListMessages(ctx, "orphan", 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDeleteMissingConversationIsQuiet(t *testing.T) {
	store := setupTestStore(t)

	var buf bytes.Buffer
	store.logger = log.New(&buf)

	err := store.DeleteConversationCascade(context.Background(), "missing")
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
	assert.Empty(t, buf.String())
}
