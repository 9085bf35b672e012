package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Ronak501/Research-Agent/backend/internal/model/chat"
	"github.com/Ronak501/Research-Agent/backend/internal/model/chat/chattest"
)

// setupTestStore connects to MONGO_TEST_URL using a throwaway database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URL")
	if uri == "" {
		t.Skip("MONGO_TEST_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Open(ctx, uri, "research_test_"+uuid.NewString()[:8])
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = store.db.Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestStoreContract(t *testing.T) {
	chattest.RunStoreContract(t, func(t *testing.T) chat.Store {
		return setupTestStore(t)
	})
}

func TestListReadsDateTimeAndExtraFields(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := store.conversations().InsertOne(ctx, bson.M{
		"id":         "legacy",
		"title":      "Legacy",
		"created_at": created,
		"updated_at": "2025-03-01T11:00:00.5+00:00",
		"pinned":     true,
	})
	require.NoError(t, err)

	got, err := store.ListConversations(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.Equal(t, 500000000, got[0].UpdatedAt.Nanosecond())
}

func TestDecodeTimeRejectsUnsupportedTypes(t *testing.T) {
	_, err := decodeTime(bson.RawValue{Type: bson.TypeInt32, Value: []byte{1, 0, 0, 0}})
	assert.Error(t, err)
}

func TestNormalizeTimestampsRewritesLegacyForms(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.conversations().InsertMany(ctx, []any{
		bson.M{"id": "legacy", "title": "Legacy", "created_at": "2025-03-01T11:00:00+00:00", "updated_at": "2025-03-01T11:00:00+00:00"},
		bson.M{"id": "fresh", "title": "Fresh", "created_at": "2025-03-01T11:00:00.500000Z", "updated_at": "2025-03-01T11:00:00.500000Z"},
	})
	require.NoError(t, err)
	_, err = store.messages().InsertOne(ctx, bson.M{
		"id": "m1", "conversation_id": "legacy", "role": "user", "content": "hi",
		"timestamp": time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, store.normalizeTimestamps(ctx))

	var doc bson.M
	require.NoError(t, store.conversations().FindOne(ctx, bson.M{"id": "legacy"}).Decode(&doc))
	assert.Equal(t, "2025-03-01T11:00:00.000000Z", doc["updated_at"])
	assert.Equal(t, "2025-03-01T11:00:00.000000Z", doc["created_at"])

	require.NoError(t, store.messages().FindOne(ctx, bson.M{"id": "m1"}).Decode(&doc))
	assert.Equal(t, "2025-03-01T11:00:00.000000Z", doc["timestamp"])

	got, err := store.ListConversations(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fresh", got[0].ID)
	assert.Equal(t, "legacy", got[1].ID)
}
