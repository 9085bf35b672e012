// Package mongo persists conversations in MongoDB with the v2 driver.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Ronak501/Research-Agent/backend/internal/model/chat"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// fixedWidthTimestamp matches values already in chat.TimestampLayout.
const fixedWidthTimestamp = `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{6}Z$`

var timestampFields = map[string][]string{
	conversationsCollection: {"created_at", "updated_at"},
	messagesCollection:      {"timestamp"},
}

// Store implements chat.Store on MongoDB. Documents carry their own "id"
// field; the driver-generated _id is only used to break sort ties.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *log.Logger
}

type conversationDoc struct {
	ID        string        `bson:"id"`
	Title     string        `bson:"title"`
	CreatedAt bson.RawValue `bson:"created_at"`
	UpdatedAt bson.RawValue `bson:"updated_at"`
}

type messageDoc struct {
	ID             string        `bson:"id"`
	ConversationID string        `bson:"conversation_id"`
	Role           string        `bson:"role"`
	Content        string        `bson:"content"`
	Timestamp      bson.RawValue `bson:"timestamp"`
}

// Open connects to uri, verifies the connection and ensures indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	logger := log.Default().WithPrefix("mongo")

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(database),
		logger: logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := s.normalizeTimestamps(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("store initialized", "database", database)
	return s, nil
}

func (s *Store) conversations() *mongo.Collection { return s.db.Collection(conversationsCollection) }
func (s *Store) messages() *mongo.Collection      { return s.db.Collection(messagesCollection) }

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		conversationsCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}},
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes for %s: %w", name, err)
		}
	}
	return nil
}

// normalizeTimestamps rewrites timestamps stored in any other form (offset
// suffixes, short fractions, BSON dates) into chat.TimestampLayout. Queries
// sort on the stored string.
func (s *Store) normalizeTimestamps(ctx context.Context) error {
	for name, fields := range timestampFields {
		coll := s.db.Collection(name)

		clauses := make(bson.A, 0, len(fields))
		for _, field := range fields {
			clauses = append(clauses, bson.D{{Key: field, Value: bson.D{
				{Key: "$exists", Value: true},
				{Key: "$not", Value: bson.Regex{Pattern: fixedWidthTimestamp}},
			}}})
		}

		cur, err := coll.Find(ctx, bson.D{{Key: "$or", Value: clauses}})
		if err != nil {
			return fmt.Errorf("scanning %s timestamps: %w", name, err)
		}

		rewritten := 0
		for cur.Next(ctx) {
			set := bson.D{}
			for _, field := range fields {
				value, err := cur.Current.LookupErr(field)
				if err != nil {
					continue
				}
				t, err := decodeTime(value)
				if err != nil {
					s.logger.Warn("skipping unreadable timestamp", "collection", name, "field", field, "err", err)
					continue
				}
				formatted := chat.FormatTimestamp(t)
				if value.Type == bson.TypeString && value.StringValue() == formatted {
					continue
				}
				set = append(set, bson.E{Key: field, Value: formatted})
			}
			if len(set) == 0 {
				continue
			}

			id := cur.Current.Lookup("_id")
			if _, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}}); err != nil {
				_ = cur.Close(ctx)
				return fmt.Errorf("rewriting %s timestamps: %w", name, err)
			}
			rewritten++
		}
		if err := cur.Err(); err != nil {
			_ = cur.Close(ctx)
			return fmt.Errorf("scanning %s timestamps: %w", name, err)
		}
		_ = cur.Close(ctx)

		if rewritten > 0 {
			s.logger.Info("normalized legacy timestamps", "collection", name, "documents", rewritten)
		}
	}
	return nil
}

// InsertConversation stores a conversation document.
func (s *Store) InsertConversation(ctx context.Context, conversation chat.Conversation) error {
	_, err := s.conversations().InsertOne(ctx, bson.D{
		{Key: "id", Value: conversation.ID},
		{Key: "title", Value: conversation.Title},
		{Key: "created_at", Value: chat.FormatTimestamp(conversation.CreatedAt)},
		{Key: "updated_at", Value: chat.FormatTimestamp(conversation.UpdatedAt)},
	})
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// InsertMessage stores a message document.
func (s *Store) InsertMessage(ctx context.Context, message chat.Message) error {
	_, err := s.messages().InsertOne(ctx, bson.D{
		{Key: "id", Value: message.ID},
		{Key: "conversation_id", Value: message.ConversationID},
		{Key: "role", Value: string(message.Role)},
		{Key: "content", Value: message.Content},
		{Key: "timestamp", Value: chat.FormatTimestamp(message.Timestamp)},
	})
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListConversations returns conversations by updated_at descending.
func (s *Store) ListConversations(ctx context.Context, limit int) ([]chat.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(findLimit(limit))

	cur, err := s.conversations().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}

	var docs []conversationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding conversations: %w", err)
	}

	conversations := make([]chat.Conversation, 0, len(docs))
	for _, doc := range docs {
		createdAt, err := decodeTime(doc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("conversation %s created_at: %w", doc.ID, err)
		}
		updatedAt, err := decodeTime(doc.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("conversation %s updated_at: %w", doc.ID, err)
		}
		conversations = append(conversations, chat.Conversation{
			ID:        doc.ID,
			Title:     doc.Title,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		})
	}
	return conversations, nil
}

// ListMessages returns messages by timestamp ascending, insertion order breaking ties.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(findLimit(limit))

	cur, err := s.messages().Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(docs))
	for _, doc := range docs {
		ts, err := decodeTime(doc.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("message %s timestamp: %w", doc.ID, err)
		}
		messages = append(messages, chat.Message{
			ID:             doc.ID,
			ConversationID: doc.ConversationID,
			Role:           chat.Role(doc.Role),
			Content:        doc.Content,
			Timestamp:      ts,
		})
	}
	return messages, nil
}

// UpdateConversationTimestamp sets updated_at; no match is not an error.
func (s *Store) UpdateConversationTimestamp(ctx context.Context, conversationID string, updatedAt time.Time) error {
	_, err := s.conversations().UpdateOne(ctx,
		bson.M{"id": conversationID},
		bson.M{"$set": bson.M{"updated_at": chat.FormatTimestamp(updatedAt)}},
	)
	if err != nil {
		return fmt.Errorf("updating conversation timestamp: %w", err)
	}
	return nil
}

// DeleteConversationCascade removes messages first, then the conversation.
func (s *Store) DeleteConversationCascade(ctx context.Context, conversationID string) error {
	removed, err := s.messages().DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}

	result, err := s.conversations().DeleteOne(ctx, bson.M{"id": conversationID})
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if result.DeletedCount == 0 {
		if removed.DeletedCount > 0 {
			s.logger.Warn("removed messages of unknown conversation", "conversation_id", conversationID, "messages", removed.DeletedCount)
		}
		return chat.ErrConversationNotFound
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// findLimit maps a non-positive limit to the driver's "no limit".
func findLimit(limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return int64(limit)
}

// decodeTime reads timestamps written as text by this service or as BSON
// dates by other writers.
func decodeTime(v bson.RawValue) (time.Time, error) {
	switch v.Type {
	case bson.TypeString:
		return chat.ParseTimestamp(v.StringValue())
	case bson.TypeDateTime:
		return chat.Normalize(time.UnixMilli(v.DateTime())), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %v", v.Type)
	}
}
