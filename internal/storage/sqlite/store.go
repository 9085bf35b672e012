// Package sqlite persists conversations in a single SQLite file using modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/Ronak501/Research-Agent/backend/internal/model/chat"
)

// Store implements chat.Store on SQLite. Timestamps are kept as TEXT in
// chat.TimestampLayout so ORDER BY on the column is chronological.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open creates the database at path, and its parent directory, if needed.
func Open(path string) (*Store, error) {
	logger := log.Default().WithPrefix("sqlite")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("store initialized", "path", path)
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_updated
			ON conversations(updated_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			timestamp       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_ts
			ON messages(conversation_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertConversation adds a conversation row.
func (s *Store) InsertConversation(ctx context.Context, conversation chat.Conversation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		conversation.ID,
		conversation.Title,
		chat.FormatTimestamp(conversation.CreatedAt),
		chat.FormatTimestamp(conversation.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// InsertMessage adds a message row.
func (s *Store) InsertMessage(ctx context.Context, message chat.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		message.ID,
		message.ConversationID,
		string(message.Role),
		message.Content,
		chat.FormatTimestamp(message.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListConversations returns conversations by updated_at descending.
func (s *Store) ListConversations(ctx context.Context, limit int) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC, created_at DESC
		LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]chat.Conversation, 0)
	for rows.Next() {
		var (
			c                  chat.Conversation
			createdAt, updated string
		)
		if err := rows.Scan(&c.ID, &c.Title, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		if c.CreatedAt, err = chat.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("conversation %s created_at: %w", c.ID, err)
		}
		if c.UpdatedAt, err = chat.ParseTimestamp(updated); err != nil {
			return nil, fmt.Errorf("conversation %s updated_at: %w", c.ID, err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return conversations, nil
}

// ListMessages returns messages by timestamp ascending, rowid breaking ties.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, rowid ASC
		LIMIT ?
	`, conversationID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var (
			m        chat.Message
			role, ts string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = chat.Role(role)
		if m.Timestamp, err = chat.ParseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("message %s timestamp: %w", m.ID, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}

// UpdateConversationTimestamp sets updated_at; zero affected rows is fine.
func (s *Store) UpdateConversationTimestamp(ctx context.Context, conversationID string, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		chat.FormatTimestamp(updatedAt), conversationID,
	)
	if err != nil {
		return fmt.Errorf("updating conversation timestamp: %w", err)
	}
	return nil
}

// DeleteConversationCascade removes messages first, then the conversation.
func (s *Store) DeleteConversationCascade(ctx context.Context, conversationID string) error {
	removed, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		if orphans, err := removed.RowsAffected(); err == nil && orphans > 0 {
			s.logger.Warn("removed messages of unknown conversation", "conversation_id", conversationID, "messages", orphans)
		}
		return chat.ErrConversationNotFound
	}
	return nil
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// Close closes the database handle.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
