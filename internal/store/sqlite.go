// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides bounded per-conversation message logs with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db        *sql.DB
	retention int
	logger    *slog.Logger

	// locksMu guards locks; each conversation gets its own mutex so appends
	// to one conversation serialize without blocking any other conversation.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewSQLiteStore creates a new SQLite store at the given path, keeping at
// most retention messages per conversation. The schema is automatically
// created if it doesn't exist. Parent directories are created if needed.
// Pass ":memory:" for an in-memory database in tests.
func NewSQLiteStore(path string, retention int) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %d", retention)
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		retention: retention,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "retention", retention)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversation_messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON conversation_messages(conversation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// convLock returns the mutex for a conversation, creating it on first use.
// Lock entries are never removed; the set of live conversation IDs is small
// and bounded by the callers of the service.
func (s *SQLiteStore) convLock(conversationID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[conversationID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[conversationID] = mu
	}
	return mu
}

// AppendMessage stores a message and trims the conversation to the retention
// bound in a single transaction. The timestamp is assigned here, not by the
// caller, so log order and timestamp order always agree.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID, role, content string) (*Message, int, error) {
	mu := s.convLock(conversationID)
	mu.Lock()
	defer mu.Unlock()

	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("beginning transaction: %w: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("inserting message: %w: %w", ErrStorageUnavailable, err)
	}

	// Keep only the most recent messages. rowid order is insertion order, so
	// the oldest entries are the ones discarded.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM conversation_messages
		WHERE conversation_id = ? AND rowid NOT IN (
			SELECT rowid FROM conversation_messages
			WHERE conversation_id = ?
			ORDER BY rowid DESC LIMIT ?
		)`,
		conversationID, conversationID, s.retention,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("trimming conversation: %w: %w", ErrStorageUnavailable, err)
	}

	var length int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_messages WHERE conversation_id = ?`,
		conversationID,
	).Scan(&length)
	if err != nil {
		return nil, 0, fmt.Errorf("counting messages: %w: %w", ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("committing append: %w: %w", ErrStorageUnavailable, err)
	}

	s.logger.Debug("message appended",
		"conversation_id", conversationID,
		"message_id", msg.ID,
		"role", role,
		"length", length)

	return msg, length, nil
}

// ListMessages returns the retained log for a conversation, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM conversation_messages
		WHERE conversation_id = ?
		ORDER BY rowid ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	messages := make([]*Message, 0)
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w: %w", ErrStorageUnavailable, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w: %w", ErrStorageUnavailable, err)
	}

	return messages, nil
}

// ClearConversation deletes all messages for a conversation. Deleting an
// unknown conversation is not an error.
func (s *SQLiteStore) ClearConversation(ctx context.Context, conversationID string) error {
	mu := s.convLock(conversationID)
	mu.Lock()
	defer mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_messages WHERE conversation_id = ?`,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("clearing conversation: %w: %w", ErrStorageUnavailable, err)
	}

	s.logger.Debug("conversation cleared", "conversation_id", conversationID)
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
