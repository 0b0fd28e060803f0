// ABOUTME: Store interface and data types for securebot conversation persistence
// ABOUTME: Defines Message, role constants, and the storage error sentinel

package store

import (
	"context"
	"errors"
	"time"
)

// ErrStorageUnavailable is returned when the backing database cannot be
// reached or a statement fails. The store performs no retries; retry policy
// belongs to the caller.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Role constants for message authorship. The orchestrator never persists a
// system role; system prompt text lives in the analyzer.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation log.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Store defines the interface for conversation message persistence.
// A conversation log is created implicitly on first append, bounded to the
// store's retention limit, and destroyed only by ClearConversation.
type Store interface {
	// AppendMessage assigns an ID and timestamp, appends the message to the
	// identified conversation, and trims the log to the retention bound.
	// Returns the stored message and the new log length.
	AppendMessage(ctx context.Context, conversationID, role, content string) (*Message, int, error)

	// ListMessages returns the full retained log, oldest first. Unknown
	// conversation IDs yield an empty slice, not an error.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// ClearConversation deletes all retained messages for the ID.
	// Clearing an empty or unknown conversation succeeds.
	ClearConversation(ctx context.Context, conversationID string) error

	// Close releases any resources held by the store
	Close() error
}
