// ABOUTME: Service orchestrates one chat turn end to end
// ABOUTME: Reads history, calls the analyzer, and persists both sides of the exchange

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/securebot/internal/store"
)

// ErrEmptyMessage is returned when a turn is submitted with no message text.
// Nothing is persisted in that case.
var ErrEmptyMessage = errors.New("message is required")

// FallbackReply is returned in place of a generated answer when the analyzer
// fails. The HTTP layer pairs it with a server-error status.
const FallbackReply = "I encountered an error processing your request. Please try again."

// MessageStore defines what the service needs from storage.
type MessageStore interface {
	AppendMessage(ctx context.Context, conversationID, role, content string) (*store.Message, int, error)
	ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error)
	ClearConversation(ctx context.Context, conversationID string) error
}

// Generator defines what the service needs from the analyzer.
type Generator interface {
	Generate(ctx context.Context, query string, history []*store.Message) (string, error)
}

// Service sequences chat turns. It is stateless between calls; all
// conversation state lives in the store.
type Service struct {
	store     MessageStore
	generator Generator
	window    int
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a conversation service. window is the number of most recent
// messages supplied to the analyzer as context; timeout bounds each
// inference call.
func New(messageStore MessageStore, generator Generator, window int, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     messageStore,
		generator: generator,
		window:    window,
		timeout:   timeout,
		logger:    logger.With("component", "conversation"),
	}
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	ConversationID string
	Reply          string
}

// HandleTurn runs one user query through the analyzer and records the
// exchange.
//
// The history window is read before this turn's messages are appended, so a
// turn never sees its own user message as context. If the analyzer fails,
// nothing is appended and the result carries FallbackReply alongside the
// error. If persistence fails after a reply was computed, the reply is still
// returned with the error; the caller decides whether the orphaned log entry
// matters.
func (s *Service) HandleTurn(ctx context.Context, conversationID, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	window := history
	if len(window) > s.window {
		window = window[len(window)-s.window:]
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.generator.Generate(genCtx, text, window)
	if err != nil {
		s.logger.Warn("analyzer call failed",
			"conversation_id", conversationID,
			"error", err)
		return &TurnResult{ConversationID: conversationID, Reply: FallbackReply},
			fmt.Errorf("generating reply: %w", err)
	}

	if _, _, err := s.store.AppendMessage(ctx, conversationID, store.RoleUser, text); err != nil {
		// The reply was already computed; return it along with the error.
		return &TurnResult{ConversationID: conversationID, Reply: reply},
			fmt.Errorf("persisting user message: %w", err)
	}

	if _, _, err := s.store.AppendMessage(ctx, conversationID, store.RoleAssistant, reply); err != nil {
		// The log now holds an orphaned user message with no reply. Accepted:
		// the next turn simply sees an unanswered question in its window.
		s.logger.Error("assistant reply not persisted",
			"conversation_id", conversationID,
			"error", err)
		return &TurnResult{ConversationID: conversationID, Reply: reply},
			fmt.Errorf("persisting assistant reply: %w", err)
	}

	s.logger.Debug("turn completed",
		"conversation_id", conversationID,
		"context_messages", len(window))

	return &TurnResult{ConversationID: conversationID, Reply: reply}, nil
}

// History returns the full retained log for a conversation, oldest first.
func (s *Service) History(ctx context.Context, conversationID string) ([]*store.Message, error) {
	return s.store.ListMessages(ctx, conversationID)
}

// Clear removes all retained messages for a conversation.
func (s *Service) Clear(ctx context.Context, conversationID string) error {
	return s.store.ClearConversation(ctx, conversationID)
}
