// ABOUTME: Tests for the conversation Service
// ABOUTME: Verifies windowing, append ordering, and failure behavior of a turn

package conversation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/securebot/internal/store"
)

const (
	testWindow  = 10
	testTimeout = 5 * time.Second
)

// mockGenerator implements Generator for testing
type mockGenerator struct {
	mu          sync.Mutex
	reply       string
	err         error
	lastQuery   string
	lastHistory []*store.Message
	calls       int
}

func (m *mockGenerator) Generate(_ context.Context, query string, history []*store.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastQuery = query
	m.lastHistory = history
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

// failingStore wraps a real store and fails appends for the given role.
type failingStore struct {
	MessageStore
	failRole string
}

func (f *failingStore) AppendMessage(ctx context.Context, conversationID, role, content string) (*store.Message, int, error) {
	if role == f.failRole {
		return nil, 0, fmt.Errorf("injected: %w", store.ErrStorageUnavailable)
	}
	return f.MessageStore.AppendMessage(ctx, conversationID, role, content)
}

func createTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewSQLiteStore(dbPath, 50)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHandleTurn_AppendsUserThenAssistant(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "rate limiting helps"}
	svc := New(testStore, gen, testWindow, testTimeout, nil)

	ctx := context.Background()
	result, err := svc.HandleTurn(ctx, "x", "how do I stop a flood?")
	require.NoError(t, err)
	assert.Equal(t, "rate limiting helps", result.Reply)
	assert.Equal(t, "x", result.ConversationID)

	messages, err := testStore.ListMessages(ctx, "x")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, store.RoleUser, messages[0].Role)
	assert.Equal(t, "how do I stop a flood?", messages[0].Content)
	assert.Equal(t, store.RoleAssistant, messages[1].Role)
	assert.Equal(t, "rate limiting helps", messages[1].Content)
}

func TestHandleTurn_WindowExcludesCurrentMessage(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "ok"}
	svc := New(testStore, gen, testWindow, testTimeout, nil)

	ctx := context.Background()

	// First turn: no history at all
	_, err := svc.HandleTurn(ctx, "x", "first question")
	require.NoError(t, err)
	assert.Empty(t, gen.lastHistory, "first turn should see empty context")
	assert.Equal(t, "first question", gen.lastQuery)

	// Second turn: sees the first exchange but not its own message
	_, err = svc.HandleTurn(ctx, "x", "second question")
	require.NoError(t, err)
	require.Len(t, gen.lastHistory, 2)
	assert.Equal(t, "first question", gen.lastHistory[0].Content)
	assert.Equal(t, "ok", gen.lastHistory[1].Content)
	for _, msg := range gen.lastHistory {
		assert.NotEqual(t, "second question", msg.Content,
			"current turn's message must not be in its own context window")
	}
}

func TestHandleTurn_WindowBoundedToW(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "ok"}
	svc := New(testStore, gen, testWindow, testTimeout, nil)

	ctx := context.Background()
	// 8 turns produce 16 stored messages, above the window of 10
	for i := 0; i < 8; i++ {
		_, err := svc.HandleTurn(ctx, "x", fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	_, err := svc.HandleTurn(ctx, "x", "final question")
	require.NoError(t, err)

	require.Len(t, gen.lastHistory, testWindow)
	// Window holds the most recent messages, oldest first
	assert.Equal(t, "question 3", gen.lastHistory[0].Content)
	assert.Equal(t, "ok", gen.lastHistory[len(gen.lastHistory)-1].Content)
}

func TestHandleTurn_EmptyMessage(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "ok"}
	svc := New(testStore, gen, testWindow, testTimeout, nil)

	ctx := context.Background()
	for _, text := range []string{"", "   ", "\n\t"} {
		result, err := svc.HandleTurn(ctx, "x", text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Nil(t, result)
	}

	assert.Zero(t, gen.calls, "analyzer must not be called for empty input")
	messages, err := testStore.ListMessages(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, messages, "nothing may be persisted for empty input")
}

func TestHandleTurn_AnalyzerFailureAppendsNothing(t *testing.T) {
	testStore := createTestStore(t)
	genErr := errors.New("analyzer timeout")
	gen := &mockGenerator{err: genErr}
	svc := New(testStore, gen, testWindow, testTimeout, nil)

	ctx := context.Background()

	// Seed some history so we can verify it is untouched
	_, _, err := testStore.AppendMessage(ctx, "x", store.RoleUser, "earlier")
	require.NoError(t, err)

	result, err := svc.HandleTurn(ctx, "x", "ping")
	require.Error(t, err)
	assert.ErrorIs(t, err, genErr)
	require.NotNil(t, result)
	assert.Equal(t, FallbackReply, result.Reply)

	messages, err := testStore.ListMessages(ctx, "x")
	require.NoError(t, err)
	require.Len(t, messages, 1, "log must be unchanged after analyzer failure")
	assert.Equal(t, "earlier", messages[0].Content)
}

func TestHandleTurn_UserAppendFailureStillReturnsReply(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "the answer"}
	svc := New(&failingStore{MessageStore: testStore, failRole: store.RoleUser}, gen, testWindow, testTimeout, nil)

	result, err := svc.HandleTurn(context.Background(), "x", "ping")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	require.NotNil(t, result)
	assert.Equal(t, "the answer", result.Reply)
}

func TestHandleTurn_AssistantAppendFailureLeavesOrphanAndReturnsReply(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "the answer"}
	svc := New(&failingStore{MessageStore: testStore, failRole: store.RoleAssistant}, gen, testWindow, testTimeout, nil)

	ctx := context.Background()
	result, err := svc.HandleTurn(ctx, "x", "ping")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	require.NotNil(t, result)
	assert.Equal(t, "the answer", result.Reply)

	// The user message landed; the reply did not. Accepted inconsistency.
	messages, err := testStore.ListMessages(ctx, "x")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, store.RoleUser, messages[0].Role)
}

func TestHandleTurn_ConversationsIsolated(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "ok"}
	svc := New(testStore, gen, testWindow, testTimeout, nil)

	ctx := context.Background()
	_, err := svc.HandleTurn(ctx, "a", "for a")
	require.NoError(t, err)
	_, err = svc.HandleTurn(ctx, "b", "for b")
	require.NoError(t, err)

	// b's turn must not see a's history
	for _, msg := range gen.lastHistory {
		assert.NotContains(t, msg.Content, "for a")
	}

	forA, err := svc.History(ctx, "a")
	require.NoError(t, err)
	forB, err := svc.History(ctx, "b")
	require.NoError(t, err)
	require.Len(t, forA, 2)
	require.Len(t, forB, 2)
	assert.Equal(t, "for a", forA[0].Content)
	assert.Equal(t, "for b", forB[0].Content)
}

func TestHandleTurn_ConcurrentSameConversation(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "ok"}
	svc := New(testStore, gen, testWindow, testTimeout, nil)

	ctx := context.Background()
	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.HandleTurn(ctx, "x", fmt.Sprintf("question %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages, err := testStore.ListMessages(ctx, "x")
	require.NoError(t, err)
	require.Len(t, messages, 2*turns)

	// Timestamps never decrease and every user message is eventually
	// followed by a reply, whatever the interleaving of turns.
	users, assistants := 0, 0
	for i, msg := range messages {
		if i > 0 {
			assert.False(t, msg.CreatedAt.Before(messages[i-1].CreatedAt),
				"timestamp order violated at index %d", i)
		}
		switch msg.Role {
		case store.RoleUser:
			users++
		case store.RoleAssistant:
			assistants++
		}
	}
	assert.Equal(t, turns, users)
	assert.Equal(t, turns, assistants)
}

func TestClearThenHistory_Empty(t *testing.T) {
	testStore := createTestStore(t)
	gen := &mockGenerator{reply: "ok"}
	svc := New(testStore, gen, testWindow, testTimeout, nil)

	ctx := context.Background()
	_, err := svc.HandleTurn(ctx, "x", "hello")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "x"))

	messages, err := svc.History(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
