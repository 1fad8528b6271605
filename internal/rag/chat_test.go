package rag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
	"document-qa/internal/sessions"
)

func newTestChat(t *testing.T, s Searcher) (*ChatService, *sessions.FileStore) {
	t.Helper()
	store, err := sessions.NewFileStore(t.TempDir())
	require.NoError(t, err)
	chat := NewChatService(NewAnswerer(s), store)
	chat.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }
	return chat, store
}

func TestChatService_AskCreatesSession(t *testing.T) {
	ctx := context.Background()
	s := &fakeSearcher{hits: []models.SearchHit{hit(0, "a.pdf", 1, models.Field{Key: "text", Value: models.String("answer body")})}}
	chat, store := newTestChat(t, s)

	for _, id := range []string{"", "undefined"} {
		reply, err := chat.Ask(ctx, id, "question?")
		require.NoError(t, err)
		assert.NotEqual(t, id, reply.SessionID)
		assert.Equal(t, "answer body", reply.Answer)

		history, err := store.History(ctx, reply.SessionID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.ChatMessage{
			Timestamp: "2024-01-02T03:04:05.000000",
			Question:  "question?",
			Answer:    "answer body",
			Source:    "a.pdf | -",
		}, history[0])
	}
}

func TestChatService_AskKeepsSession(t *testing.T) {
	ctx := context.Background()
	chat, store := newTestChat(t, &fakeSearcher{})

	reply, err := chat.Ask(ctx, "existing", "nothing matches")
	require.NoError(t, err)
	assert.Equal(t, "existing", reply.SessionID)
	assert.Nil(t, reply.Source)

	history, err := store.History(ctx, "existing")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].Source)
}

func TestChatService_AskFailureRecordsNothing(t *testing.T) {
	ctx := context.Background()
	chat, store := newTestChat(t, &fakeSearcher{err: models.ErrStoreUninitialized})

	_, err := chat.Ask(ctx, "s1", "q")
	assert.ErrorIs(t, err, models.ErrStoreUninitialized)

	_, err = store.History(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestChatService_SessionManagement(t *testing.T) {
	ctx := context.Background()
	chat, _ := newTestChat(t, &fakeSearcher{})

	id, err := chat.NewSession(ctx)
	require.NoError(t, err)
	require.NoError(t, chat.SaveSystemMessage(ctx, id, "answer in Korean"))

	history, err := chat.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "answer in Korean", history[0].SystemMessage)

	ids, err := chat.ListSessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	deleted, err := chat.DeleteSession(ctx, "undefined")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = chat.DeleteSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)
}
