package sessions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
)

func setupFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sessions")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	return s, dir
}

func TestFileStore_Lifecycle(t *testing.T) {
	s, dir := setupFileStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	msg := models.NewChatMessage(time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local))
	msg.Question = "연락처?"
	msg.Answer = "name: kim"
	msg.Source = "people.csv | -"
	require.NoError(t, s.Append(ctx, id, msg))

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-05-01T09:30:00.000000", history[0].Timestamp)
	assert.Equal(t, "people.csv | -", history[0].Source)

	data, err = os.ReadFile(filepath.Join(dir, id+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"question": "연락처?"`)
	assert.NotContains(t, string(data), "system_message")

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)

	deleted, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFileStore_UnknownAndCorruptHistory(t *testing.T) {
	s, dir := setupFileStore(t)
	ctx := context.Background()

	_, err := s.History(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	history, err := s.History(ctx, "broken")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, s.Append(ctx, "broken", models.ChatMessage{Timestamp: "t", SystemMessage: "be brief"}))
	history, err = s.History(ctx, "broken")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "be brief", history[0].SystemMessage)
}

func TestFileStore_EnsureKeepsExisting(t *testing.T) {
	s, _ := setupFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "abc", models.ChatMessage{Timestamp: "t", Question: "q"}))
	require.NoError(t, s.Ensure(ctx, "abc"))

	history, err := s.History(ctx, "abc")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestFileStore_RejectsBadIDs(t *testing.T) {
	s, _ := setupFileStore(t)
	ctx := context.Background()

	for _, id := range []string{"", "undefined", "../escape", `a\b`} {
		_, err := s.History(ctx, id)
		assert.ErrorIs(t, err, models.ErrInvalidInput, id)
	}
}
