package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, limit int) *HistoryStore {
	t.Helper()
	store, err := OpenHistoryStore(filepath.Join(t.TempDir(), "history.db"), limit)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryStore_SaveAndLoad(t *testing.T) {
	store := openTestStore(t, 20)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "telegram_1", "user", "hello", 1000))
	require.NoError(t, store.Save(ctx, "telegram_1", "assistant", "hi there", 2000))

	history, err := store.History(ctx, "telegram_1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestHistoryStore_LimitKeepsMostRecent(t *testing.T) {
	store := openTestStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, "telegram_1", "user",
			string(rune('a'+i)), int64(1000+i)))
	}

	history, err := store.History(ctx, "telegram_1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Chronological order, oldest of the kept window first.
	assert.Equal(t, "c", history[0].Content)
	assert.Equal(t, "d", history[1].Content)
	assert.Equal(t, "e", history[2].Content)
}

func TestHistoryStore_ConversationsAreIsolated(t *testing.T) {
	store := openTestStore(t, 20)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "telegram_1", "user", "one", 1000))
	require.NoError(t, store.Save(ctx, "telegram_2", "user", "two", 1000))

	history, err := store.History(ctx, "telegram_1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "one", history[0].Content)
}

func TestHistoryStore_EmptyConversation(t *testing.T) {
	store := openTestStore(t, 20)

	history, err := store.History(context.Background(), "telegram_9")
	require.NoError(t, err)
	assert.Empty(t, history)
}
