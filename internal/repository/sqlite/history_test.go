package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string, capacity int) *sqlite.HistoryStore {
	t.Helper()
	store, err := sqlite.Open(context.Background(), path, capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryStore_AppendEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"), 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "u1:chat", domain.RoleUser, fmt.Sprintf("m%d", i)))
	}

	got, err := store.Get(ctx, "u1:chat")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "m2"},
		{Role: domain.RoleUser, Content: "m3"},
		{Role: domain.RoleUser, Content: "m4"},
	}, got)

	empty, err := store.Get(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHistoryStore_AppendManyKeepsTurnTogether(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"), 4)

	turn := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "any jazz tonight?"},
		{Role: domain.RoleAssistant, Content: "Jazz Night at 9pm."},
	}
	require.NoError(t, store.AppendMany(ctx, "k", turn))
	require.NoError(t, store.AppendMany(ctx, "k", nil))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, turn, got)

	t.Run("cancelled context writes nothing", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.Error(t, store.AppendMany(cancelled, "k", turn))

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestHistoryStore_SetAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := sqlite.Open(ctx, path, 2)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "a"},
		{Role: domain.RoleAssistant, Content: "b"},
		{Role: domain.RoleUser, Content: "c"},
	}))
	require.NoError(t, store.Close())

	reopened := openStore(t, path, 2)
	got, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "b"},
		{Role: domain.RoleUser, Content: "c"},
	}, got)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), "", 3)
	assert.Error(t, err)
}
