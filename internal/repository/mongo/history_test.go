package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/Rrens/event-assistant/internal/config"
	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/repository/mongo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	store, err := mongo.Connect(ctx, config.MongoConfig{
		URI:        uri,
		Database:   "event_assistant_test",
		Collection: "history_" + uuid.NewString(),
	}, 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	got, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "k", domain.RoleUser, fmt.Sprintf("m%d", i)))
	}
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "m2", got[0].Content)

	require.NoError(t, store.Set(ctx, "k", []domain.ChatMessage{{Role: domain.RoleAssistant, Content: "x"}}))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{{Role: domain.RoleAssistant, Content: "x"}}, got)
}
