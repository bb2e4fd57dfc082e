package redis_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	repo "github.com/Rrens/event-assistant/internal/repository/redis"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*repo.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repo.Wrap(rdb), mr
}

func TestHistoryStore_AppendEvictsFromFront(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()
	store := repo.NewHistoryStore(client, 3, time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "u1:chat", domain.RoleUser, fmt.Sprintf("m%d", i)))
	}

	got, err := store.Get(ctx, "u1:chat")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "m2", got[0].Content)
	assert.Equal(t, "m4", got[2].Content)
	assert.Equal(t, domain.RoleUser, got[0].Role)

	assert.Greater(t, mr.TTL("history:u1:chat"), time.Duration(0))
}

func TestHistoryStore_AppendManyKeepsTurnTogether(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	store := repo.NewHistoryStore(client, 3, 0)

	require.NoError(t, store.Append(ctx, "k", domain.RoleUser, "m0"))
	require.NoError(t, store.AppendMany(ctx, "k", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "any jazz tonight?"},
		{Role: domain.RoleAssistant, Content: "Jazz Night at 9pm."},
	}))
	require.NoError(t, store.AppendMany(ctx, "k", nil))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "m0"},
		{Role: domain.RoleUser, Content: "any jazz tonight?"},
		{Role: domain.RoleAssistant, Content: "Jazz Night at 9pm."},
	}, got)

	require.NoError(t, store.AppendMany(ctx, "k", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "and tomorrow?"},
		{Role: domain.RoleAssistant, Content: "Nothing yet."},
	}))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Jazz Night at 9pm.", got[0].Content)
	assert.Equal(t, "Nothing yet.", got[2].Content)
}

func TestHistoryStore_Set(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	store := repo.NewHistoryStore(client, 2, 0)

	require.NoError(t, store.Set(ctx, "k", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "a"},
		{Role: domain.RoleAssistant, Content: "b"},
		{Role: domain.RoleUser, Content: "c"},
	}))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "b"},
		{Role: domain.RoleUser, Content: "c"},
	}, got)

	require.NoError(t, store.Set(ctx, "k", nil))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryStore_ConcurrentAppends(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	store := repo.NewHistoryStore(client, 100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, "shared", domain.RoleUser, fmt.Sprintf("m%d", i)))
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestEmbeddingCache(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	cache := repo.NewEmbeddingCache(client)

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", []float32{0.6, 0.8}, time.Minute))
	vec, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{0.6, 0.8}, vec)

	deleted, err := cache.FlushAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRateLimiter(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	limiter := repo.NewRateLimiter(client, 2, 1)

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, reset, err := limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.True(t, reset.After(time.Now()))

	require.NoError(t, limiter.Reset(ctx, "user-1"))
	allowed, _, _, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
