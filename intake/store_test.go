package intake

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/internal/cache"
	"github.com/BaSui01/metaexpert/types"
)

func sampleSession(id string) *Session {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &Session{
		ID:           id,
		SystemPrompt: SystemPrompt(now),
		History: []types.Message{
			types.NewUserMessage("research espresso machines"),
			types.NewAssistantMessage("What is your budget?"),
		},
		PrevReport: "last report",
		RunCount:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// =============================================================================
// 内存实现
// =============================================================================

func newMemoryStore(t *testing.T, ttl time.Duration) (*MemoryStore, *time.Time) {
	t.Helper()
	store := NewMemoryStore(ttl)
	t.Cleanup(store.Close)

	current := time.Now()
	store.now = func() time.Time { return current }
	return store, &current
}

func TestMemoryStoreSaveLoad(t *testing.T) {
	store, _ := newMemoryStore(t, time.Minute)
	ctx := context.Background()

	sess := sampleSession("sess-1")
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.SystemPrompt, got.SystemPrompt)
	assert.Equal(t, sess.PrevReport, got.PrevReport)
	assert.Equal(t, sess.RunCount, got.RunCount)
	require.Len(t, got.History, 2)
	assert.Equal(t, "research espresso machines", got.History[0].Content)
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	store, _ := newMemoryStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("sess-1")))

	first, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	first.History = append(first.History, types.NewUserMessage("mutated"))
	first.PrevReport = "mutated"

	second, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, second.History, 2)
	assert.Equal(t, "last report", second.PrevReport)
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store, _ := newMemoryStore(t, time.Minute)

	_, err := store.Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store, current := newMemoryStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("sess-1")))

	*current = current.Add(2 * time.Minute)

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Touch(ctx, "sess-1"), ErrSessionNotFound)
}

func TestMemoryStoreTouchExtends(t *testing.T) {
	store, current := newMemoryStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("sess-1")))

	*current = current.Add(50 * time.Second)
	require.NoError(t, store.Touch(ctx, "sess-1"))

	// 原始过期点已过，但 Touch 重置过 TTL。
	*current = current.Add(50 * time.Second)
	_, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
}

func TestMemoryStoreDelete(t *testing.T) {
	store, _ := newMemoryStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("sess-1")))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// 重复删除不报错。
	assert.NoError(t, store.Delete(ctx, "sess-1"))
}

func TestMemoryStorePruneDropsExpired(t *testing.T) {
	store, current := newMemoryStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("sess-1")))
	require.NoError(t, store.Save(ctx, sampleSession("sess-2")))

	*current = current.Add(2 * time.Minute)
	store.prune()

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Empty(t, store.sessions)
}

// =============================================================================
// Redis 实现
// =============================================================================

func newRedisSessionStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	manager, err := cache.NewManager(cache.Config{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = manager.Close()
		mr.Close()
	})

	return mr, NewRedisStore(manager, time.Minute)
}

func TestRedisStoreSaveLoad(t *testing.T) {
	_, store := newRedisSessionStore(t)
	ctx := context.Background()

	sess := sampleSession("sess-1")
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.PrevReport, got.PrevReport)
	require.Len(t, got.History, 2)
	assert.Equal(t, types.RoleAssistant, got.History[1].Role)
}

func TestRedisStoreLoadMissing(t *testing.T) {
	_, store := newRedisSessionStore(t)

	_, err := store.Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr, store := newRedisSessionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("sess-1")))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreTouchExtends(t *testing.T) {
	mr, store := newRedisSessionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("sess-1")))

	mr.FastForward(30 * time.Second)
	require.NoError(t, store.Touch(ctx, "sess-1"))

	mr.FastForward(45 * time.Second)
	_, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
}

func TestRedisStoreTouchMissing(t *testing.T) {
	_, store := newRedisSessionStore(t)

	assert.ErrorIs(t, store.Touch(context.Background(), "ghost"), ErrSessionNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	_, store := newRedisSessionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("sess-1")))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
