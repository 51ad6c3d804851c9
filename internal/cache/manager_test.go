package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	config := Config{
		Addr:       mr.Addr(),
		DefaultTTL: 1 * time.Minute,
	}

	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = manager.Close()
		mr.Close()
	})

	return mr, manager
}

func TestManagerSetAndGet(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "serper:q1", "cached body", time.Minute))

	value, err := manager.Get(ctx, "serper:q1")
	require.NoError(t, err)
	assert.Equal(t, "cached body", value)
}

func TestManagerGetMiss(t *testing.T) {
	_, manager := setupTestRedis(t)

	_, err := manager.Get(context.Background(), "absent")
	assert.True(t, IsCacheMiss(err))
}

func TestManagerJSONRoundTrip(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	type searchHit struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	}

	in := []searchHit{{Title: "Best keyboards", Link: "https://example.com"}}
	require.NoError(t, manager.SetJSON(ctx, "hits", in, time.Minute))

	var out []searchHit
	require.NoError(t, manager.GetJSON(ctx, "hits", &out))
	assert.Equal(t, in, out)
}

func TestManagerTTLExpiry(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "ephemeral", "v", time.Second))

	mr.FastForward(2 * time.Second)

	_, err := manager.Get(ctx, "ephemeral")
	assert.True(t, IsCacheMiss(err))
}

func TestManagerDeleteAndExists(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "a", "1", 0))
	require.NoError(t, manager.Set(ctx, "b", "2", 0))

	count, err := manager.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, manager.Delete(ctx, "a"))

	count, err = manager.Exists(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestManagerClosedOperations(t *testing.T) {
	_, manager := setupTestRedis(t)
	require.NoError(t, manager.Close())

	_, err := manager.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, manager.Set(context.Background(), "k", "v", 0))
}
