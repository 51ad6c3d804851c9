package storage

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *GormRunStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	store := NewGormRunStore(db, nil)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestRunStoreCreateAndFetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		SessionID:    "sess-1",
		Requirements: "find the best razor",
	}
	require.NoError(t, store.Create(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := store.LatestBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "find the best razor", got.Requirements)
}

func TestRunStoreFinish(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{SessionID: "sess-1", Requirements: "req"}
	require.NoError(t, store.Create(ctx, run))

	require.NoError(t, store.Finish(ctx, run.ID, RunUpdate{
		Status:           RunStatusDone,
		Report:           "final report",
		NodeCount:        7,
		PromptTokens:     1200,
		CompletionTokens: 340,
	}))

	got, err := store.LatestBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, got.Status)
	assert.Equal(t, "final report", got.Report)
	assert.Equal(t, 7, got.NodeCount)
	assert.Equal(t, 1200, got.PromptTokens)
	assert.Equal(t, 340, got.CompletionTokens)
}

func TestRunStoreFinishMissingRun(t *testing.T) {
	store := newTestStore(t)

	err := store.Finish(context.Background(), "no-such-id", RunUpdate{Status: RunStatusDone})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStoreLatestPicksNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	older := &Run{SessionID: "sess-1", Requirements: "first", CreatedAt: base}
	newer := &Run{SessionID: "sess-1", Requirements: "second", CreatedAt: base.Add(time.Minute)}
	other := &Run{SessionID: "sess-2", Requirements: "elsewhere", CreatedAt: base.Add(2 * time.Minute)}

	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))
	require.NoError(t, store.Create(ctx, other))

	got, err := store.LatestBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Requirements)
}

func TestRunStoreLatestMissingSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LatestBySession(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStoreListBySession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		run := &Run{
			SessionID:    "sess-1",
			Requirements: "req",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Create(ctx, run))
	}

	runs, err := store.ListBySession(ctx, "sess-1", 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt))
	assert.True(t, runs[1].CreatedAt.After(runs[2].CreatedAt))

	all, err := store.ListBySession(ctx, "sess-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)

	store := NewGormRunStore(db, nil)
	require.NoError(t, store.AutoMigrate())
	require.NoError(t, store.Create(context.Background(), &Run{SessionID: "s"}))
}
