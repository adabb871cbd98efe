package schedule

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestScheduleLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &Schedule{
		ID:            "sched-1",
		WorkspaceID:   "ws-1",
		HeadAgentSlug: "head",
		AgentSlug:     "researcher",
		Task:          "daily digest",
		CronExpr:      "0 9 * * *",
		Enabled:       true,
	}))
	require.NoError(t, store.Add(ctx, &Schedule{
		ID:          "sched-2",
		WorkspaceID: "ws-1",
		AgentSlug:   "writer",
		Task:        "weekly report",
		CronExpr:    "0 9 * * 1",
		Enabled:     false,
	}))

	list, err := store.Enabled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sched-1", list[0].ID)
	assert.Equal(t, "daily digest", list[0].Task)
	assert.True(t, list[0].LastRun.IsZero())

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.MarkRun(ctx, "sched-1", now))
	list, err = store.Enabled(ctx)
	require.NoError(t, err)
	assert.True(t, list[0].LastRun.Equal(now), "last_run should round-trip")

	require.NoError(t, store.SetEnabled(ctx, "sched-2", true))
	list, err = store.Enabled(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, store.SetEnabled(ctx, "sched-1", false))
	list, err = store.Enabled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sched-2", list[0].ID)
}

func TestMarkRunMissing(t *testing.T) {
	store := newTestStore(t)
	err := store.MarkRun(context.Background(), "ghost", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetEnabledMissing(t *testing.T) {
	store := newTestStore(t)
	err := store.SetEnabled(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, ErrNotFound)
}
