package channelstore

import (
	"context"
	"path/filepath"
	"testing"

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

func TestChannelAndProfileLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateChannel(ctx, &Channel{
		ID: "chan-1", WorkspaceID: "ws-1", AgentSlug: "researcher", Name: "research",
	}))
	require.NoError(t, store.CreateProfile(ctx, &Profile{
		ID: "prof-1", WorkspaceID: "ws-1", AgentSlug: "head", DisplayName: "Head",
	}))

	ch, err := store.AgentChannel(ctx, "ws-1", "researcher")
	require.NoError(t, err)
	assert.Equal(t, "chan-1", ch.ID)
	assert.Equal(t, "research", ch.Name)

	p, err := store.AgentProfile(ctx, "ws-1", "head")
	require.NoError(t, err)
	assert.Equal(t, "prof-1", p.ID)

	_, err = store.AgentChannel(ctx, "ws-1", "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.AgentChannel(ctx, "ws-other", "researcher")
	assert.ErrorIs(t, err, ErrNotFound, "channels are workspace-scoped")

	_, err = store.AgentProfile(ctx, "ws-1", "researcher")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg := &Message{
		RequestID: "req-1",
		ChannelID: "chan-1",
		SenderID:  "prof-1",
		Body:      "## Task:\ndo the thing",
	}
	require.NoError(t, store.PostMessage(ctx, msg))
	assert.Equal(t, StatusPending, msg.Status)
	assert.False(t, msg.CreatedAt.IsZero())

	got, err := store.Message(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "## Task:\ndo the thing", got.Body)
	assert.Equal(t, StatusPending, got.Status)

	require.NoError(t, store.UpdateMessageStatus(ctx, "req-1", StatusDelivered))
	got, err = store.Message(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
}

func TestUpdateMissingMessage(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateMessageStatus(context.Background(), "ghost", StatusTimeout)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateChannelRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ch := &Channel{ID: "chan-1", WorkspaceID: "ws-1", AgentSlug: "researcher"}
	require.NoError(t, store.CreateChannel(ctx, ch))

	dup := &Channel{ID: "chan-2", WorkspaceID: "ws-1", AgentSlug: "researcher"}
	assert.Error(t, store.CreateChannel(ctx, dup), "one channel per agent per workspace")
}
