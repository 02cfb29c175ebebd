package notifications

import (
	"context"
	"sync"
	"testing"

	"studioops_go/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHub struct {
	mu    sync.Mutex
	users []string
}

func (h *recordingHub) BroadcastToUser(userID string, _ interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users = append(h.users, userID)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.OpenSQLite("file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return NewService(database.NewGormStore(db), nil, true)
}

func TestNormalizeChannels(t *testing.T) {
	assert.Equal(t, []string{"normal"}, normalizeChannels(nil))
	assert.Equal(t, []string{"normal"}, normalizeChannels([]string{"sms"}))
	assert.Equal(t, []string{"popup", "line"}, normalizeChannels([]string{"popup", "line", "popup"}))
}

func TestEnqueueWithoutRedisInsertsAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	hub := &recordingHub{}
	svc.SetWebSocketHub(hub)

	assert.Error(t, svc.EnqueueOrCreate(ctx, nil, Message("t", "m", "info", nil)))

	msg := Message("New classes assigned", "3 classes", "info", map[string]string{"batch_id": "b1"}, "popup")
	require.NoError(t, svc.EnqueueOrCreate(ctx, []string{"u1", "u2"}, msg))
	assert.ElementsMatch(t, []string{"u1", "u2"}, hub.users)

	rows, err := svc.List(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "New classes assigned", rows[0].Title)
	assert.JSONEq(t, `["popup"]`, string(rows[0].Channels))
	assert.JSONEq(t, `{"batch_id":"b1"}`, string(rows[0].Data))
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	require.NoError(t, svc.EnqueueOrCreate(ctx, []string{"u1"}, Message("a", "a", "info", nil)))
	require.NoError(t, svc.EnqueueOrCreate(ctx, []string{"u1"}, Message("b", "b", "info", nil)))

	rows, err := svc.List(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.ErrorIs(t, svc.MarkRead(ctx, "u2", rows[0].ID), ErrNotificationNotFound)
	require.NoError(t, svc.MarkRead(ctx, "u1", rows[0].ID))

	unread, err := svc.List(ctx, "u1", true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	require.NoError(t, svc.MarkAllRead(ctx, "u1"))
	unread, err = svc.List(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
