package app

import (
	"context"
	"testing"

	"github.com/dkeye/Rooms/internal/core/coretest"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(domain.MaxRoomSize)
	reg := NewRegistry()
	b := NewBroadcaster(store, reg)

	roomID, err := store.AssignRoom(ctx)
	require.NoError(t, err)

	conns := map[domain.UserID]*coretest.Conn{}
	for _, uid := range []domain.UserID{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.AddUser(ctx, roomID, uid, string(uid)))
		conns[uid] = coretest.NewConn()
		reg.Register(uid, conns[uid])
	}
	conns["c"].Close()
	conns["d"].SetFull(true)
	reg.Unregister("e", conns["e"])

	res, err := b.Broadcast(ctx, roomID, "user:joined", map[string]string{"nickname": "a"}, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, res.SentTo)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []domain.UserID{"d"}, res.Dropped)

	assert.Empty(t, conns["a"].Frames())
	assert.Equal(t, []string{"user:joined"}, conns["b"].Events())
	assert.JSONEq(t, `{"event":"user:joined","data":{"nickname":"a"}}`, string(conns["b"].Frames()[0]))
}

func TestBroadcaster_EmptyRoom(t *testing.T) {
	b := NewBroadcaster(NewMemoryStore(0), NewRegistry())
	res, err := b.Broadcast(context.Background(), "gone", "user:left", map[string]string{"nickname": "x"}, "")
	require.NoError(t, err)
	assert.Zero(t, res.SentTo)
	assert.Empty(t, res.Dropped)
}

func TestNewPolicy(t *testing.T) {
	assert.Equal(t, KickMember, NewPolicy("kick").OnBackPressure("r", "u"))
	assert.Equal(t, DropFrame, NewPolicy("drop").OnBackPressure("r", "u"))
	assert.Equal(t, DropFrame, NewPolicy("bogus").OnBackPressure("r", "u"))
}
