package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Rooms/internal/app"
	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/core/coretest"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrch(maxSize int, policy app.Policy) *Orchestrator {
	return New(app.NewMemoryStore(maxSize), policy)
}

func join(t *testing.T, o *Orchestrator, uid domain.UserID, nickname string) (*coretest.Conn, domain.RoomID) {
	t.Helper()
	conn := coretest.NewConn()
	roomID, err := o.Join(context.Background(), uid, conn, nickname)
	require.NoError(t, err)
	return conn, roomID
}

func TestJoin(t *testing.T) {
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})

	c1, room1 := join(t, o, "u1", "  Ann  ")
	var joined roomJoined
	require.True(t, c1.Last(core.EventRoomJoined, &joined))
	assert.Equal(t, room1, joined.RoomID)
	assert.Equal(t, []domain.PublicUser{{ID: "u1", Nickname: "Ann"}}, joined.Users)

	c2, room2 := join(t, o, "u2", "")
	assert.Equal(t, room1, room2)
	assert.Equal(t, []string{core.EventRoomJoined}, c2.Events(), "joiner is excluded from user:joined")
	require.True(t, c2.Last(core.EventRoomJoined, &joined))
	require.Len(t, joined.Users, 2)
	assert.NotEmpty(t, joined.Users[1].Nickname, "blank nickname gets a generated one")

	var ev nicknameEvent
	require.True(t, c1.Last(core.EventUserJoined, &ev))
	assert.Equal(t, joined.Users[1].Nickname, ev.Nickname)
}

func TestJoin_FullRoomOpensNewOne(t *testing.T) {
	o := newTestOrch(2, app.DropPolicy{})
	_, a := join(t, o, "u1", "A")
	_, b := join(t, o, "u2", "B")
	_, c := join(t, o, "u3", "C")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestAddTodo_SyncsActorAndRoom(t *testing.T) {
	ctx := context.Background()
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})
	ann, _ := join(t, o, "u1", "Ann")
	bob, _ := join(t, o, "u2", "Bob")
	ann.Reset()
	bob.Reset()

	require.NoError(t, o.AddTodo(ctx, "u1", ann, "buy milk"))

	assert.Equal(t, []string{core.EventTodoSynced, core.EventRoomUpdate}, ann.Events())
	assert.Equal(t, []string{core.EventRoomUpdate}, bob.Events())

	var synced todoSynced
	require.True(t, ann.Last(core.EventTodoSynced, &synced))
	require.Len(t, synced.Todos, 1)
	assert.Equal(t, "buy milk", synced.Todos[0].Title)
	assert.False(t, synced.Todos[0].Completed)

	for _, c := range []*coretest.Conn{ann, bob} {
		var upd roomUpdate
		require.True(t, c.Last(core.EventRoomUpdate, &upd))
		require.Len(t, upd.Users, 2)
		assert.Equal(t, domain.PublicUser{ID: "u1", Nickname: "Ann", Completed: 0, Total: 1}, upd.Users[0])
	}
}

func TestSetTodoCompleted(t *testing.T) {
	ctx := context.Background()
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})
	ann, _ := join(t, o, "u1", "Ann")
	require.NoError(t, o.AddTodo(ctx, "u1", ann, "one"))
	require.NoError(t, o.AddTodo(ctx, "u1", ann, "two"))

	var synced todoSynced
	require.True(t, ann.Last(core.EventTodoSynced, &synced))
	first := synced.Todos[0].ID

	require.NoError(t, o.SetTodoCompleted(ctx, "u1", ann, first, true))
	require.True(t, ann.Last(core.EventTodoSynced, &synced))
	assert.True(t, synced.Todos[0].Completed)
	assert.False(t, synced.Todos[1].Completed)

	var upd roomUpdate
	require.True(t, ann.Last(core.EventRoomUpdate, &upd))
	assert.Equal(t, 1, upd.Users[0].Completed)
	assert.Equal(t, 2, upd.Users[0].Total)

	require.NoError(t, o.SetTodoCompleted(ctx, "u1", ann, first, false))
	require.True(t, ann.Last(core.EventRoomUpdate, &upd))
	assert.Equal(t, 0, upd.Users[0].Completed)
}

func TestSetTodoCompleted_ForeignTodoUntouched(t *testing.T) {
	ctx := context.Background()
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})
	ann, _ := join(t, o, "u1", "Ann")
	bob, _ := join(t, o, "u2", "Bob")
	require.NoError(t, o.AddTodo(ctx, "u1", ann, "ann's task"))

	var synced todoSynced
	require.True(t, ann.Last(core.EventTodoSynced, &synced))
	annTodo := synced.Todos[0].ID

	bob.Reset()
	require.NoError(t, o.SetTodoCompleted(ctx, "u2", bob, annTodo, true))

	todos, err := o.Store.UserTodos(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.False(t, todos[0].Completed)

	var upd roomUpdate
	require.True(t, bob.Last(core.EventRoomUpdate, &upd))
	assert.Equal(t, domain.PublicUser{ID: "u1", Nickname: "Ann", Completed: 0, Total: 1}, upd.Users[0])
}

func TestRoomUpdatesFollowMutationOrder(t *testing.T) {
	const n = 50
	ctx := context.Background()
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})
	ann, _ := join(t, o, "u1", "Ann")
	bob, _ := join(t, o, "u2", "Bob")
	bob.Reset()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			uid := domain.UserID(fmt.Sprintf("c%d", i))
			conn := coretest.NewConn()
			if _, err := o.Join(ctx, uid, conn, "Cid"); err == nil {
				o.Leave(ctx, uid, conn)
			}
		}
	}()

	for i := 0; i < n; i++ {
		require.NoError(t, o.AddTodo(ctx, "u1", ann, fmt.Sprintf("task %d", i)))
	}
	close(stop)
	wg.Wait()

	last := -1
	for _, m := range bob.Messages() {
		if m.Event != core.EventRoomUpdate {
			continue
		}
		var upd roomUpdate
		require.NoError(t, json.Unmarshal(m.Data, &upd))
		for _, u := range upd.Users {
			if u.ID != "u1" {
				continue
			}
			require.GreaterOrEqual(t, u.Total, last, "room:update totals went backwards")
			last = u.Total
		}
	}
	assert.Equal(t, n, last)
}

func TestMutationAfterLeaveIsNoop(t *testing.T) {
	ctx := context.Background()
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})
	ann, _ := join(t, o, "u1", "Ann")
	o.Leave(ctx, "u1", ann)
	ann.Reset()

	require.NoError(t, o.AddTodo(ctx, "u1", ann, "late"))
	require.NoError(t, o.SetTodoCompleted(ctx, "u1", ann, "whatever", true))
	assert.Empty(t, ann.Frames())
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})
	ann, roomID := join(t, o, "u1", "Ann")
	bob, _ := join(t, o, "u2", "Bob")
	ann.Reset()

	o.Leave(ctx, "u2", bob)

	var ev nicknameEvent
	require.True(t, ann.Last(core.EventUserLeft, &ev))
	assert.Equal(t, "Bob", ev.Nickname)
	_, ok := o.Registry.Lookup("u2")
	assert.False(t, ok)

	o.Leave(ctx, "u1", ann)
	rooms, err := o.Rooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.Zero(t, o.Registry.Len())

	_, next := join(t, o, "u3", "Cid")
	assert.NotEqual(t, roomID, next)
}

func TestLeave_UnknownUser(t *testing.T) {
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})
	o.Leave(context.Background(), "ghost", coretest.NewConn())
}

func TestKickPolicyClosesSlowMember(t *testing.T) {
	ctx := context.Background()
	o := newTestOrch(domain.MaxRoomSize, app.KickPolicy{})
	ann, _ := join(t, o, "u1", "Ann")
	bob, _ := join(t, o, "u2", "Bob")
	bob.SetFull(true)

	require.NoError(t, o.AddTodo(ctx, "u1", ann, "x"))
	assert.False(t, bob.IsOpen())
	assert.True(t, ann.IsOpen())
}

func TestDropPolicyKeepsSlowMember(t *testing.T) {
	ctx := context.Background()
	o := newTestOrch(domain.MaxRoomSize, app.DropPolicy{})
	ann, _ := join(t, o, "u1", "Ann")
	bob, _ := join(t, o, "u2", "Bob")
	bob.SetFull(true)

	require.NoError(t, o.AddTodo(ctx, "u1", ann, "x"))
	assert.True(t, bob.IsOpen())
}
