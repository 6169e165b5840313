package coretest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewStoreFunc builds an empty store holding at most maxSize users per room.
type NewStoreFunc func(t *testing.T, maxSize int) core.RoomStore

// RunStoreContract checks the behaviour every core.RoomStore must share.
func RunStoreContract(t *testing.T, newStore NewStoreFunc) {
	ctx := context.Background()

	t.Run("assign creates a room then reuses it", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		first, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, first)

		second, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("full room is never assigned", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		roomID, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		for i := 0; i < domain.MaxRoomSize; i++ {
			require.NoError(t, s.AddUser(ctx, roomID, domain.UserID(fmt.Sprintf("u%d", i)), "Tester"))
		}

		next, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, roomID, next)

		err = s.AddUser(ctx, roomID, "late", "Late")
		assert.ErrorIs(t, err, core.ErrRoomFull)

		ids, err := s.RoomUserIDs(ctx, roomID)
		require.NoError(t, err)
		assert.Len(t, ids, domain.MaxRoomSize)
	})

	t.Run("add user to missing room", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		err := s.AddUser(ctx, "nope", "user1", "Tester")
		assert.ErrorIs(t, err, core.ErrRoomNotFound)
	})

	t.Run("add and remove user", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		roomID, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		require.NoError(t, s.AddUser(ctx, roomID, "user1", "Tester"))
		require.NoError(t, s.AddUser(ctx, roomID, "user2", "Other"))

		ids, err := s.RoomUserIDs(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, []domain.UserID{"user1", "user2"}, ids)

		got, ok, err := s.UserRoomID(ctx, "user1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, roomID, got)

		require.NoError(t, s.RemoveUser(ctx, "user1"))
		ids, err = s.RoomUserIDs(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, []domain.UserID{"user2"}, ids)
	})

	t.Run("last user leaving deletes the room", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		roomID, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		require.NoError(t, s.AddUser(ctx, roomID, "user1", "Tester"))
		require.NoError(t, s.AddTodo(ctx, "user1", "todo1", "task"))
		require.NoError(t, s.RemoveUser(ctx, "user1"))

		_, ok, err := s.UserRoomID(ctx, "user1")
		require.NoError(t, err)
		assert.False(t, ok)

		rooms, err := s.Rooms(ctx)
		require.NoError(t, err)
		assert.Empty(t, rooms)

		assert.ErrorIs(t, s.AddUser(ctx, roomID, "user2", "Tester"), core.ErrRoomNotFound)

		next, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, roomID, next)

		todos, err := s.UserTodos(ctx, "user1")
		require.NoError(t, err)
		assert.Empty(t, todos)
	})

	t.Run("remove unknown user is a no-op", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		assert.NoError(t, s.RemoveUser(ctx, "ghost"))
	})

	t.Run("unknown user has no room", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		roomID, ok, err := s.UserRoomID(ctx, "nonexistent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, roomID)

		_, ok, err = s.User(ctx, "nonexistent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("todo round trip", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		roomID, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		require.NoError(t, s.AddUser(ctx, roomID, "user1", "Tester"))
		require.NoError(t, s.AddTodo(ctx, "user1", "todo1", "first"))
		require.NoError(t, s.AddTodo(ctx, "user1", "todo2", "second"))

		todos, err := s.UserTodos(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, []domain.Todo{
			{ID: "todo1", Title: "first"},
			{ID: "todo2", Title: "second"},
		}, todos)

		require.NoError(t, s.SetTodoCompleted(ctx, "todo1", true))
		todos, err = s.UserTodos(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, []domain.Todo{
			{ID: "todo1", Title: "first", Completed: true},
			{ID: "todo2", Title: "second"},
		}, todos)

		require.NoError(t, s.SetTodoCompleted(ctx, "todo1", true))
		again, err := s.UserTodos(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, todos, again)

		require.NoError(t, s.SetTodoCompleted(ctx, "todo1", false))
		todos, err = s.UserTodos(ctx, "user1")
		require.NoError(t, err)
		assert.False(t, todos[0].Completed)

		user, ok, err := s.User(ctx, "user1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Tester", user.Nickname)
		assert.Equal(t, roomID, user.RoomID)
		assert.Len(t, user.Todos, 2)
	})

	t.Run("todo for unknown user", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		assert.ErrorIs(t, s.AddTodo(ctx, "ghost", "todo1", "x"), core.ErrUserNotFound)
		assert.NoError(t, s.SetTodoCompleted(ctx, "missing", true))
	})

	t.Run("public users aggregate counts", func(t *testing.T) {
		s := newStore(t, domain.MaxRoomSize)
		roomID, err := s.AssignRoom(ctx)
		require.NoError(t, err)
		require.NoError(t, s.AddUser(ctx, roomID, "user1", "Tester"))
		require.NoError(t, s.AddTodo(ctx, "user1", "todo1", "task 1"))
		require.NoError(t, s.AddTodo(ctx, "user1", "todo2", "task 2"))
		require.NoError(t, s.SetTodoCompleted(ctx, "todo1", true))

		users, err := s.PublicUsers(ctx, roomID)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, domain.PublicUser{ID: "user1", Nickname: "Tester", Completed: 1, Total: 2}, users[0])

		require.NoError(t, s.AddUser(ctx, roomID, "user2", "Idle"))
		users, err = s.PublicUsers(ctx, roomID)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, domain.PublicUser{ID: "user2", Nickname: "Idle"}, users[1])
	})

	t.Run("rooms lists member counts", func(t *testing.T) {
		s := newStore(t, 2)
		for i := 0; i < 3; i++ {
			roomID, err := s.AssignRoom(ctx)
			require.NoError(t, err)
			require.NoError(t, s.AddUser(ctx, roomID, domain.UserID(fmt.Sprintf("u%d", i)), "Tester"))
		}
		rooms, err := s.Rooms(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, 2, rooms[0].MemberCount)
		assert.Equal(t, 1, rooms[1].MemberCount)
	})

	t.Run("concurrent joins respect capacity", func(t *testing.T) {
		s := newStore(t, 3)
		const joiners = 20
		var wg sync.WaitGroup
		errs := make(chan error, joiners)
		for i := 0; i < joiners; i++ {
			wg.Add(1)
			go func(uid domain.UserID) {
				defer wg.Done()
				errs <- joinWithRetry(ctx, s, uid)
			}(domain.UserID(fmt.Sprintf("u%d", i)))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		rooms, err := s.Rooms(ctx)
		require.NoError(t, err)
		total := 0
		for _, r := range rooms {
			assert.LessOrEqual(t, r.MemberCount, 3)
			total += r.MemberCount
		}
		assert.Equal(t, joiners, total)
	})
}

func joinWithRetry(ctx context.Context, s core.RoomStore, uid domain.UserID) error {
	for {
		roomID, err := s.AssignRoom(ctx)
		if err != nil {
			return err
		}
		err = s.AddUser(ctx, roomID, uid, string(uid))
		if errors.Is(err, core.ErrRoomFull) || errors.Is(err, core.ErrRoomNotFound) {
			continue
		}
		return err
	}
}
