package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/rs/zerolog/log"
)

type todoSynced struct {
	Todos []domain.Todo `json:"todos"`
}

type roomUpdate struct {
	Users []domain.PublicUser `json:"users"`
}

// AddTodo appends a task for uid, then syncs the actor and the room.
func (o *Orchestrator) AddTodo(ctx context.Context, uid domain.UserID, conn core.SignalConnection, title string) error {
	return o.mutate(ctx, uid, conn, func(ctx context.Context) error {
		todoID := domain.TodoID(domain.NewID())
		log.Debug().Str("module", "orch").Str("uid", string(uid)).Str("todo", string(todoID)).Msg("add todo")
		return o.Store.AddTodo(ctx, uid, todoID, title)
	})
}

// SetTodoCompleted toggles one of uid's own tasks, then syncs the actor and
// the room. Ids owned by someone else are left untouched.
func (o *Orchestrator) SetTodoCompleted(ctx context.Context, uid domain.UserID, conn core.SignalConnection, todoID domain.TodoID, completed bool) error {
	return o.mutate(ctx, uid, conn, func(ctx context.Context) error {
		owned, err := o.ownsTodo(ctx, uid, todoID)
		if err != nil || !owned {
			return err
		}
		log.Debug().Str("module", "orch").Str("uid", string(uid)).Str("todo", string(todoID)).Bool("completed", completed).Msg("set todo")
		return o.Store.SetTodoCompleted(ctx, todoID, completed)
	})
}

func (o *Orchestrator) ownsTodo(ctx context.Context, uid domain.UserID, todoID domain.TodoID) (bool, error) {
	todos, err := o.Store.UserTodos(ctx, uid)
	if err != nil {
		return false, err
	}
	for _, t := range todos {
		if t.ID == todoID {
			return true, nil
		}
	}
	return false, nil
}

// mutate applies fn under the user's room lock and replies todo:synced to the
// actor followed by room:update to everyone in the room, actor included.
// A user that is already gone makes the whole call a no-op.
func (o *Orchestrator) mutate(ctx context.Context, uid domain.UserID, conn core.SignalConnection, fn func(context.Context) error) error {
	roomID, ok, err := o.Store.UserRoomID(ctx, uid)
	if err != nil {
		return fmt.Errorf("user room: %w", err)
	}
	if !ok {
		return nil
	}

	unlock := o.locks.lock(roomID)
	defer unlock()

	if err := fn(ctx); err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil
		}
		return err
	}

	todos, err := o.Store.UserTodos(ctx, uid)
	if err != nil {
		return fmt.Errorf("user todos: %w", err)
	}
	o.send(conn, core.EventTodoSynced, todoSynced{Todos: todos})

	users, err := o.Store.PublicUsers(ctx, roomID)
	if err != nil {
		return fmt.Errorf("public users: %w", err)
	}
	o.broadcast(ctx, roomID, core.EventRoomUpdate, roomUpdate{Users: users}, "")
	return nil
}
