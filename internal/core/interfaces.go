package core

import (
	"context"
	"errors"

	"github.com/dkeye/Rooms/internal/domain"
)

// Frame is a serialized message ready for the wire.
type Frame []byte

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrUserNotFound = errors.New("user not found")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues f without blocking.
	TrySend(Frame) error
	IsOpen() bool
	Close()
}

// RoomInfo is a read-only view of a live room for APIs.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// RoomStore owns rooms, their users and the users' todos.
// Implementations must be safe for concurrent use.
type RoomStore interface {
	// AssignRoom returns the first live room with spare capacity,
	// creating an empty one when none qualifies.
	AssignRoom(ctx context.Context) (domain.RoomID, error)
	// AddUser fails with ErrRoomNotFound or ErrRoomFull.
	AddUser(ctx context.Context, roomID domain.RoomID, userID domain.UserID, nickname string) error
	// RemoveUser drops the user with its todos and deletes the room once empty.
	// Unknown users are ignored.
	RemoveUser(ctx context.Context, userID domain.UserID) error
	User(ctx context.Context, userID domain.UserID) (*domain.User, bool, error)
	UserRoomID(ctx context.Context, userID domain.UserID) (domain.RoomID, bool, error)
	RoomUserIDs(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error)

	AddTodo(ctx context.Context, userID domain.UserID, todoID domain.TodoID, title string) error
	// SetTodoCompleted is a no-op for unknown todos.
	SetTodoCompleted(ctx context.Context, todoID domain.TodoID, completed bool) error
	UserTodos(ctx context.Context, userID domain.UserID) ([]domain.Todo, error)
	PublicUsers(ctx context.Context, roomID domain.RoomID) ([]domain.PublicUser, error)

	Rooms(ctx context.Context) ([]RoomInfo, error)
}
