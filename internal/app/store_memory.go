package app

import (
	"context"
	"sync"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/rs/zerolog/log"
)

// MemoryStore is the authoritative in-process RoomStore.
// A single RWMutex guards rooms, users and the todo index together so every
// operation sees a consistent graph.
type MemoryStore struct {
	mu      sync.RWMutex
	maxSize int
	rooms   map[domain.RoomID]*domain.Room
	order   []domain.RoomID
	users   map[domain.UserID]*domain.User
	todos   map[domain.TodoID]domain.UserID
}

func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = domain.MaxRoomSize
	}
	return &MemoryStore{
		maxSize: maxSize,
		rooms:   make(map[domain.RoomID]*domain.Room),
		users:   make(map[domain.UserID]*domain.User),
		todos:   make(map[domain.TodoID]domain.UserID),
	}
}

var _ core.RoomStore = (*MemoryStore)(nil)

func (s *MemoryStore) AssignRoom(_ context.Context) (domain.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if len(s.rooms[id].Users) < s.maxSize {
			return id, nil
		}
	}
	id := domain.RoomID(domain.NewID())
	for s.rooms[id] != nil {
		id = domain.RoomID(domain.NewID())
	}
	s.rooms[id] = &domain.Room{ID: id}
	s.order = append(s.order, id)
	log.Info().Str("module", "app.store").Str("room", string(id)).Msg("room created")
	return id, nil
}

func (s *MemoryStore) AddUser(_ context.Context, roomID domain.RoomID, userID domain.UserID, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return core.ErrRoomNotFound
	}
	if len(room.Users) >= s.maxSize {
		return core.ErrRoomFull
	}
	room.Users = append(room.Users, userID)
	s.users[userID] = &domain.User{ID: userID, Nickname: nickname, RoomID: roomID}
	log.Info().Str("module", "app.store").Str("room", string(roomID)).Str("uid", string(userID)).Msg("user added")
	return nil
}

func (s *MemoryStore) RemoveUser(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil
	}
	for _, t := range user.Todos {
		if s.todos[t.ID] == userID {
			delete(s.todos, t.ID)
		}
	}
	delete(s.users, userID)

	room, ok := s.rooms[user.RoomID]
	if !ok {
		return nil
	}
	for i, id := range room.Users {
		if id == userID {
			room.Users = append(room.Users[:i], room.Users[i+1:]...)
			break
		}
	}
	if len(room.Users) == 0 {
		s.deleteRoomLocked(room.ID)
	}
	log.Info().Str("module", "app.store").Str("room", string(user.RoomID)).Str("uid", string(userID)).Msg("user removed")
	return nil
}

func (s *MemoryStore) deleteRoomLocked(id domain.RoomID) {
	delete(s.rooms, id)
	for i, rid := range s.order {
		if rid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "app.store").Str("room", string(id)).Msg("room deleted")
}

func (s *MemoryStore) User(_ context.Context, userID domain.UserID) (*domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, false, nil
	}
	cp := *user
	cp.Todos = append([]domain.Todo(nil), user.Todos...)
	return &cp, true, nil
}

func (s *MemoryStore) UserRoomID(_ context.Context, userID domain.UserID) (domain.RoomID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return user.RoomID, true, nil
	}
	return "", false, nil
}

func (s *MemoryStore) RoomUserIDs(_ context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return []domain.UserID{}, nil
	}
	return append([]domain.UserID{}, room.Users...), nil
}

func (s *MemoryStore) AddTodo(_ context.Context, userID domain.UserID, todoID domain.TodoID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	user.Todos = append(user.Todos, domain.Todo{ID: todoID, Title: title})
	s.todos[todoID] = userID
	return nil
}

func (s *MemoryStore) SetTodoCompleted(_ context.Context, todoID domain.TodoID, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[s.todos[todoID]]
	if !ok {
		return nil
	}
	for i := range user.Todos {
		if user.Todos[i].ID == todoID {
			user.Todos[i].Completed = completed
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) UserTodos(_ context.Context, userID domain.UserID) ([]domain.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return []domain.Todo{}, nil
	}
	return append([]domain.Todo{}, user.Todos...), nil
}

func (s *MemoryStore) PublicUsers(_ context.Context, roomID domain.RoomID) ([]domain.PublicUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return []domain.PublicUser{}, nil
	}
	out := make([]domain.PublicUser, 0, len(room.Users))
	for _, uid := range room.Users {
		if user, ok := s.users[uid]; ok {
			out = append(out, user.Public())
		}
	}
	return out, nil
}

func (s *MemoryStore) Rooms(_ context.Context) ([]core.RoomInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, core.RoomInfo{ID: id, MemberCount: len(s.rooms[id].Users)})
	}
	return out, nil
}
