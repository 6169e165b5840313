// Package repo is the repository-backed RoomStore: rooms, users and todos live
// in three SQL relations and every query is a derived view over them.
package repo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		// one connection keeps ":memory:" databases shared and writes serialized
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Str("module", "repo").Str("driver", driver).Msg("database ready")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&roomRow{}, &userRow{}, &todoRow{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Store implements core.RoomStore on top of gorm.
//
// AssignRoom reads capacity with a counting query, so two concurrent joiners
// may both miss a free slot and create a surplus room. AddUser re-checks the
// count inside its transaction, so a room is never filled past maxSize.
type Store struct {
	db      *gorm.DB
	maxSize int
	seq     atomic.Int64
}

func New(db *gorm.DB, maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = domain.MaxRoomSize
	}
	s := &Store{db: db, maxSize: maxSize}
	s.seq.Store(time.Now().UnixNano())
	return s
}

var _ core.RoomStore = (*Store)(nil)

func (s *Store) next() int64 { return s.seq.Add(1) }

func (s *Store) AssignRoom(ctx context.Context) (domain.RoomID, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&roomRow{}).
		Joins("LEFT JOIN users ON users.room_id = rooms.id").
		Group("rooms.id, rooms.seq").
		Having("COUNT(users.id) < ?", s.maxSize).
		Order("rooms.seq").
		Limit(1).
		Pluck("rooms.id", &ids).Error
	if err != nil {
		return "", fmt.Errorf("failed to find open room: %w", err)
	}
	if len(ids) > 0 {
		return domain.RoomID(ids[0]), nil
	}

	room := &roomRow{ID: domain.NewID(), Seq: s.next(), CreatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	}
	log.Info().Str("module", "repo").Str("room", room.ID).Msg("room created")
	return domain.RoomID(room.ID), nil
}

func (s *Store) AddUser(ctx context.Context, roomID domain.RoomID, userID domain.UserID, nickname string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var room roomRow
		if err := q.First(&room, "id = ?", string(roomID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.ErrRoomNotFound
			}
			return fmt.Errorf("failed to find room: %w", err)
		}
		var count int64
		if err := tx.Model(&userRow{}).Where("room_id = ?", room.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if count >= int64(s.maxSize) {
			return core.ErrRoomFull
		}
		user := &userRow{
			ID:        string(userID),
			Seq:       s.next(),
			Nickname:  nickname,
			RoomID:    room.ID,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

func (s *Store) RemoveUser(ctx context.Context, userID domain.UserID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userRow
		if err := tx.First(&user, "id = ?", string(userID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to find user: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&todoRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete todos: %w", err)
		}
		if err := tx.Delete(&userRow{}, "id = ?", user.ID).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		var left int64
		if err := tx.Model(&userRow{}).Where("room_id = ?", user.RoomID).Count(&left).Error; err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if left == 0 {
			if err := tx.Delete(&roomRow{}, "id = ?", user.RoomID).Error; err != nil {
				return fmt.Errorf("failed to delete room: %w", err)
			}
			log.Info().Str("module", "repo").Str("room", user.RoomID).Msg("room deleted")
		}
		return nil
	})
}

func (s *Store) User(ctx context.Context, userID domain.UserID) (*domain.User, bool, error) {
	var row userRow
	err := s.db.WithContext(ctx).
		Preload("Todos", func(db *gorm.DB) *gorm.DB { return db.Order("todos.seq") }).
		First(&row, "id = ?", string(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find user: %w", err)
	}
	return &domain.User{
		ID:       domain.UserID(row.ID),
		Nickname: row.Nickname,
		RoomID:   domain.RoomID(row.RoomID),
		Todos:    toTodos(row.Todos),
	}, true, nil
}

func (s *Store) UserRoomID(ctx context.Context, userID domain.UserID) (domain.RoomID, bool, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", string(userID)).Limit(1).Pluck("room_id", &ids).Error; err != nil {
		return "", false, fmt.Errorf("failed to find user room: %w", err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return domain.RoomID(ids[0]), true, nil
}

func (s *Store) RoomUserIDs(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&userRow{}).Where("room_id = ?", string(roomID)).Order("seq").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list room users: %w", err)
	}
	out := make([]domain.UserID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.UserID(id))
	}
	return out, nil
}

func (s *Store) AddTodo(ctx context.Context, userID domain.UserID, todoID domain.TodoID, title string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRow{}).Where("id = ?", string(userID)).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to find user: %w", err)
		}
		if count == 0 {
			return core.ErrUserNotFound
		}
		todo := &todoRow{
			ID:        string(todoID),
			Seq:       s.next(),
			UserID:    string(userID),
			Title:     title,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(todo).Error; err != nil {
			return fmt.Errorf("failed to create todo: %w", err)
		}
		return nil
	})
}

func (s *Store) SetTodoCompleted(ctx context.Context, todoID domain.TodoID, completed bool) error {
	err := s.db.WithContext(ctx).Model(&todoRow{}).Where("id = ?", string(todoID)).Update("completed", completed).Error
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	return nil
}

func (s *Store) UserTodos(ctx context.Context, userID domain.UserID) ([]domain.Todo, error) {
	var rows []todoRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", string(userID)).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return toTodos(rows), nil
}

type todoCounts struct {
	UserID    string
	Completed int
	Total     int
}

func (s *Store) PublicUsers(ctx context.Context, roomID domain.RoomID) ([]domain.PublicUser, error) {
	var (
		users  []userRow
		counts []todoCounts
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", string(roomID)).Order("seq").Find(&users).Error; err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		err := tx.Model(&todoRow{}).
			Select("todos.user_id AS user_id, " +
				"SUM(CASE WHEN todos.completed THEN 1 ELSE 0 END) AS completed, " +
				"COUNT(*) AS total").
			Joins("JOIN users ON users.id = todos.user_id").
			Where("users.room_id = ?", string(roomID)).
			Group("todos.user_id").
			Scan(&counts).Error
		if err != nil {
			return fmt.Errorf("failed to count todos: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]todoCounts, len(counts))
	for _, c := range counts {
		byUser[c.UserID] = c
	}
	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		c := byUser[u.ID]
		out = append(out, domain.PublicUser{
			ID:        domain.UserID(u.ID),
			Nickname:  u.Nickname,
			Completed: c.Completed,
			Total:     c.Total,
		})
	}
	return out, nil
}

func (s *Store) Rooms(ctx context.Context) ([]core.RoomInfo, error) {
	var rows []struct {
		ID          string
		MemberCount int
	}
	err := s.db.WithContext(ctx).
		Model(&roomRow{}).
		Select("rooms.id AS id, COUNT(users.id) AS member_count").
		Joins("LEFT JOIN users ON users.room_id = rooms.id").
		Group("rooms.id, rooms.seq").
		Order("rooms.seq").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	out := make([]core.RoomInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.RoomInfo{ID: domain.RoomID(r.ID), MemberCount: r.MemberCount})
	}
	return out, nil
}

func toTodos(rows []todoRow) []domain.Todo {
	out := make([]domain.Todo, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Todo{ID: domain.TodoID(r.ID), Title: r.Title, Completed: r.Completed})
	}
	return out
}
