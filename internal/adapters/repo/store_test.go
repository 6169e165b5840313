package repo

import (
	"context"
	"testing"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/core/coretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory SQLite database with the schema applied.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.Logger = db.Logger.LogMode(logger.Silent)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestStore(t *testing.T) {
	coretest.RunStoreContract(t, func(t *testing.T, maxSize int) core.RoomStore {
		return New(setupTestDB(t), maxSize)
	})
}

func TestStore_RemoveUserCascadesTodos(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := New(db, 0)

	roomID, err := s.AssignRoom(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AddUser(ctx, roomID, "user1", "Tester"))
	require.NoError(t, s.AddUser(ctx, roomID, "user2", "Other"))
	require.NoError(t, s.AddTodo(ctx, "user1", "todo1", "a"))
	require.NoError(t, s.AddTodo(ctx, "user2", "todo2", "b"))

	require.NoError(t, s.RemoveUser(ctx, "user1"))

	var todos int64
	require.NoError(t, db.Model(&todoRow{}).Count(&todos).Error)
	assert.Equal(t, int64(1), todos)

	var rooms int64
	require.NoError(t, db.Model(&roomRow{}).Where("id = ?", string(roomID)).Count(&rooms).Error)
	assert.Equal(t, int64(1), rooms)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.Error(t, err)
}
