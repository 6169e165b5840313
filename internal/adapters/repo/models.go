package repo

import "time"

type roomRow struct {
	ID        string    `gorm:"primarykey;size:16"`
	Seq       int64     `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	Users     []userRow `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (roomRow) TableName() string { return "rooms" }

type userRow struct {
	ID        string    `gorm:"primarykey;size:16"`
	Seq       int64     `gorm:"not null;index"`
	Nickname  string    `gorm:"not null"`
	RoomID    string    `gorm:"size:16;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	Todos     []todoRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (userRow) TableName() string { return "users" }

type todoRow struct {
	ID        string    `gorm:"primarykey;size:16"`
	Seq       int64     `gorm:"not null;index"`
	UserID    string    `gorm:"size:16;not null;index"`
	Title     string    `gorm:"not null"`
	Completed bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

func (todoRow) TableName() string { return "todos" }
