// Package domain contains entity without logic, just meta-data
package domain

import (
	"math/rand"
	"strconv"
	"strings"
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Nickname string `json:"nickname"`
	RoomID   RoomID `json:"roomId"`
	Todos    []Todo `json:"todos"`
}

var nicknameAnimals = []string{"Panda", "Tiger", "Fox", "Bear", "Wolf", "Eagle"}

// RandomNickname returns an animal name followed by a number below 100.
func RandomNickname() string {
	return nicknameAnimals[rand.Intn(len(nicknameAnimals))] + strconv.Itoa(rand.Intn(100))
}

// ResolveNickname trims client input and falls back to RandomNickname when blank.
func ResolveNickname(raw string) string {
	if name := strings.TrimSpace(raw); name != "" {
		return name
	}
	return RandomNickname()
}

// PublicUser is the roster view of a user shared with the whole room.
type PublicUser struct {
	ID        UserID `json:"id"`
	Nickname  string `json:"nickname"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Public computes the roster entry from the current task list.
func (u *User) Public() PublicUser {
	done := 0
	for _, t := range u.Todos {
		if t.Completed {
			done++
		}
	}
	return PublicUser{ID: u.ID, Nickname: u.Nickname, Completed: done, Total: len(u.Todos)}
}
