package domain

// MaxRoomSize is the default number of users a room can hold.
const MaxRoomSize = 10

type RoomID string

type Room struct {
	ID    RoomID
	Users []UserID
}
