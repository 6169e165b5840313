package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/rs/zerolog/log"
)

const maxJoinAttempts = 8

var ErrNoRoom = errors.New("no room could take the user")

type roomJoined struct {
	RoomID domain.RoomID       `json:"roomId"`
	Users  []domain.PublicUser `json:"users"`
}

type nicknameEvent struct {
	Nickname string `json:"nickname"`
}

// Join places uid into a room with spare capacity, replies room:joined on conn
// and announces the newcomer to the rest of the room.
func (o *Orchestrator) Join(ctx context.Context, uid domain.UserID, conn core.SignalConnection, rawNickname string) (domain.RoomID, error) {
	nickname := domain.ResolveNickname(rawNickname)
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		roomID, err := o.Store.AssignRoom(ctx)
		if err != nil {
			return "", fmt.Errorf("assign room: %w", err)
		}
		joined, err := o.joinRoom(ctx, roomID, uid, conn, nickname)
		if err != nil {
			return "", err
		}
		if joined {
			return roomID, nil
		}
		log.Debug().Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Int("attempt", attempt).Msg("room taken, retrying")
	}
	return "", ErrNoRoom
}

func (o *Orchestrator) joinRoom(ctx context.Context, roomID domain.RoomID, uid domain.UserID, conn core.SignalConnection, nickname string) (bool, error) {
	unlock := o.locks.lock(roomID)
	defer unlock()

	err := o.Store.AddUser(ctx, roomID, uid, nickname)
	if errors.Is(err, core.ErrRoomFull) || errors.Is(err, core.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add user: %w", err)
	}
	o.Registry.Register(uid, conn)

	users, err := o.Store.PublicUsers(ctx, roomID)
	if err != nil {
		return true, fmt.Errorf("public users: %w", err)
	}
	o.send(conn, core.EventRoomJoined, roomJoined{RoomID: roomID, Users: users})
	o.broadcast(ctx, roomID, core.EventUserJoined, nicknameEvent{Nickname: nickname}, uid)
	log.Info().Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Str("nickname", nickname).Msg("joined")
	return true, nil
}

// Leave runs the disconnect cleanup: the connection is unbound first so it is
// never left behind, then the user is removed and the remaining members told.
func (o *Orchestrator) Leave(ctx context.Context, uid domain.UserID, conn core.SignalConnection) {
	o.Registry.Unregister(uid, conn)

	user, ok, err := o.Store.User(ctx, uid)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("uid", string(uid)).Msg("leave: lookup user")
		return
	}
	if !ok {
		return
	}

	unlock := o.locks.lock(user.RoomID)
	defer unlock()
	if err := o.Store.RemoveUser(ctx, uid); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("uid", string(uid)).Msg("leave: remove user")
		return
	}
	o.broadcast(ctx, user.RoomID, core.EventUserLeft, nicknameEvent{Nickname: user.Nickname}, "")
	log.Info().Str("module", "orch").Str("uid", string(uid)).Str("room", string(user.RoomID)).Msg("left")
}

func (o *Orchestrator) Rooms(ctx context.Context) ([]core.RoomInfo, error) {
	return o.Store.Rooms(ctx)
}
