package app

import (
	"context"
	"fmt"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SentTo  int
	Skipped int
	Dropped []domain.UserID
}

// Broadcaster fans an event out to every registered member of a room.
type Broadcaster struct {
	Store core.RoomStore
	Conns *Registry
}

func NewBroadcaster(store core.RoomStore, conns *Registry) *Broadcaster {
	return &Broadcaster{Store: store, Conns: conns}
}

// Broadcast encodes the event once and offers it to each member except exclude.
// Members without an open connection are skipped; full buffers are reported in Dropped.
func (b *Broadcaster) Broadcast(
	ctx context.Context,
	roomID domain.RoomID,
	event string,
	data any,
	exclude domain.UserID,
) (PublishResult, error) {
	res := PublishResult{}
	uids, err := b.Store.RoomUserIDs(ctx, roomID)
	if err != nil {
		return res, fmt.Errorf("room members: %w", err)
	}
	frame, err := core.Encode(event, data)
	if err != nil {
		return res, fmt.Errorf("encode %s: %w", event, err)
	}
	for _, uid := range uids {
		if uid == exclude {
			continue
		}
		conn, ok := b.Conns.Lookup(uid)
		if !ok || !conn.IsOpen() {
			res.Skipped++
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, uid)
			continue
		}
		res.SentTo++
	}
	log.Debug().
		Str("module", "app.broadcast").
		Str("room", string(roomID)).
		Str("event", event).
		Int("sent_to", res.SentTo).
		Int("skipped", res.Skipped).
		Int("dropped", len(res.Dropped)).
		Msg("broadcast result")
	return res, nil
}
