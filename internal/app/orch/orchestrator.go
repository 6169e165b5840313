package orch

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/dkeye/Rooms/internal/app"
	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator applies session events to the store and fans out the results.
type Orchestrator struct {
	Store    core.RoomStore
	Registry *app.Registry
	Bcast    *app.Broadcaster
	Policy   app.Policy

	locks roomLocks
}

func New(store core.RoomStore, policy app.Policy) *Orchestrator {
	reg := app.NewRegistry()
	return &Orchestrator{
		Store:    store,
		Registry: reg,
		Bcast:    app.NewBroadcaster(store, reg),
		Policy:   policy,
	}
}

// roomLocks serializes mutate -> snapshot -> enqueue per room so members
// receive room updates in the order the mutations were applied.
type roomLocks struct {
	stripes [64]sync.Mutex
}

func (l *roomLocks) lock(id domain.RoomID) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	mu.Lock()
	return mu.Unlock
}

func (o *Orchestrator) send(conn core.SignalConnection, event string, data any) {
	if !conn.IsOpen() {
		return
	}
	frame, err := core.Encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("encode reply")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("event", event).Msg("reply dropped")
	}
}

func (o *Orchestrator) broadcast(ctx context.Context, roomID domain.RoomID, event string, data any, exclude domain.UserID) {
	res, err := o.Bcast.Broadcast(ctx, roomID, event, data, exclude)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Str("event", event).Msg("broadcast failed")
		return
	}
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(roomID, slow) {
		case app.KickMember:
			if conn, ok := o.Registry.Lookup(slow); ok {
				log.Warn().Str("module", "orch").Str("uid", string(slow)).Msg("kicking slow member")
				conn.Close()
			}
		case app.DropFrame, app.NoAction:
		}
	}
}
