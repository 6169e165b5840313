package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(ctx context.Context, s *session, data json.RawMessage) {
	if s.state == stateJoined {
		log.Debug().Str("module", "signal").Str("uid", string(s.uid)).Msg("already joined")
		return
	}
	var p struct {
		Nickname string `json:"nickname"`
	}
	if err := decodeData(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("uid", string(s.uid)).Msg("bad join payload")
		return
	}

	roomID, err := ctl.Orch.Join(ctx, s.uid, s.conn, p.Nickname)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("uid", string(s.uid)).Msg("join failed")
		return
	}
	s.state = stateJoined
	log.Info().Str("module", "signal").Str("uid", string(s.uid)).Str("room", string(roomID)).Msg("join")
}
