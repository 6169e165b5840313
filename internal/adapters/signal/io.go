package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Rooms/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod())
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeWait())); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.writeWait())); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, s *session) {
	defer func() {
		log.Info().Str("module", "signal").Str("uid", string(s.uid)).Str("state", s.state.String()).Msg("readPump closing")
		// cleanup must finish even when the server context is already done
		ctl.Orch.Leave(context.WithoutCancel(ctx), s.uid, s.conn)
		s.state = stateClosed
		cancel()
		s.conn.Close()
	}()

	ws := s.conn.conn
	if ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}
	_ = ws.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("uid", string(s.uid)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(ctx, s, data)
	}
}

// handleSignal dispatches one envelope. Malformed input is dropped without a
// reply and the connection stays open.
func (ctl *SignalWSController) handleSignal(ctx context.Context, s *session, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("uid", string(s.uid)).Msg("bad json")
		return
	}

	if s.state != stateJoined && env.Event != core.EventJoin {
		log.Debug().Str("module", "signal").Str("uid", string(s.uid)).Str("event", env.Event).Msg("ignored before join")
		return
	}

	switch env.Event {
	case core.EventJoin:
		ctl.handleJoin(ctx, s, env.Data)
	case core.EventTodoAdd:
		ctl.handleTodoAdd(ctx, s, env.Data)
	case core.EventTodoComplete:
		ctl.handleTodoSet(ctx, s, env.Data, true)
	case core.EventTodoUncomplete:
		ctl.handleTodoSet(ctx, s, env.Data, false)
	default:
		log.Warn().Str("module", "signal").Str("uid", string(s.uid)).Str("event", env.Event).Msg("unknown event")
	}
}

// decodeData treats a missing or null data field as an empty object.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, v)
}
