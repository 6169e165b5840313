package signal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dkeye/Rooms/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleTodoAdd(ctx context.Context, s *session, data json.RawMessage) {
	var p struct {
		Title string `json:"title"`
	}
	if err := decodeData(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("uid", string(s.uid)).Msg("bad todo:add payload")
		return
	}
	if strings.TrimSpace(p.Title) == "" {
		log.Warn().Str("module", "signal").Str("uid", string(s.uid)).Msg("todo:add without title")
		return
	}
	if err := ctl.Orch.AddTodo(ctx, s.uid, s.conn, p.Title); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("uid", string(s.uid)).Msg("todo:add failed")
	}
}

func (ctl *SignalWSController) handleTodoSet(ctx context.Context, s *session, data json.RawMessage, completed bool) {
	var p struct {
		TodoID string `json:"todoId"`
	}
	if err := decodeData(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("uid", string(s.uid)).Bool("completed", completed).Msg("bad todo payload")
		return
	}
	if p.TodoID == "" {
		log.Warn().Str("module", "signal").Str("uid", string(s.uid)).Bool("completed", completed).Msg("todo update without todoId")
		return
	}
	if err := ctl.Orch.SetTodoCompleted(ctx, s.uid, s.conn, domain.TodoID(p.TodoID), completed); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("uid", string(s.uid)).Msg("todo update failed")
	}
}
