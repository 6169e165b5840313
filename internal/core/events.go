package core

import "encoding/json"

// Client -> server events.
const (
	EventJoin           = "join"
	EventTodoAdd        = "todo:add"
	EventTodoComplete   = "todo:complete"
	EventTodoUncomplete = "todo:uncomplete"
)

// Server -> client events.
const (
	EventRoomJoined = "room:joined"
	EventUserJoined = "user:joined"
	EventTodoSynced = "todo:synced"
	EventRoomUpdate = "room:update"
	EventUserLeft   = "user:left"
)

// Envelope wraps every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode serializes an outgoing event.
func Encode(event string, data any) (Frame, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{event, data})
}
