package signal

import "github.com/dkeye/Rooms/internal/domain"

type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateUnjoined:
		return "unjoined"
	case stateJoined:
		return "joined"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// session is one connection's protocol state.
// Only the connection's readPump goroutine touches it.
type session struct {
	uid   domain.UserID
	conn  *WsSignalConn
	state sessionState
}
