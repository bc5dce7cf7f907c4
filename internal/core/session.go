package core

import "sync"

// State is where a connection stands with respect to its room.
type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateLeft
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateLeft:
		return "left"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the per-connection state machine. Only the Coordinator
// transitions it; the mutex serializes events of one connection.
type Session struct {
	ID string

	mu       sync.Mutex
	state    State
	room     string
	username string
	// lastRoom is where a join was last attempted. Disconnect cleans it up
	// even if the join never completed.
	lastRoom string
}

// NewSession creates an unjoined session for a connection.
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// SessionInfo is a point-in-time copy of a session.
type SessionInfo struct {
	State    State
	Room     string
	Username string
}

// Info returns a copy of the session state.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{State: s.state, Room: s.room, Username: s.username}
}
