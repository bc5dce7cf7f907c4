package media

import "context"

// JoinInfo contains the credentials a client needs to reach the media plane.
type JoinInfo struct {
	URL      string `json:"url"`       // WebSocket URL (e.g., ws://localhost:7880)
	Token    string `json:"token"`     // access token for the media server
	RoomName string `json:"room_name"` // media room backing the room
	Identity string `json:"identity"`  // participant identity in the media room
}

// Engine abstracts the media backend. It is invoked only after the
// coordinator admitted a connection into a room.
type Engine interface {
	// GenerateJoinInfo creates media credentials for connID in roomID.
	GenerateJoinInfo(ctx context.Context, roomID, connID, username string) (*JoinInfo, error)
}
