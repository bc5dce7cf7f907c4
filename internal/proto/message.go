package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client. ID is echoed
// in the reply so the client can match it.
type Inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeCreateRoom   = "createRoom"
	InboundTypeCreateStream = "createStream"
	InboundTypeGetRooms     = "getRooms"
	InboundTypeGetStreams   = "getStreams"
	InboundTypeJoinRoom     = "join_room"
	InboundTypeJoinStream   = "join_stream"
	InboundTypeLeaveRoom    = "leave_room"

	OutboundTypeAck   = "ack"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventConnected = "connected"
)

// JoinData requests to join a room or stream.
type JoinData struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
}

// LeaveData accompanies leave_room. The username is informational.
type LeaveData struct {
	Username string `json:"username,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Connected is sent once a socket is accepted.
type Connected struct {
	ConnectionID string `json:"connection_id"`
}

// RoomCreated acknowledges a creation.
type RoomCreated struct {
	RoomID string `json:"room_id"`
}

// Room is a room as carried in replies.
type Room struct {
	ID       string          `json:"id"`
	Metadata json.RawMessage `json:"metadata"`
}

// MediaInfo carries media server join credentials.
type MediaInfo struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	RoomName string `json:"room_name"`
	Identity string `json:"identity"`
}

// Joined acknowledges join_room and join_stream.
type Joined struct {
	Room       Room       `json:"room"`
	Activities []string   `json:"activities"`
	Viewers    int64      `json:"viewers"`
	Media      *MediaInfo `json:"media,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code      string `json:"code"`
	Msg       string `json:"msg"`
	Retryable bool   `json:"retryable,omitempty"`
}
