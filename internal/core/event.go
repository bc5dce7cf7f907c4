package core

import "encoding/json"

// Broadcast event names.
const (
	EventNewRoomCreated   = "newRoomCreated"
	EventNewStreamCreated = "newStreamCreated"
	EventSomeoneJoined    = "someone_joined"
	EventUserLeftRoom     = "User-Left-Room"
	// EventActivityUpdated is only emitted when leave announcements are on.
	EventActivityUpdated = "activity_updated"
)

// Variant selects between the chat-room and the stream flavour of an event.
type Variant int

const (
	// VariantRoom answers joins with the activity log.
	VariantRoom Variant = iota
	// VariantStream answers joins with the viewer count.
	VariantStream
)

func (v Variant) String() string {
	if v == VariantStream {
		return "stream"
	}
	return "room"
}

// CreatedEvent returns the broadcast name for a room created in this variant.
func (v Variant) CreatedEvent() string {
	if v == VariantStream {
		return EventNewStreamCreated
	}
	return EventNewRoomCreated
}

// RoomSummary describes a room in listings.
type RoomSummary struct {
	ID       string          `json:"id"`
	Metadata json.RawMessage `json:"metadata"`
	Viewers  int64           `json:"viewers"`
}

// SomeoneJoined is broadcast to the other members of a room. Room joins
// carry the activity log, stream joins carry the joining connection.
type SomeoneJoined struct {
	RoomID       string   `json:"room_id"`
	Activities   []string `json:"activities,omitempty"`
	ConnectionID string   `json:"connection_id,omitempty"`
}

// MemberLeft is broadcast when a connection drops out of a room.
type MemberLeft struct {
	RoomID       string `json:"room_id"`
	ConnectionID string `json:"connection_id"`
}

// ActivityUpdated carries the activity log after a leave announcement.
type ActivityUpdated struct {
	RoomID     string   `json:"room_id"`
	Activities []string `json:"activities"`
}
