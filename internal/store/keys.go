package store

import "strings"

// DefaultKeyPrefix namespaces every key written by the service.
const DefaultKeyPrefix = "wirestream"

// Keys builds the key layout for room-scoped data.
type Keys struct {
	prefix string
}

// NewKeys returns a key builder. An empty prefix falls back to DefaultKeyPrefix.
func NewKeys(prefix string) Keys {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Keys{prefix: prefix}
}

// Rooms is the set of all room ids.
func (k Keys) Rooms() string {
	return k.prefix + ":rooms"
}

// RoomMeta holds the metadata blob of a room.
func (k Keys) RoomMeta(roomID string) string {
	return k.room(roomID) + ":meta"
}

// RoomViewers maps connection id to username for a room.
func (k Keys) RoomViewers(roomID string) string {
	return k.room(roomID) + ":viewers"
}

// RoomCount is the viewer counter of a room.
func (k Keys) RoomCount(roomID string) string {
	return k.room(roomID) + ":count"
}

// RoomActivity is the activity log of a room.
func (k Keys) RoomActivity(roomID string) string {
	return k.room(roomID) + ":activity"
}

func (k Keys) room(roomID string) string {
	return k.prefix + ":room:" + roomID
}
