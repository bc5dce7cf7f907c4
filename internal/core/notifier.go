package core

import "context"

// Notification is a broadcast handed to the transport. An empty RoomID
// addresses every connection. Except names a connection to skip.
type Notification struct {
	Event   string
	RoomID  string
	Except  string
	Payload any
}

// Notifier is the narrow view the coordinator has of the transport.
type Notifier interface {
	// Subscribe routes room broadcasts to connID.
	Subscribe(connID, roomID string)
	// Unsubscribe stops routing room broadcasts to connID.
	Unsubscribe(connID, roomID string)
	// Publish delivers n to every matching connection on every server.
	// Delivery is not confirmed.
	Publish(ctx context.Context, n Notification) error
}
