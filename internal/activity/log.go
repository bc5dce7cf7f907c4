package activity

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirestream/internal/store"
)

// Log is the per-room activity feed. Consecutive identical entries are
// collapsed by the store in a single atomic step.
type Log struct {
	store store.Store
	keys  store.Keys
}

// NewLog creates an activity log over the shared store.
func NewLog(st store.Store, keys store.Keys) *Log {
	return &Log{store: st, keys: keys}
}

// Append adds text to the room's log unless it equals the last entry.
// Returns true if the entry was appended.
func (l *Log) Append(ctx context.Context, roomID, text string) (bool, error) {
	appended, err := l.store.ListAppendUnlessLast(ctx, l.keys.RoomActivity(roomID), text)
	if err != nil {
		return false, fmt.Errorf("append activity: %w", err)
	}
	return appended, nil
}

// Snapshot returns the full log of the room in append order.
func (l *Log) Snapshot(ctx context.Context, roomID string) ([]string, error) {
	entries, err := l.store.ListRange(ctx, l.keys.RoomActivity(roomID))
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}
	return entries, nil
}

// JoinedText is the entry recorded when username joins a room.
func JoinedText(username string) string {
	return username + " joined the room."
}

// LeftText is the entry recorded when username leaves a room.
func LeftText(username string) string {
	return username + " left the room."
}
