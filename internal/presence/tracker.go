package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vovakirdan/wirestream/internal/rooms"
	"github.com/vovakirdan/wirestream/internal/store"
)

// RoomFinder resolves room metadata. Implemented by rooms.Registry.
type RoomFinder interface {
	GetRoom(ctx context.Context, id string) (rooms.Room, error)
}

// Viewer is one membership record of a room.
type Viewer struct {
	ConnectionID string
	Username     string
}

// Tracker maintains viewer membership and counts in the shared store.
// Membership is a map keyed by connection id, so a connection appears at
// most once per room and the counter only moves when membership changes.
type Tracker struct {
	store store.Store
	keys  store.Keys
	rooms RoomFinder
}

// NewTracker creates a presence tracker.
func NewTracker(st store.Store, keys store.Keys, finder RoomFinder) *Tracker {
	return &Tracker{store: st, keys: keys, rooms: finder}
}

// Join admits connID into roomID and returns the room metadata with the
// viewer count after the join. A connection that is already a member is
// not counted twice.
func (t *Tracker) Join(ctx context.Context, roomID, connID, username string) (json.RawMessage, int64, error) {
	room, err := t.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}

	added, err := t.store.MapPutIfAbsent(ctx, t.keys.RoomViewers(roomID), connID, username)
	if err != nil {
		return nil, 0, fmt.Errorf("add viewer: %w", err)
	}

	if !added {
		count, err := t.store.CounterGet(ctx, t.keys.RoomCount(roomID))
		if err != nil {
			return nil, 0, fmt.Errorf("read viewer count: %w", err)
		}
		return room.Metadata, count, nil
	}

	count, err := t.store.CounterIncr(ctx, t.keys.RoomCount(roomID))
	if err != nil {
		// Undo the membership entry so the caller sees nothing applied.
		_, _ = t.store.MapDelete(ctx, t.keys.RoomViewers(roomID), connID) //nolint:errcheck // best effort
		return nil, 0, fmt.Errorf("increment viewer count: %w", err)
	}

	return room.Metadata, count, nil
}

// Leave removes connID from roomID. Removing a connection that is not a
// member changes nothing and is not an error. Returns the viewer count
// afterwards and whether an entry was removed.
func (t *Tracker) Leave(ctx context.Context, roomID, connID string) (int64, bool, error) {
	removed, err := t.store.MapDelete(ctx, t.keys.RoomViewers(roomID), connID)
	if err != nil {
		return 0, false, fmt.Errorf("remove viewer: %w", err)
	}

	if !removed {
		count, err := t.store.CounterGet(ctx, t.keys.RoomCount(roomID))
		if err != nil {
			return 0, false, fmt.Errorf("read viewer count: %w", err)
		}
		return count, false, nil
	}

	count, err := t.store.CounterDecrFloor(ctx, t.keys.RoomCount(roomID))
	if err != nil {
		return 0, true, fmt.Errorf("decrement viewer count: %w", err)
	}
	return count, true, nil
}

// Viewers lists the membership of roomID ordered by connection id.
func (t *Tracker) Viewers(ctx context.Context, roomID string) ([]Viewer, error) {
	entries, err := t.store.MapGetAll(ctx, t.keys.RoomViewers(roomID))
	if err != nil {
		return nil, fmt.Errorf("list viewers: %w", err)
	}

	viewers := make([]Viewer, 0, len(entries))
	for connID, username := range entries {
		viewers = append(viewers, Viewer{ConnectionID: connID, Username: username})
	}
	sort.Slice(viewers, func(i, j int) bool {
		return viewers[i].ConnectionID < viewers[j].ConnectionID
	})

	return viewers, nil
}

// Count returns the viewer counter of roomID.
func (t *Tracker) Count(ctx context.Context, roomID string) (int64, error) {
	count, err := t.store.CounterGet(ctx, t.keys.RoomCount(roomID))
	if err != nil {
		return 0, fmt.Errorf("read viewer count: %w", err)
	}
	return count, nil
}
