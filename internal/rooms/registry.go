package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vovakirdan/wirestream/internal/store"
)

var (
	// ErrRoomNotFound is returned when a room's metadata is absent.
	ErrRoomNotFound = errors.New("room not found")
	// ErrInvalidMetadata is returned when metadata is not a JSON object.
	ErrInvalidMetadata = errors.New("room metadata must be a JSON object")
)

// Room is a created room. Metadata is stored and returned verbatim.
type Room struct {
	ID       string
	Metadata json.RawMessage
}

// Registry creates and lists rooms.
type Registry struct {
	store store.Store
	keys  store.Keys
	newID func() string
}

// NewRegistry creates a room registry over the shared store.
func NewRegistry(st store.Store, keys store.Keys) *Registry {
	return &Registry{
		store: st,
		keys:  keys,
		newID: func() string { return uuid.NewString() },
	}
}

// CreateRoom persists metadata under a freshly generated id and registers
// the id in the all-rooms set.
func (r *Registry) CreateRoom(ctx context.Context, metadata json.RawMessage) (Room, error) {
	trimmed := bytes.TrimSpace(metadata)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return Room{}, ErrInvalidMetadata
	}

	id := r.newID()

	// Metadata goes first so an id visible in the set always resolves,
	// except for the deletion race ListRooms tolerates.
	if err := r.store.Set(ctx, r.keys.RoomMeta(id), string(trimmed)); err != nil {
		return Room{}, fmt.Errorf("save room metadata: %w", err)
	}
	if err := r.store.SetAdd(ctx, r.keys.Rooms(), id); err != nil {
		return Room{}, fmt.Errorf("register room: %w", err)
	}

	return Room{ID: id, Metadata: json.RawMessage(trimmed)}, nil
}

// GetRoom returns the room with the given id.
func (r *Registry) GetRoom(ctx context.Context, id string) (Room, error) {
	raw, err := r.store.Get(ctx, r.keys.RoomMeta(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, fmt.Errorf("load room metadata: %w", err)
	}
	return Room{ID: id, Metadata: json.RawMessage(raw)}, nil
}

// ListRooms returns every room whose metadata still exists, sorted by id.
func (r *Registry) ListRooms(ctx context.Context) ([]Room, error) {
	ids, err := r.store.SetMembers(ctx, r.keys.Rooms())
	if err != nil {
		return nil, fmt.Errorf("list room ids: %w", err)
	}
	sort.Strings(ids)

	rooms := make([]Room, 0, len(ids))
	for _, id := range ids {
		room, err := r.GetRoom(ctx, id)
		if errors.Is(err, ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}
