package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirestream/internal/activity"
	"github.com/vovakirdan/wirestream/internal/media"
	"github.com/vovakirdan/wirestream/internal/presence"
	"github.com/vovakirdan/wirestream/internal/rooms"
)

// Deps are the collaborators of a Coordinator. Media may be nil.
type Deps struct {
	Rooms         *rooms.Registry
	Presence      *presence.Tracker
	Activity      *activity.Log
	Notifier      Notifier
	Media         media.Engine
	AnnounceLeave bool
	Logger        *zerolog.Logger
}

// Coordinator handles connection events. It keeps no room state between
// events; everything is read from and written to the shared store.
type Coordinator struct {
	rooms         *rooms.Registry
	presence      *presence.Tracker
	activity      *activity.Log
	notifier      Notifier
	media         media.Engine
	announceLeave bool
	log           *zerolog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(d Deps) *Coordinator {
	logger := d.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Coordinator{
		rooms:         d.Rooms,
		presence:      d.Presence,
		activity:      d.Activity,
		notifier:      d.Notifier,
		media:         d.Media,
		announceLeave: d.AnnounceLeave,
		log:           logger,
	}
}

// JoinResult is the reply to a successful join.
type JoinResult struct {
	Room       rooms.Room
	Activities []string
	Viewers    int64
	Media      *media.JoinInfo
}

// CreateRoom registers a new room and tells every other connection about
// it. sess is nil when the request does not come from a connection.
func (c *Coordinator) CreateRoom(ctx context.Context, sess *Session, variant Variant, metadata json.RawMessage) (rooms.Room, error) {
	room, err := c.rooms.CreateRoom(ctx, metadata)
	if err != nil {
		if errors.Is(err, rooms.ErrInvalidMetadata) {
			return rooms.Room{}, badRequest(err.Error(), err)
		}
		c.log.Warn().Err(err).Msg("create room failed")
		return rooms.Room{}, storeUnavailable(err)
	}

	c.log.Info().Str("room_id", room.ID).Str("variant", variant.String()).Msg("room created")

	summaries, err := c.ListRooms(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", room.ID).Msg("skip creation broadcast: list rooms failed")
		return room, nil
	}

	n := Notification{Event: variant.CreatedEvent(), Payload: summaries}
	if sess != nil {
		n.Except = sess.ID
	}
	c.publish(ctx, n)

	return room, nil
}

// ListRooms returns a summary of every known room.
func (c *Coordinator) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	list, err := c.rooms.ListRooms(ctx)
	if err != nil {
		return nil, storeUnavailable(err)
	}

	summaries := make([]RoomSummary, 0, len(list))
	for _, room := range list {
		viewers, err := c.presence.Count(ctx, room.ID)
		if err != nil {
			return nil, storeUnavailable(err)
		}
		summaries = append(summaries, RoomSummary{ID: room.ID, Metadata: room.Metadata, Viewers: viewers})
	}

	return summaries, nil
}

// RoomDetails is a read-only view of one room.
type RoomDetails struct {
	Room       rooms.Room
	Viewers    int64
	Activities []string
	Members    []presence.Viewer
}

// RoomDetails reads a room with its presence and activity.
func (c *Coordinator) RoomDetails(ctx context.Context, roomID string) (*RoomDetails, error) {
	room, err := c.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, c.classify(err)
	}
	viewers, err := c.presence.Count(ctx, roomID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	members, err := c.presence.Viewers(ctx, roomID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	activities, err := c.activity.Snapshot(ctx, roomID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return &RoomDetails{Room: room, Viewers: viewers, Activities: activities, Members: members}, nil
}

// Join admits the session into roomID under username. A session already
// joined elsewhere moves over: the new room is entered first and the old
// one is left only after that succeeds, so a failed switch keeps the session
// in its previous room. Joining the same room again is idempotent.
func (c *Coordinator) Join(ctx context.Context, sess *Session, variant Variant, roomID, username string) (*JoinResult, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, badRequest("room id is required", nil)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == StateDisconnected {
		return nil, sessionClosed()
	}

	rejoin := sess.state == StateJoined && sess.room == roomID
	var previous string
	if sess.state == StateJoined && !rejoin {
		previous = sess.room
	}

	// lastRoom lets Disconnect clean a join that stopped halfway. A switching
	// session is still joined, so Disconnect already knows its room.
	previousLast := sess.lastRoom
	if previous == "" {
		sess.lastRoom = roomID
	}

	metadata, viewers, err := c.presence.Join(ctx, roomID, sess.ID, username)
	if err != nil {
		if errors.Is(err, rooms.ErrRoomNotFound) {
			sess.lastRoom = previousLast
			c.log.Debug().Str("conn_id", sess.ID).Str("room_id", roomID).Msg("join to unknown room")
			return nil, roomNotFound()
		}
		c.log.Warn().Err(err).Str("conn_id", sess.ID).Str("room_id", roomID).Msg("presence join failed")
		return nil, storeUnavailable(err)
	}

	activities, err := c.recordJoin(ctx, roomID, username)
	if err != nil {
		if !rejoin {
			c.rollbackJoin(ctx, sess, roomID)
		}
		c.log.Warn().Err(err).Str("conn_id", sess.ID).Str("room_id", roomID).Msg("activity update failed")
		return nil, storeUnavailable(err)
	}

	if previous != "" {
		if err := c.leaveLocked(ctx, sess); err != nil {
			c.rollbackJoin(ctx, sess, roomID)
			return nil, err
		}
		sess.lastRoom = roomID
	}

	c.notifier.Subscribe(sess.ID, roomID)
	sess.state = StateJoined
	sess.room = roomID
	sess.username = username

	payload := SomeoneJoined{RoomID: roomID}
	if variant == VariantStream {
		payload.ConnectionID = sess.ID
	} else {
		payload.Activities = activities
	}
	c.publish(ctx, Notification{Event: EventSomeoneJoined, RoomID: roomID, Except: sess.ID, Payload: payload})

	result := &JoinResult{
		Room:       rooms.Room{ID: roomID, Metadata: metadata},
		Activities: activities,
		Viewers:    viewers,
	}
	if c.media != nil {
		info, err := c.media.GenerateJoinInfo(ctx, roomID, sess.ID, username)
		if err != nil {
			c.log.Warn().Err(err).Str("conn_id", sess.ID).Str("room_id", roomID).Msg("media credentials unavailable")
		} else {
			result.Media = info
		}
	}

	c.log.Debug().
		Str("conn_id", sess.ID).
		Str("room_id", roomID).
		Str("username", username).
		Int64("viewers", viewers).
		Msg("joined room")

	return result, nil
}

// Leave takes the session out of its room. It is a no-op unless the
// session is joined.
func (c *Coordinator) Leave(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateJoined {
		return nil
	}
	return c.leaveLocked(ctx, sess)
}

// Disconnect cleans up after a closed connection. Only the first call has
// an effect. Cleanup also covers a join that never completed.
func (c *Coordinator) Disconnect(ctx context.Context, sess *Session) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == StateDisconnected {
		return
	}

	wasJoined := sess.state == StateJoined
	roomID := sess.room
	if roomID == "" {
		roomID = sess.lastRoom
	}
	username := sess.username

	sess.state = StateDisconnected
	sess.room = ""
	sess.lastRoom = ""

	if roomID == "" {
		return
	}

	c.notifier.Unsubscribe(sess.ID, roomID)

	viewers, removed, err := c.presence.Leave(ctx, roomID, sess.ID)
	if err != nil {
		c.log.Warn().Err(err).Str("conn_id", sess.ID).Str("room_id", roomID).Msg("disconnect cleanup failed")
	}

	if !wasJoined && !removed {
		return
	}

	if wasJoined && removed {
		c.announceLeft(ctx, roomID, username)
	}
	c.publish(ctx, Notification{
		Event:   EventUserLeftRoom,
		RoomID:  roomID,
		Except:  sess.ID,
		Payload: MemberLeft{RoomID: roomID, ConnectionID: sess.ID},
	})

	c.log.Debug().Str("conn_id", sess.ID).Str("room_id", roomID).Int64("viewers", viewers).Msg("disconnected from room")
}

func (c *Coordinator) leaveLocked(ctx context.Context, sess *Session) error {
	roomID := sess.room

	viewers, removed, err := c.presence.Leave(ctx, roomID, sess.ID)
	if err != nil {
		c.log.Warn().Err(err).Str("conn_id", sess.ID).Str("room_id", roomID).Msg("presence leave failed")
		return storeUnavailable(err)
	}

	c.notifier.Unsubscribe(sess.ID, roomID)
	if removed {
		c.announceLeft(ctx, roomID, sess.username)
	}

	sess.state = StateLeft
	sess.room = ""
	sess.lastRoom = ""

	c.log.Debug().Str("conn_id", sess.ID).Str("room_id", roomID).Int64("viewers", viewers).Msg("left room")
	return nil
}

func (c *Coordinator) recordJoin(ctx context.Context, roomID, username string) ([]string, error) {
	if _, err := c.activity.Append(ctx, roomID, activity.JoinedText(username)); err != nil {
		return nil, err
	}
	return c.activity.Snapshot(ctx, roomID)
}

// rollbackJoin undoes the presence entry of a join that could not finish.
func (c *Coordinator) rollbackJoin(ctx context.Context, sess *Session, roomID string) {
	if _, _, err := c.presence.Leave(ctx, roomID, sess.ID); err != nil {
		c.log.Warn().Err(err).Str("conn_id", sess.ID).Str("room_id", roomID).Msg("join rollback failed")
	}
}

func (c *Coordinator) announceLeft(ctx context.Context, roomID, username string) {
	if !c.announceLeave || username == "" {
		return
	}
	if _, err := c.activity.Append(ctx, roomID, activity.LeftText(username)); err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("leave activity failed")
		return
	}
	activities, err := c.activity.Snapshot(ctx, roomID)
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("leave activity snapshot failed")
		return
	}
	c.publish(ctx, Notification{
		Event:   EventActivityUpdated,
		RoomID:  roomID,
		Payload: ActivityUpdated{RoomID: roomID, Activities: activities},
	})
}

func (c *Coordinator) publish(ctx context.Context, n Notification) {
	if err := c.notifier.Publish(ctx, n); err != nil {
		c.log.Warn().Err(err).Str("event", n.Event).Str("room_id", n.RoomID).Msg("broadcast failed")
	}
}

func (c *Coordinator) classify(err error) error {
	if errors.Is(err, rooms.ErrRoomNotFound) {
		return roomNotFound()
	}
	return storeUnavailable(err)
}
