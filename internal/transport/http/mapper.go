package http

import (
	"context"
	"encoding/json"

	"github.com/vovakirdan/wirestream/internal/core"
	"github.com/vovakirdan/wirestream/internal/fanout"
	"github.com/vovakirdan/wirestream/internal/proto"
)

// dispatch runs one inbound event against the coordinator and returns the
// ack data or a protocol error.
func dispatch(ctx context.Context, coord *core.Coordinator, sess *core.Session, inbound proto.Inbound) (any, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeCreateRoom, proto.InboundTypeCreateStream:
		variant := core.VariantRoom
		if inbound.Type == proto.InboundTypeCreateStream {
			variant = core.VariantStream
		}
		room, err := coord.CreateRoom(ctx, sess, variant, inbound.Data)
		if err != nil {
			return nil, errorFromCore(err)
		}
		return proto.RoomCreated{RoomID: room.ID}, nil

	case proto.InboundTypeGetRooms, proto.InboundTypeGetStreams:
		summaries, err := coord.ListRooms(ctx)
		if err != nil {
			return nil, errorFromCore(err)
		}
		return summaries, nil

	case proto.InboundTypeJoinRoom, proto.InboundTypeJoinStream:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "invalid join data"}
		}
		variant := core.VariantRoom
		if inbound.Type == proto.InboundTypeJoinStream {
			variant = core.VariantStream
		}
		res, err := coord.Join(ctx, sess, variant, join.RoomID, join.Username)
		if err != nil {
			return nil, errorFromCore(err)
		}
		return joinedFromResult(res), nil

	case proto.InboundTypeLeaveRoom:
		if err := coord.Leave(ctx, sess); err != nil {
			return nil, errorFromCore(err)
		}
		return nil, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func errorFromCore(err error) *proto.Error {
	ce := core.AsCoreError(err)
	return &proto.Error{Code: ce.Code, Msg: ce.Message, Retryable: ce.Retryable()}
}

func joinedFromResult(res *core.JoinResult) proto.Joined {
	activities := res.Activities
	if activities == nil {
		activities = []string{}
	}
	joined := proto.Joined{
		Room:       proto.Room{ID: res.Room.ID, Metadata: res.Room.Metadata},
		Activities: activities,
		Viewers:    res.Viewers,
	}
	if res.Media != nil {
		joined.Media = &proto.MediaInfo{
			URL:      res.Media.URL,
			Token:    res.Media.Token,
			RoomName: res.Media.RoomName,
			Identity: res.Media.Identity,
		}
	}
	return joined
}

func outboundFromMessage(msg *fanout.Message) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: msg.Event}
	if len(msg.Data) > 0 {
		out.Data = msg.Data
	}
	return out
}
