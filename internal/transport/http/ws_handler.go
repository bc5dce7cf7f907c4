package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirestream/internal/core"
	"github.com/vovakirdan/wirestream/internal/fanout"
	"github.com/vovakirdan/wirestream/internal/proto"
	"github.com/vovakirdan/wirestream/internal/utils"
)

const disconnectTimeout = 5 * time.Second

// WSOptions limits what a single connection may send.
type WSOptions struct {
	MaxMessageBytes int64
}

// WSHandler upgrades HTTP connections and bridges them to the coordinator.
type WSHandler struct {
	coord *core.Coordinator
	hub   *fanout.Hub
	opts  WSOptions
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(coord *core.Coordinator, hub *fanout.Hub, opts WSOptions, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{coord: coord, hub: hub, opts: opts, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	client := fanout.NewClient(utils.NewID(), 0)
	sess := core.NewSession(client.ID)
	h.hub.Register(client)
	defer h.hub.Unregister(client)
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
		defer cancel()
		h.coord.Disconnect(cleanupCtx, sess)
	}()

	h.log.Debug().Str("conn_id", client.ID).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventConnected,
		Data:  proto.Connected{ConnectionID: client.ID},
	}); err != nil {
		h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("write connected event")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	h.log.Debug().Str("conn_id", client.ID).Msg("ws disconnected")
	conn.Close(status, reason)
}

// readLoop handles events one at a time, so events of one connection never
// overlap.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", sess.ID).Msg("undecodable inbound")
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "invalid json"},
			}); err != nil {
				return err
			}
			continue
		}

		ack, protoErr := dispatch(ctx, h.coord, sess, inbound)

		reply := proto.Outbound{Type: proto.OutboundTypeAck, ID: inbound.ID, Data: ack}
		if protoErr != nil {
			h.log.Debug().
				Str("conn_id", sess.ID).
				Str("event", inbound.Type).
				Str("code", protoErr.Code).
				Msg("event rejected")
			reply = proto.Outbound{Type: proto.OutboundTypeError, ID: inbound.ID, Error: protoErr}
		}
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *fanout.Client) error {
	for {
		select {
		case msg, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromMessage(msg)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
