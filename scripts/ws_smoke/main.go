package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirestream/internal/proto"
)

// reply mirrors proto.Outbound with undecoded data.
type reply struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to join with")
	title := flag.String("title", "smoke room", "title of the room to create")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	hello, err := read(ctx, conn)
	if err != nil {
		return err
	}
	log.Printf("connected: %s", hello.Data)

	metadata, err := json.Marshal(map[string]string{"title": *title})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	created, err := call(ctx, conn, proto.InboundTypeCreateRoom, "create", metadata)
	if err != nil {
		return err
	}
	var room proto.RoomCreated
	if err := json.Unmarshal(created.Data, &room); err != nil {
		return fmt.Errorf("decode create ack: %w", err)
	}
	log.Printf("created room %s", room.RoomID)

	joinPayload, err := json.Marshal(proto.JoinData{RoomID: room.RoomID, Username: *user})
	if err != nil {
		return fmt.Errorf("marshal join: %w", err)
	}
	joined, err := call(ctx, conn, proto.InboundTypeJoinRoom, "join", joinPayload)
	if err != nil {
		return err
	}
	log.Printf("joined: %s", joined.Data)

	if _, err := call(ctx, conn, proto.InboundTypeLeaveRoom, "leave", nil); err != nil {
		return err
	}
	log.Printf("left room %s", room.RoomID)
	return nil
}

// call sends one event and waits for its reply, printing broadcasts seen
// on the way.
func call(ctx context.Context, conn *websocket.Conn, typ, id string, data json.RawMessage) (reply, error) {
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, ID: id, Data: data}); err != nil {
		return reply{}, fmt.Errorf("send %s: %w", typ, err)
	}
	for {
		r, err := read(ctx, conn)
		if err != nil {
			return reply{}, err
		}
		if r.ID != id {
			log.Printf("event %s: %s", r.Event, r.Data)
			continue
		}
		if r.Type == proto.OutboundTypeError {
			return r, fmt.Errorf("%s failed: %s (%s)", typ, r.Error.Msg, r.Error.Code)
		}
		return r, nil
	}
}

func read(ctx context.Context, conn *websocket.Conn) (reply, error) {
	var r reply
	if err := wsjson.Read(ctx, conn, &r); err != nil {
		return reply{}, fmt.Errorf("read: %w", err)
	}
	return r, nil
}
