package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirestream/internal/proto"
)

const usage = `commands:
  /create {"title":"..."}   create a room
  /stream {"title":"..."}   create a stream
  /rooms                    list rooms
  /join <room_id>           join a room
  /watch <room_id>          join a stream
  /leave                    leave the current room`

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s as %s\n%s\n", *addr, *user, usage)

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *user)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out struct {
			Type  string          `json:"type"`
			ID    string          `json:"id"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch out.Type {
		case proto.OutboundTypeAck:
			fmt.Printf("ok #%s %s\n", out.ID, out.Data)
		case proto.OutboundTypeError:
			fmt.Printf("error #%s %s: %s\n", out.ID, out.Error.Code, out.Error.Msg)
		default:
			fmt.Printf("* %s %s\n", out.Event, out.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, user string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			inbound, err := parseCommand(strings.TrimSpace(line), user)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if inbound == nil {
				continue
			}
			seq++
			inbound.ID = strconv.Itoa(seq)
			if err := wsjson.Write(ctx, conn, inbound); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func parseCommand(line, user string) (*proto.Inbound, error) {
	if line == "" {
		return nil, nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/create", "/stream":
		if !json.Valid([]byte(arg)) {
			return nil, errors.New("metadata must be JSON")
		}
		typ := proto.InboundTypeCreateRoom
		if cmd == "/stream" {
			typ = proto.InboundTypeCreateStream
		}
		return &proto.Inbound{Type: typ, Data: json.RawMessage(arg)}, nil
	case "/rooms":
		return &proto.Inbound{Type: proto.InboundTypeGetRooms}, nil
	case "/join", "/watch":
		if arg == "" {
			return nil, errors.New("room id required")
		}
		data, err := json.Marshal(proto.JoinData{RoomID: arg, Username: user})
		if err != nil {
			return nil, err
		}
		typ := proto.InboundTypeJoinRoom
		if cmd == "/watch" {
			typ = proto.InboundTypeJoinStream
		}
		return &proto.Inbound{Type: typ, Data: data}, nil
	case "/leave":
		data, err := json.Marshal(proto.LeaveData{Username: user})
		if err != nil {
			return nil, err
		}
		return &proto.Inbound{Type: proto.InboundTypeLeaveRoom, Data: data}, nil
	default:
		return nil, errors.New(usage)
	}
}
