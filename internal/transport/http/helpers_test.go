package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirestream/internal/activity"
	"github.com/vovakirdan/wirestream/internal/config"
	"github.com/vovakirdan/wirestream/internal/core"
	"github.com/vovakirdan/wirestream/internal/fanout"
	"github.com/vovakirdan/wirestream/internal/presence"
	"github.com/vovakirdan/wirestream/internal/proto"
	"github.com/vovakirdan/wirestream/internal/rooms"
	"github.com/vovakirdan/wirestream/internal/store"
	"github.com/vovakirdan/wirestream/internal/store/memory"
	"github.com/vovakirdan/wirestream/internal/store/storetest"
)

type testServer struct {
	*httptest.Server
	faulty *storetest.Faulty
	hub    *fanout.Hub
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.Nop()
	faulty := storetest.NewFaulty(memory.New())
	keys := store.NewKeys("test")
	reg := rooms.NewRegistry(faulty, keys)

	hub := fanout.NewHub(&logger)
	fan := fanout.New(hub, fanout.NewLocalBackbone(), &logger)
	if err := fan.Start(context.Background()); err != nil {
		t.Fatalf("start fanout: %v", err)
	}

	coord := core.NewCoordinator(core.Deps{
		Rooms:         reg,
		Presence:      presence.NewTracker(faulty, keys, reg),
		Activity:      activity.NewLog(faulty, keys),
		Notifier:      fan,
		AnnounceLeave: cfg.Activity.AnnounceLeave,
		Logger:        &logger,
	})

	server := NewServer(coord, hub, faulty, cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, faulty: faulty, hub: hub}
}

// outbound mirrors proto.Outbound with undecoded data.
type outbound struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
	ctx  context.Context
}

func dial(t *testing.T, ts *testServer) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	c := &wsClient{t: t, conn: conn, ctx: ctx}
	hello := c.read()
	if hello.Type != proto.OutboundTypeEvent || hello.Event != proto.EventConnected {
		t.Fatalf("expected connected event, got %+v", hello)
	}
	var connected proto.Connected
	if err := json.Unmarshal(hello.Data, &connected); err != nil || connected.ConnectionID == "" {
		t.Fatalf("bad connected payload %s (%v)", hello.Data, err)
	}
	c.id = connected.ConnectionID
	return c
}

func (c *wsClient) send(typ, id string, data any) {
	c.t.Helper()

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			c.t.Fatalf("marshal %s: %v", typ, err)
		}
		raw = b
	}
	if err := wsjson.Write(c.ctx, c.conn, proto.Inbound{Type: typ, ID: id, Data: raw}); err != nil {
		c.t.Fatalf("send %s: %v", typ, err)
	}
}

func (c *wsClient) read() outbound {
	c.t.Helper()

	var out outbound
	if err := wsjson.Read(c.ctx, c.conn, &out); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return out
}

func (c *wsClient) expectAck(id string, into any) {
	c.t.Helper()

	out := c.read()
	if out.Type != proto.OutboundTypeAck || out.ID != id {
		c.t.Fatalf("expected ack %s, got %+v (error %+v)", id, out, out.Error)
	}
	if into != nil {
		if err := json.Unmarshal(out.Data, into); err != nil {
			c.t.Fatalf("decode ack %s: %v", out.Data, err)
		}
	}
}

func (c *wsClient) expectError(id, code string) {
	c.t.Helper()

	out := c.read()
	if out.Type != proto.OutboundTypeError || out.ID != id || out.Error == nil || out.Error.Code != code {
		c.t.Fatalf("expected %s error for %q, got %+v (error %+v)", code, id, out, out.Error)
	}
}

func (c *wsClient) expectEvent(event string, into any) {
	c.t.Helper()

	out := c.read()
	if out.Type != proto.OutboundTypeEvent || out.Event != event {
		c.t.Fatalf("expected event %s, got %+v", event, out)
	}
	if into != nil {
		if err := json.Unmarshal(out.Data, into); err != nil {
			c.t.Fatalf("decode event %s: %v", out.Data, err)
		}
	}
}

// waitForClients blocks until the hub has n attached clients.
func waitForClients(t *testing.T, hub *fanout.Hub, n int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.Clients())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
