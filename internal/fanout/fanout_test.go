package fanout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/vovakirdan/wirestream/internal/core"
)

func runNATS(t *testing.T) string {
	t.Helper()

	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatalf("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func startFanout(t *testing.T, backbone Backbone) *Fanout {
	t.Helper()

	f := New(NewHub(nil), backbone, nil)
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("start fanout: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func expectEvent(t *testing.T, c *Client, event string) *Message {
	t.Helper()

	select {
	case msg := <-c.Events:
		if msg.Event != event {
			t.Fatalf("expected %s, got %s", event, msg.Event)
		}
		return msg
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s on %s", event, c.ID)
	}
	return nil
}

func expectQuiet(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.Events:
		t.Fatalf("%s: unexpected event %s", c.ID, msg.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLocalFanoutPublishesToRoom(t *testing.T) {
	f := startFanout(t, NewLocalBackbone())

	alice, bob := NewClient("alice", 4), NewClient("bob", 4)
	f.Hub().Register(alice)
	f.Hub().Register(bob)
	f.Subscribe("alice", "r1")
	f.Subscribe("bob", "r1")

	err := f.Publish(context.Background(), core.Notification{
		Event:   core.EventSomeoneJoined,
		RoomID:  "r1",
		Except:  "bob",
		Payload: core.SomeoneJoined{RoomID: "r1", Activities: []string{"bob joined the room."}},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := expectEvent(t, alice, core.EventSomeoneJoined)
	var payload core.SomeoneJoined
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Activities) != 1 || payload.Activities[0] != "bob joined the room." {
		t.Fatalf("unexpected payload %+v", payload)
	}
	expectQuiet(t, bob)

	f.Unsubscribe("alice", "r1")
	_ = f.Publish(context.Background(), core.Notification{Event: core.EventUserLeftRoom, RoomID: "r1"})
	expectQuiet(t, alice)
	expectEvent(t, bob, core.EventUserLeftRoom)
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	f := startFanout(t, NewLocalBackbone())

	err := f.Publish(context.Background(), core.Notification{Event: "bad", Payload: make(chan int)})
	if err == nil {
		t.Fatalf("expected encode error")
	}
}

func TestNATSBackboneCrossesServers(t *testing.T) {
	url := runNATS(t)

	backboneA, err := DialNATS(url, "test", nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	backboneB, err := DialNATS(url, "test", nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	serverA := startFanout(t, backboneA)
	serverB := startFanout(t, backboneB)

	alice := NewClient("alice", 4) // on A
	bob := NewClient("bob", 4)     // on B
	carol := NewClient("carol", 4) // on B, no room
	serverA.Hub().Register(alice)
	serverB.Hub().Register(bob)
	serverB.Hub().Register(carol)
	serverA.Subscribe("alice", "r1")
	serverB.Subscribe("bob", "r1")

	// bob joined on B; only alice on A should hear about it.
	err = serverB.Publish(context.Background(), core.Notification{
		Event:   core.EventSomeoneJoined,
		RoomID:  "r1",
		Except:  "bob",
		Payload: core.SomeoneJoined{RoomID: "r1", ConnectionID: "bob"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg := expectEvent(t, alice, core.EventSomeoneJoined)
	if msg.RoomID != "r1" || msg.Except != "bob" {
		t.Fatalf("unexpected routing fields %+v", msg)
	}
	expectQuiet(t, bob)
	expectQuiet(t, carol)

	// A global broadcast from A reaches everyone on B.
	err = serverA.Publish(context.Background(), core.Notification{
		Event:   core.EventNewRoomCreated,
		Except:  "alice",
		Payload: []core.RoomSummary{{ID: "r1", Metadata: json.RawMessage(`{}`)}},
	})
	if err != nil {
		t.Fatalf("publish global: %v", err)
	}
	expectEvent(t, bob, core.EventNewRoomCreated)
	expectEvent(t, carol, core.EventNewRoomCreated)
	expectQuiet(t, alice)
}

func TestNATSSubjects(t *testing.T) {
	b := NewNATSBackbone(nil, "", nil)

	tests := []struct {
		msg  Message
		want string
	}{
		{Message{RoomID: "abc"}, "wirestream.room.abc"},
		{Message{}, "wirestream.all"},
	}
	for _, tt := range tests {
		if got := b.Subject(&tt.msg); got != tt.want {
			t.Fatalf("subject for %+v: got %s, want %s", tt.msg, got, tt.want)
		}
	}
}
