package fanout

import (
	"testing"
)

func drain(c *Client) []*Message {
	var out []*Message
	for {
		select {
		case m, ok := <-c.Events:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestDeliverToRoomSkipsExcept(t *testing.T) {
	hub := NewHub(nil)
	a, b, c := NewClient("a", 4), NewClient("b", 4), NewClient("c", 4)
	for _, cl := range []*Client{a, b, c} {
		hub.Register(cl)
	}
	hub.Subscribe("a", "r1")
	hub.Subscribe("b", "r1")
	hub.Subscribe("c", "r2")

	n := hub.Deliver(&Message{Event: "someone_joined", RoomID: "r1", Except: "b"})
	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if got := drain(a); len(got) != 1 || got[0].Event != "someone_joined" {
		t.Fatalf("a: unexpected events %v", got)
	}
	if got := drain(b); len(got) != 0 {
		t.Fatalf("b is excluded, got %v", got)
	}
	if got := drain(c); len(got) != 0 {
		t.Fatalf("c is in another room, got %v", got)
	}
}

func TestDeliverGlobal(t *testing.T) {
	hub := NewHub(nil)
	a, b := NewClient("a", 4), NewClient("b", 4)
	hub.Register(a)
	hub.Register(b)

	if n := hub.Deliver(&Message{Event: "newRoomCreated", Except: "a"}); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if len(drain(b)) != 1 {
		t.Fatalf("expected b to receive the global event")
	}
}

func TestDeliverDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	a := NewClient("a", 1)
	hub.Register(a)

	hub.Deliver(&Message{Event: "one"})
	if n := hub.Deliver(&Message{Event: "two"}); n != 0 {
		t.Fatalf("expected the second event to be dropped, got %d deliveries", n)
	}
	if got := drain(a); len(got) != 1 || got[0].Event != "one" {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestUnregisterClosesAndForgets(t *testing.T) {
	hub := NewHub(nil)
	a := NewClient("a", 4)
	hub.Register(a)
	hub.Subscribe("a", "r1")

	hub.Unregister(a)
	hub.Unregister(a)

	if _, ok := <-a.Events; ok {
		t.Fatalf("expected closed channel")
	}
	if n := hub.Deliver(&Message{Event: "x", RoomID: "r1"}); n != 0 {
		t.Fatalf("unregistered client must not receive, got %d", n)
	}
	if hub.Clients() != 0 {
		t.Fatalf("expected no clients, got %d", hub.Clients())
	}
}

func TestSubscribeUnknownClientIgnored(t *testing.T) {
	hub := NewHub(nil)
	hub.Subscribe("remote", "r1")
	if n := hub.Deliver(&Message{Event: "x", RoomID: "r1"}); n != 0 {
		t.Fatalf("expected no deliveries, got %d", n)
	}
}
