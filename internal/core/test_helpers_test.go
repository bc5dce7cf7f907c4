package core

import (
	"context"
	"sync"
	"testing"

	"github.com/vovakirdan/wirestream/internal/activity"
	"github.com/vovakirdan/wirestream/internal/presence"
	"github.com/vovakirdan/wirestream/internal/rooms"
	"github.com/vovakirdan/wirestream/internal/store"
	"github.com/vovakirdan/wirestream/internal/store/memory"
	"github.com/vovakirdan/wirestream/internal/store/storetest"
)

// recordingNotifier keeps every subscription change and notification.
type recordingNotifier struct {
	mu            sync.Mutex
	subscriptions map[string]string // connID -> roomID
	published     []Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{subscriptions: make(map[string]string)}
}

func (n *recordingNotifier) Subscribe(connID, roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscriptions[connID] = roomID
}

func (n *recordingNotifier) Unsubscribe(connID, roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscriptions[connID] == roomID {
		delete(n.subscriptions, connID)
	}
}

func (n *recordingNotifier) Publish(_ context.Context, notif Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, notif)
	return nil
}

func (n *recordingNotifier) events(name string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notification
	for _, p := range n.published {
		if p.Event == name {
			out = append(out, p)
		}
	}
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.published)
}

func (n *recordingNotifier) subscribedTo(connID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subscriptions[connID]
}

type testEnv struct {
	coord    *Coordinator
	notifier *recordingNotifier
	faulty   *storetest.Faulty
	presence *presence.Tracker
	activity *activity.Log
}

func newTestEnv(t testing.TB, announceLeave bool) *testEnv {
	t.Helper()

	faulty := storetest.NewFaulty(memory.New())
	keys := store.NewKeys("test")
	reg := rooms.NewRegistry(faulty, keys)
	tracker := presence.NewTracker(faulty, keys, reg)
	log := activity.NewLog(faulty, keys)
	notifier := newRecordingNotifier()

	coord := NewCoordinator(Deps{
		Rooms:         reg,
		Presence:      tracker,
		Activity:      log,
		Notifier:      notifier,
		AnnounceLeave: announceLeave,
	})

	return &testEnv{
		coord:    coord,
		notifier: notifier,
		faulty:   faulty,
		presence: tracker,
		activity: log,
	}
}

func mustCode(t *testing.T, err error, code string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	ce := AsCoreError(err)
	if ce.Code != code {
		t.Fatalf("expected %s error, got %s (%v)", code, ce.Code, err)
	}
}
