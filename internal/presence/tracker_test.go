package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/vovakirdan/wirestream/internal/rooms"
	"github.com/vovakirdan/wirestream/internal/store"
	"github.com/vovakirdan/wirestream/internal/store/memory"
	"github.com/vovakirdan/wirestream/internal/store/storetest"
)

type fixture struct {
	tracker *Tracker
	faulty  *storetest.Faulty
	roomID  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	faulty := storetest.NewFaulty(memory.New())
	keys := store.NewKeys("test")
	reg := rooms.NewRegistry(faulty, keys)

	room, err := reg.CreateRoom(context.Background(), json.RawMessage(`{"title":"Study Hub","maxMembers":4}`))
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	return fixture{
		tracker: NewTracker(faulty, keys, reg),
		faulty:  faulty,
		roomID:  room.ID,
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.tracker.Join(context.Background(), "ghost", "c1", "alice")
	if !errors.Is(err, rooms.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	viewers, err := f.tracker.Viewers(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("viewers: %v", err)
	}
	if len(viewers) != 0 {
		t.Fatalf("unknown room must not gain viewers: %v", viewers)
	}
}

func TestJoinReturnsMetadataAndCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	meta, count, err := f.tracker.Join(ctx, f.roomID, "c1", "alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
	var decoded struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(meta, &decoded); err != nil || decoded.Title != "Study Hub" {
		t.Fatalf("unexpected metadata %s (err=%v)", meta, err)
	}

	_, count, err = f.tracker.Join(ctx, f.roomID, "c2", "bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestDuplicateJoinDoesNotDoubleCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, count, err := f.tracker.Join(ctx, f.roomID, "c1", "alice")
		if err != nil {
			t.Fatalf("join #%d: %v", i, err)
		}
		if count != 1 {
			t.Fatalf("join #%d: expected count 1, got %d", i, count)
		}
	}

	viewers, err := f.tracker.Viewers(ctx, f.roomID)
	if err != nil {
		t.Fatalf("viewers: %v", err)
	}
	if len(viewers) != 1 {
		t.Fatalf("expected one membership entry, got %v", viewers)
	}
}

func TestLeaveMatchesConnectionNotUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two connections sharing a username.
	for _, conn := range []string{"c1", "c2"} {
		if _, _, err := f.tracker.Join(ctx, f.roomID, conn, "alice"); err != nil {
			t.Fatalf("join %s: %v", conn, err)
		}
	}

	count, removed, err := f.tracker.Leave(ctx, f.roomID, "c1")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if !removed || count != 1 {
		t.Fatalf("expected removed with count 1, got removed=%v count=%d", removed, count)
	}

	viewers, err := f.tracker.Viewers(ctx, f.roomID)
	if err != nil {
		t.Fatalf("viewers: %v", err)
	}
	if len(viewers) != 1 || viewers[0].ConnectionID != "c2" {
		t.Fatalf("expected only c2 to remain, got %v", viewers)
	}
}

func TestLeaveAbsentConnectionIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.tracker.Join(ctx, f.roomID, "c1", "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	count, removed, err := f.tracker.Leave(ctx, f.roomID, "nobody")
	if err != nil {
		t.Fatalf("leave absent: %v", err)
	}
	if removed || count != 1 {
		t.Fatalf("expected no change, got removed=%v count=%d", removed, count)
	}

	// Duplicate disconnect signals.
	for i := 0; i < 2; i++ {
		if _, _, err := f.tracker.Leave(ctx, f.roomID, "c1"); err != nil {
			t.Fatalf("leave #%d: %v", i, err)
		}
	}
	count, err = f.tracker.Count(ctx, f.roomID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected count 0, got %d", count)
	}
}

func TestJoinRollsBackMembershipWhenCountFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.faulty.Fail(storetest.OpCounterIncr, errors.New("connection reset"))
	if _, _, err := f.tracker.Join(ctx, f.roomID, "c1", "alice"); err == nil {
		t.Fatalf("expected join to fail")
	}
	f.faulty.Heal()

	viewers, err := f.tracker.Viewers(ctx, f.roomID)
	if err != nil {
		t.Fatalf("viewers: %v", err)
	}
	if len(viewers) != 0 {
		t.Fatalf("expected rollback of membership entry, got %v", viewers)
	}

	// A retry must count normally.
	_, count, err := f.tracker.Join(ctx, f.roomID, "c1", "alice")
	if err != nil {
		t.Fatalf("retry join: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1 after retry, got %d", count)
	}
}

func TestCountMatchesMembershipAfterConcurrentChurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const conns = 40
	var wg sync.WaitGroup
	for i := 0; i < conns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%02d", i)
			rng := rand.New(rand.NewSource(int64(i)))
			for step := 0; step < 10; step++ {
				if rng.Intn(2) == 0 {
					if _, _, err := f.tracker.Join(ctx, f.roomID, conn, "user"); err != nil {
						t.Errorf("join: %v", err)
					}
				} else {
					count, _, err := f.tracker.Leave(ctx, f.roomID, conn)
					if err != nil {
						t.Errorf("leave: %v", err)
					}
					if count < 0 {
						t.Errorf("negative count %d", count)
					}
				}
			}
		}(i)
	}
	wg.Wait()

	viewers, err := f.tracker.Viewers(ctx, f.roomID)
	if err != nil {
		t.Fatalf("viewers: %v", err)
	}
	count, err := f.tracker.Count(ctx, f.roomID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != int64(len(viewers)) {
		t.Fatalf("count %d drifted from membership %d", count, len(viewers))
	}
}
