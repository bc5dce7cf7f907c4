// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/vovakirdan/wirestream/internal/store"
)

// Run exercises st against the store.Store contract. newStore must return
// an empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		st := newStore(t)
		if _, err := st.Get(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetAndGet", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		if err := st.Set(ctx, "k", "v1"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := st.Set(ctx, "k", "v2"); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		got, err := st.Get(ctx, "k")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != "v2" {
			t.Fatalf("expected v2, got %q", got)
		}
	})

	t.Run("SetMembersDeduplicates", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		for _, m := range []string{"a", "b", "a"} {
			if err := st.SetAdd(ctx, "set", m); err != nil {
				t.Fatalf("sadd %s: %v", m, err)
			}
		}
		members, err := st.SetMembers(ctx, "set")
		if err != nil {
			t.Fatalf("smembers: %v", err)
		}
		sort.Strings(members)
		if len(members) != 2 || members[0] != "a" || members[1] != "b" {
			t.Fatalf("unexpected members: %v", members)
		}

		empty, err := st.SetMembers(ctx, "missing")
		if err != nil {
			t.Fatalf("smembers missing: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("expected empty set, got %v", empty)
		}
	})

	t.Run("MapPutIfAbsentAndDelete", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		added, err := st.MapPutIfAbsent(ctx, "m", "c1", "alice")
		if err != nil || !added {
			t.Fatalf("expected first put to add, got added=%v err=%v", added, err)
		}
		added, err = st.MapPutIfAbsent(ctx, "m", "c1", "mallory")
		if err != nil || added {
			t.Fatalf("expected duplicate put to be ignored, got added=%v err=%v", added, err)
		}

		all, err := st.MapGetAll(ctx, "m")
		if err != nil {
			t.Fatalf("map get all: %v", err)
		}
		if len(all) != 1 || all["c1"] != "alice" {
			t.Fatalf("unexpected map: %v", all)
		}

		removed, err := st.MapDelete(ctx, "m", "c1")
		if err != nil || !removed {
			t.Fatalf("expected delete to remove, got removed=%v err=%v", removed, err)
		}
		removed, err = st.MapDelete(ctx, "m", "c1")
		if err != nil || removed {
			t.Fatalf("expected second delete to be a no-op, got removed=%v err=%v", removed, err)
		}
	})

	t.Run("CounterFloorsAtZero", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		v, err := st.CounterDecrFloor(ctx, "c")
		if err != nil || v != 0 {
			t.Fatalf("decr on missing counter: v=%d err=%v", v, err)
		}
		for want := int64(1); want <= 2; want++ {
			v, err = st.CounterIncr(ctx, "c")
			if err != nil || v != want {
				t.Fatalf("incr: expected %d, got %d (err=%v)", want, v, err)
			}
		}
		for _, want := range []int64{1, 0, 0} {
			v, err = st.CounterDecrFloor(ctx, "c")
			if err != nil || v != want {
				t.Fatalf("decr: expected %d, got %d (err=%v)", want, v, err)
			}
		}
		v, err = st.CounterGet(ctx, "c")
		if err != nil || v != 0 {
			t.Fatalf("get: expected 0, got %d (err=%v)", v, err)
		}
		v, err = st.CounterGet(ctx, "other")
		if err != nil || v != 0 {
			t.Fatalf("get missing: expected 0, got %d (err=%v)", v, err)
		}
	})

	t.Run("ListAppendUnlessLast", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		steps := []struct {
			value    string
			appended bool
		}{
			{"x", true},
			{"x", false},
			{"y", true},
			{"x", true},
		}
		for _, step := range steps {
			appended, err := st.ListAppendUnlessLast(ctx, "l", step.value)
			if err != nil {
				t.Fatalf("append %s: %v", step.value, err)
			}
			if appended != step.appended {
				t.Fatalf("append %s: expected appended=%v, got %v", step.value, step.appended, appended)
			}
		}

		items, err := st.ListRange(ctx, "l")
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		want := []string{"x", "y", "x"}
		if len(items) != len(want) {
			t.Fatalf("expected %v, got %v", want, items)
		}
		for i := range want {
			if items[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, items)
			}
		}
	})

	t.Run("ConcurrentIncrements", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		const workers = 20
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := st.CounterIncr(ctx, "cc"); err != nil {
					t.Errorf("incr: %v", err)
				}
			}()
		}
		wg.Wait()

		v, err := st.CounterGet(ctx, "cc")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if v != workers {
			t.Fatalf("expected %d, got %d", workers, v)
		}
	})
}
