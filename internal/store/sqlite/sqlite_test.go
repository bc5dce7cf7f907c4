package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/wirestream/internal/store"
	"github.com/vovakirdan/wirestream/internal/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := New(":memory:")
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestSQLiteStoreSharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.db")

	first, err := New(path)
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	defer first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	defer second.Close()

	ctx := context.Background()
	if _, err := first.CounterIncr(ctx, "viewers"); err != nil {
		t.Fatalf("incr via first: %v", err)
	}
	if _, err := second.CounterIncr(ctx, "viewers"); err != nil {
		t.Fatalf("incr via second: %v", err)
	}

	v, err := first.CounterGet(ctx, "viewers")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected both handles to see 2, got %d", v)
	}
}

func TestNewWithSetupSeedsData(t *testing.T) {
	st, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO kv (key, value) VALUES ('seed', 'ok')`)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	v, err := st.Get(context.Background(), "seed")
	if err != nil {
		t.Fatalf("get seed: %v", err)
	}
	if v != "ok" {
		t.Fatalf("expected seeded value, got %q", v)
	}
}
