package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirestream/internal/config"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Store.Backend = "etcd"

	if _, err := New(context.Background(), cfg, &logger); err == nil {
		t.Fatalf("expected invalid config error")
	}
}

func TestSQLiteBackedApp(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Store.Backend = config.StoreSQLite
	cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "rooms.db")

	a, err := New(context.Background(), cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.cleanup()

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/rooms", "application/json", bytes.NewBufferString(`{"title":"t"}`))
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, err = ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy, got %d", resp.StatusCode)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"

	a, err := New(context.Background(), cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
}
