package bridge

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/storage/sqlite"
	"github.com/apqllyqn/lead-disposition/internal/waterfall"
)

func setupWorker(t *testing.T, cfg *config.Config) (*Worker, storage.Store) {
	t.Helper()
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := waterfall.New(store, nil, cfg, log)
	return NewWorker(store, engine, cfg, log), store
}

// TestPollOnceEmptyQueue tests that an empty queue is a quiet no-op.
func TestPollOnceEmptyQueue(t *testing.T) {
	w, _ := setupWorker(t, testConfig())
	if err := w.pollOnce(context.Background()); err != nil {
		t.Fatalf("empty queue should not error: %v", err)
	}
}

// TestWorkerInterval tests the poll interval default and override.
func TestWorkerInterval(t *testing.T) {
	w, _ := setupWorker(t, testConfig())
	if w.interval != 30*time.Second {
		t.Errorf("expected 30s default interval, got %v", w.interval)
	}

	cfg := testConfig()
	cfg.PollInterval = 5 * time.Second
	w, _ = setupWorker(t, cfg)
	if w.interval != 5*time.Second {
		t.Errorf("expected configured interval, got %v", w.interval)
	}
}

// TestRunStopsOnCancel tests that cancellation shuts the loop down.
func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 10 * time.Millisecond
	w, _ := setupWorker(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error on cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

// TestNewLoggerWithFile tests that the file-teed logger builds.
func TestNewLoggerWithFile(t *testing.T) {
	cfg := testConfig()
	cfg.BridgeLogFile = filepath.Join(t.TempDir(), "bridge.log")
	log := NewLogger(cfg)
	if log == nil {
		t.Fatal("expected a logger")
	}
	log.Info("smoke")
}
