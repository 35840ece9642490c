package tam

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/storage/sqlite"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

func setupTracker(t *testing.T) (*Tracker, storage.Store) {
	t.Helper()
	store, err := sqlite.New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cfg := &config.Config{TAMWarningWeeks: 8, TAMCriticalWeeks: 4}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, cfg, log), store
}

// seedAvailable inserts n available fresh contacts for the client.
func seedAvailable(t *testing.T, store storage.Store, clientID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.InsertContact(context.Background(), &types.Contact{
			Email:         fmt.Sprintf("c%d@%s.example.com", i, clientID),
			ClientID:      clientID,
			CompanyDomain: clientID + ".example.com",
		})
		if err != nil {
			t.Fatalf("InsertContact failed: %v", err)
		}
	}
}

// seedBurn appends n recent transitions into sequence for the client.
func seedBurn(t *testing.T, store storage.Store, clientID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.AppendHistory(context.Background(), &types.DispositionHistory{
			ContactEmail:    fmt.Sprintf("c%d@%s.example.com", i, clientID),
			ContactClientID: clientID,
			NewStatus:       types.StatusInSequence,
			TriggeredBy:     types.TriggerCampaignFill,
			CreatedAt:       time.Now().UTC().Add(-time.Hour),
		})
		if err != nil {
			t.Fatalf("AppendHistory failed: %v", err)
		}
	}
}

// TestHealthZeroBurn tests that zero burn yields no forecast and a
// healthy status.
func TestHealthZeroBurn(t *testing.T) {
	tr, store := setupTracker(t)
	seedAvailable(t, store, "client-a", 3)

	health, err := tr.Health(context.Background(), nil)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.ExhaustionETAWeeks != nil {
		t.Errorf("expected no ETA with zero burn, got %v", *health.ExhaustionETAWeeks)
	}
	if health.HealthStatus != types.HealthHealthy {
		t.Errorf("expected healthy, got %s", health.HealthStatus)
	}
	if health.AvailableNow != 3 {
		t.Errorf("expected 3 available, got %d", health.AvailableNow)
	}
}

// TestHealthThresholds tests the critical and warning classifications
// against the configured week thresholds.
func TestHealthThresholds(t *testing.T) {
	cases := []struct {
		name      string
		available int
		burn      int
		want      types.HealthStatus
	}{
		{"critical", 2, 1, types.HealthCritical}, // 2 weeks < 4
		{"warning", 6, 1, types.HealthWarning},   // 6 weeks < 8
		{"healthy", 20, 1, types.HealthHealthy},  // 20 weeks
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, store := setupTracker(t)
			seedAvailable(t, store, "client-a", tc.available)
			seedBurn(t, store, "client-a", tc.burn)

			health, err := tr.Health(context.Background(), types.Ptr("client-a"))
			if err != nil {
				t.Fatalf("Health failed: %v", err)
			}
			if health.HealthStatus != tc.want {
				t.Errorf("expected %s, got %s (eta %v)", tc.want, health.HealthStatus, health.ExhaustionETAWeeks)
			}
			if health.ExhaustionETAWeeks == nil {
				t.Fatal("expected an ETA with nonzero burn")
			}
			eta := float64(tc.available) / float64(tc.burn)
			if *health.ExhaustionETAWeeks != eta {
				t.Errorf("expected eta %v, got %v", eta, *health.ExhaustionETAWeeks)
			}
		})
	}
}

// TestCaptureSnapshotPersists tests that a capture lands in the trend
// store under today's date.
func TestCaptureSnapshotPersists(t *testing.T) {
	ctx := context.Background()
	tr, store := setupTracker(t)
	seedAvailable(t, store, "client-a", 5)

	if _, err := tr.CaptureSnapshot(ctx, types.Ptr("client-a")); err != nil {
		t.Fatalf("CaptureSnapshot failed: %v", err)
	}

	trends, err := tr.Trends(ctx, types.Ptr("client-a"), 7)
	if err != nil {
		t.Fatalf("Trends failed: %v", err)
	}
	if len(trends) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(trends))
	}
	if trends[0].AvailableNow != 5 {
		t.Errorf("expected 5 available in snapshot, got %d", trends[0].AvailableNow)
	}
	if trends[0].SnapshotDate != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("unexpected snapshot date %s", trends[0].SnapshotDate)
	}

	// Recapture replaces the same-day row instead of appending.
	if _, err := tr.CaptureSnapshot(ctx, types.Ptr("client-a")); err != nil {
		t.Fatalf("second CaptureSnapshot failed: %v", err)
	}
	trends, err = tr.Trends(ctx, types.Ptr("client-a"), 7)
	if err != nil {
		t.Fatalf("Trends failed: %v", err)
	}
	if len(trends) != 1 {
		t.Errorf("expected same-day replacement, got %d snapshots", len(trends))
	}
}

// TestCaptureAll tests the global plus per-client snapshot fan-out.
func TestCaptureAll(t *testing.T) {
	ctx := context.Background()
	tr, store := setupTracker(t)
	seedAvailable(t, store, "client-a", 2)
	seedAvailable(t, store, "client-b", 3)

	results, err := tr.CaptureAll(ctx)
	if err != nil {
		t.Fatalf("CaptureAll failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected global + 2 clients, got %d", len(results))
	}
	if results[""].AvailableNow != 5 {
		t.Errorf("expected global 5 available, got %d", results[""].AvailableNow)
	}
	if results["client-a"].AvailableNow != 2 || results["client-b"].AvailableNow != 3 {
		t.Errorf("per-client counts wrong: %v / %v", results["client-a"], results["client-b"])
	}

	global, err := tr.Trends(ctx, nil, 7)
	if err != nil {
		t.Fatalf("Trends failed: %v", err)
	}
	if len(global) != 1 {
		t.Errorf("expected 1 global snapshot, got %d", len(global))
	}
}
