package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// TestClaimPendingJobEmpty tests the sentinel for an empty queue.
func TestClaimPendingJobEmpty(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.ClaimPendingJob(ctx)
	if !errors.Is(err, storage.ErrNoPendingJobs) {
		t.Fatalf("expected ErrNoPendingJobs, got %v", err)
	}
}

// TestClaimPendingJobOldestFirst tests FIFO claiming and the flip to
// processing.
func TestClaimPendingJobOldestFirst(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	base := time.Now().UTC().Add(-time.Hour)
	insertJob(t, store, "job-new", "client-a", "pending", base.Add(10*time.Minute), "")
	insertJob(t, store, "job-old", "client-a", "pending", base, `{"industry":"saas","title_keywords":["VP Sales"]}`)
	insertJob(t, store, "job-done", "client-a", "completed", base.Add(-time.Hour), "")

	job, err := store.ClaimPendingJob(ctx)
	if err != nil {
		t.Fatalf("ClaimPendingJob failed: %v", err)
	}
	if job.ID != "job-old" {
		t.Errorf("expected oldest pending job, got %s", job.ID)
	}
	if job.Status != types.JobProcessing {
		t.Errorf("expected processing status, got %s", job.Status)
	}
	if job.StartedAt == nil {
		t.Error("expected started_at to be stamped")
	}
	if job.SearchCriteria["industry"] != "saas" {
		t.Errorf("search criteria not decoded: %v", job.SearchCriteria)
	}

	// A second claim gets the next pending row, not the claimed one.
	next, err := store.ClaimPendingJob(ctx)
	if err != nil {
		t.Fatalf("second ClaimPendingJob failed: %v", err)
	}
	if next.ID != "job-new" {
		t.Errorf("expected job-new, got %s", next.ID)
	}

	if _, err := store.ClaimPendingJob(ctx); !errors.Is(err, storage.ErrNoPendingJobs) {
		t.Errorf("expected empty queue after both claims, got %v", err)
	}
}

// TestCompleteJob tests that completion stores the result payload.
func TestCompleteJob(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	insertJob(t, store, "job-1", "client-a", "pending", time.Now().UTC(), "")
	job, err := store.ClaimPendingJob(ctx)
	if err != nil {
		t.Fatalf("ClaimPendingJob failed: %v", err)
	}

	if err := store.CompleteJob(ctx, job.ID, []byte(`{"total_assigned":5}`)); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	var status, result string
	err = store.db.QueryRowContext(ctx,
		`SELECT status, result_data FROM lead_pull_jobs WHERE id = ?`, job.ID).
		Scan(&status, &result)
	if err != nil {
		t.Fatalf("readback failed: %v", err)
	}
	if status != types.JobCompleted {
		t.Errorf("expected completed, got %s", status)
	}
	if result != `{"total_assigned":5}` {
		t.Errorf("unexpected result payload: %s", result)
	}
}

// TestFailJob tests that failure records the error message.
func TestFailJob(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	insertJob(t, store, "job-1", "client-a", "pending", time.Now().UTC(), "")
	job, err := store.ClaimPendingJob(ctx)
	if err != nil {
		t.Fatalf("ClaimPendingJob failed: %v", err)
	}

	if err := store.FailJob(ctx, job.ID, "fill blew up"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}

	var status, message string
	err = store.db.QueryRowContext(ctx,
		`SELECT status, error_message FROM lead_pull_jobs WHERE id = ?`, job.ID).
		Scan(&status, &message)
	if err != nil {
		t.Fatalf("readback failed: %v", err)
	}
	if status != types.JobFailed {
		t.Errorf("expected failed, got %s", status)
	}
	if message != "fill blew up" {
		t.Errorf("unexpected error message: %s", message)
	}
}
