package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/types"
)

// setupTestDB creates a file-backed store in a temp dir.
//
// The ":memory:" path opens a shared-cache database, so every store in
// the test binary would see the same data. A temp file keeps each test
// isolated and survives connection pool churn.
func setupTestDB(t *testing.T) (*Store, func()) {
	t.Helper()
	store, err := New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	return store, func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Failed to close test database: %v", cerr)
		}
	}
}

// testContact builds a minimal valid contact.
func testContact(email, clientID, domain string) *types.Contact {
	return &types.Contact{
		Email:         email,
		ClientID:      clientID,
		CompanyDomain: domain,
	}
}

// insertJob seeds one intake queue row directly; the queue table is
// written by an external system in production.
func insertJob(t *testing.T, s *Store, id, clientID, status string, createdAt time.Time, criteria string) {
	t.Helper()
	if criteria == "" {
		criteria = "{}"
	}
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO lead_pull_jobs (id, client_id, volume, search_criteria, status, created_at)
		VALUES (?, ?, 100, ?, ?, ?)`,
		id, clientID, criteria, status, fmtTime(createdAt))
	if err != nil {
		t.Fatalf("Failed to insert job %s: %v", id, err)
	}
}
