package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// TestInsertAndGetContact tests the basic contact round trip.
func TestInsertAndGetContact(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	c := testContact("jane@acme.com", "client-a", "acme.com")
	c.FirstName = "Jane"
	c.LastKnownTitle = "VP of Engineering"
	if err := store.InsertContact(ctx, c); err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}

	got, err := store.GetContact(ctx, "jane@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.DispositionStatus != types.StatusFresh {
		t.Errorf("expected status fresh, got %s", got.DispositionStatus)
	}
	if got.FirstName != "Jane" || got.LastKnownTitle != "VP of Engineering" {
		t.Errorf("fields not round-tripped: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected created_at/updated_at to be set")
	}
}

// TestGetContactNotFound tests the sentinel error for missing contacts.
func TestGetContactNotFound(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.GetContact(ctx, "nobody@acme.com", "client-a")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestContactsPerClientAreIndependent tests that two clients tracking
// the same email address hold separate rows.
func TestContactsPerClientAreIndependent(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.InsertContact(ctx, testContact("jane@acme.com", "client-a", "acme.com")); err != nil {
		t.Fatalf("InsertContact for client-a failed: %v", err)
	}
	if err := store.InsertContact(ctx, testContact("jane@acme.com", "client-b", "acme.com")); err != nil {
		t.Fatalf("InsertContact for client-b failed: %v", err)
	}

	if err := store.UpdateContact(ctx, "jane@acme.com", "client-a", types.ContactUpdate{
		EmailSuppressed: types.Ptr(true),
	}); err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}

	other, err := store.GetContact(ctx, "jane@acme.com", "client-b")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if other.EmailSuppressed {
		t.Error("update to client-a row leaked into client-b row")
	}
}

// TestInsertContactCreatesCompany tests lazy company creation and the
// contacts_total counter.
func TestInsertContactCreatesCompany(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.InsertContact(ctx, testContact("a@acme.com", "client-a", "acme.com")); err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}
	if err := store.InsertContact(ctx, testContact("b@acme.com", "client-a", "acme.com")); err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}

	company, err := store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.CompanyStatus != types.CompanyFresh {
		t.Errorf("expected fresh company, got %s", company.CompanyStatus)
	}
	if company.ContactsTotal != 2 {
		t.Errorf("expected contacts_total 2, got %d", company.ContactsTotal)
	}
}

// TestUpdateContactPartial tests that a partial update touches only the
// named columns.
func TestUpdateContactPartial(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	c := testContact("jane@acme.com", "client-a", "acme.com")
	c.FirstName = "Jane"
	if err := store.InsertContact(ctx, c); err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}

	until := time.Now().UTC().Add(24 * time.Hour)
	err := store.UpdateContact(ctx, "jane@acme.com", "client-a", types.ContactUpdate{
		EmailCooldownUntil: &until,
		SequenceCount:      types.Ptr(3),
	})
	if err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}

	got, err := store.GetContact(ctx, "jane@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.EmailCooldownUntil == nil || !got.EmailCooldownUntil.Equal(until) {
		t.Errorf("cooldown not written: %v", got.EmailCooldownUntil)
	}
	if got.SequenceCount != 3 {
		t.Errorf("expected sequence_count 3, got %d", got.SequenceCount)
	}
	if got.FirstName != "Jane" {
		t.Errorf("untouched column changed: %q", got.FirstName)
	}
}

// TestUpdateContactMissing tests that updating a missing contact
// returns ErrNotFound.
func TestUpdateContactMissing(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	err := store.UpdateContact(ctx, "ghost@acme.com", "client-a", types.ContactUpdate{
		SequenceCount: types.Ptr(1),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestBulkInsertSkipsDuplicates tests duplicate-skip semantics on the
// (email, client_id) key and the counter bump for new rows only.
func TestBulkInsertSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.InsertContact(ctx, testContact("a@acme.com", "client-a", "acme.com")); err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}

	batch := []*types.Contact{
		testContact("a@acme.com", "client-a", "acme.com"), // duplicate
		testContact("b@acme.com", "client-a", "acme.com"),
		testContact("c@other.io", "client-a", "other.io"),
	}
	inserted, err := store.BulkInsertContacts(ctx, batch)
	if err != nil {
		t.Fatalf("BulkInsertContacts failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("expected 2 inserted, got %d", inserted)
	}

	company, err := store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.ContactsTotal != 2 {
		t.Errorf("expected contacts_total 2 after duplicate skip, got %d", company.ContactsTotal)
	}
	if _, err := store.GetCompany(ctx, "other.io"); err != nil {
		t.Errorf("expected lazy company for other.io: %v", err)
	}
}

// TestBulkInsertRejectsInvalid tests that one invalid row aborts the
// whole batch.
func TestBulkInsertRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	batch := []*types.Contact{
		testContact("good@acme.com", "client-a", "acme.com"),
		{Email: "not-an-email", ClientID: "client-a", CompanyDomain: "acme.com"},
	}
	if _, err := store.BulkInsertContacts(ctx, batch); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := store.GetContact(ctx, "good@acme.com", "client-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected batch rollback, got %v", err)
	}
}

// TestGetContactsByDomain tests the cross-client domain view.
func TestGetContactsByDomain(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	for _, c := range []*types.Contact{
		testContact("a@acme.com", "client-a", "acme.com"),
		testContact("a@acme.com", "client-b", "acme.com"),
		testContact("x@other.io", "client-a", "other.io"),
	} {
		if err := store.InsertContact(ctx, c); err != nil {
			t.Fatalf("InsertContact failed: %v", err)
		}
	}

	contacts, err := store.GetContactsByDomain(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetContactsByDomain failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Errorf("expected 2 contacts across clients, got %d", len(contacts))
	}
}

// TestOwnershipRoundTrip tests SetOwnership, ClearOwnership, and the
// owned-companies listing.
func TestOwnershipRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.EnsureCompany(ctx, "acme.com"); err != nil {
		t.Fatalf("EnsureCompany failed: %v", err)
	}

	now := time.Now().UTC()
	expires := now.Add(360 * 24 * time.Hour)
	if err := store.SetOwnership(ctx, "acme.com", "client-a", now, expires); err != nil {
		t.Fatalf("SetOwnership failed: %v", err)
	}

	company, err := store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.ClientOwnerID != "client-a" || !company.Owned() {
		t.Errorf("expected ownership by client-a, got %q", company.ClientOwnerID)
	}
	if company.OwnershipExpiresAt == nil {
		t.Fatal("expected ownership_expires_at to be set")
	}

	owned, err := store.ListOwnedCompanies(ctx, "client-a")
	if err != nil {
		t.Fatalf("ListOwnedCompanies failed: %v", err)
	}
	if len(owned) != 1 || owned[0].Domain != "acme.com" {
		t.Errorf("expected acme.com in owned list, got %v", owned)
	}

	if err := store.ClearOwnership(ctx, "acme.com"); err != nil {
		t.Fatalf("ClearOwnership failed: %v", err)
	}
	company, err = store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.Owned() {
		t.Errorf("expected ownership cleared, got %q", company.ClientOwnerID)
	}
}

// TestRunInTransactionRollsBack tests that an error inside the
// transaction function discards every write.
func TestRunInTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	boom := errors.New("boom")
	err := store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if err := tx.InsertContact(ctx, testContact("jane@acme.com", "client-a", "acme.com")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.GetContact(ctx, "jane@acme.com", "client-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected rollback, got %v", err)
	}
	if _, err := store.GetCompany(ctx, "acme.com"); !errors.Is(err, storage.ErrCompanyNotFound) {
		t.Errorf("expected company rollback, got %v", err)
	}
}

// TestContactHistoryOrder tests that history reads come back newest
// first and carry the transition fields.
func TestContactHistoryOrder(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestDB(t)
	defer cleanup()

	base := time.Now().UTC().Add(-time.Hour)
	for i, status := range []types.DispositionStatus{types.StatusInSequence, types.StatusRepliedPositive} {
		h := &types.DispositionHistory{
			ContactEmail:    "jane@acme.com",
			ContactClientID: "client-a",
			NewStatus:       status,
			TriggeredBy:     types.TriggerSystem,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AppendHistory(ctx, h); err != nil {
			t.Fatalf("AppendHistory failed: %v", err)
		}
	}

	history, err := store.GetContactHistory(ctx, "jane@acme.com", "client-a", 10)
	if err != nil {
		t.Fatalf("GetContactHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	if history[0].NewStatus != types.StatusRepliedPositive {
		t.Errorf("expected newest row first, got %s", history[0].NewStatus)
	}
}
