package fill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/storage/sqlite"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		CooldownNoResponseDays:  90,
		OwnershipDurationMonths: 12,
		MaxContactsPerCompany:   3,
		FreshRetouchRatio:       0.7,
	}
}

func setupEngine(t *testing.T) (*Engine, storage.Store) {
	t.Helper()
	store, err := sqlite.New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, testConfig(), log), store
}

// seedFresh inserts n fresh contacts at the given domain.
func seedFresh(t *testing.T, store storage.Store, clientID, domain string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		c := &types.Contact{
			Email:         fmt.Sprintf("%s-%d@%s", strings.Split(domain, ".")[0], i, domain),
			ClientID:      clientID,
			CompanyDomain: domain,
		}
		if err := store.InsertContact(context.Background(), c); err != nil {
			t.Fatalf("InsertContact failed: %v", err)
		}
	}
}

// seedRetouch inserts n retouch-eligible contacts at the given domain.
func seedRetouch(t *testing.T, store storage.Store, clientID, domain string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("re-%d@%s", i, domain)
		c := &types.Contact{Email: email, ClientID: clientID, CompanyDomain: domain}
		if err := store.InsertContact(context.Background(), c); err != nil {
			t.Fatalf("InsertContact failed: %v", err)
		}
		err := store.UpdateContact(context.Background(), email, clientID, types.ContactUpdate{
			DispositionStatus: types.Ptr(types.StatusRetouchEligible),
		})
		if err != nil {
			t.Fatalf("UpdateContact failed: %v", err)
		}
	}
}

// TestFillBasic tests a full fill with its assignment side effects.
func TestFillBasic(t *testing.T) {
	ctx := context.Background()
	e, store := setupEngine(t)
	seedFresh(t, store, "client-a", "acme.com", 2)

	result, err := e.Fill(ctx, types.FillRequest{
		CampaignID: "camp-1",
		ClientID:   "client-a",
		Channel:    types.ChannelEmail,
		Volume:     2,
	})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if result.TotalAssigned != 2 || result.FreshCount != 2 {
		t.Errorf("expected 2 fresh assignments, got %+v", result)
	}
	if result.CompaniesTouched != 1 {
		t.Errorf("expected 1 company touched, got %d", result.CompaniesTouched)
	}

	contact, err := store.GetContact(ctx, "acme-0@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if contact.DispositionStatus != types.StatusInSequence {
		t.Errorf("expected in_sequence, got %s", contact.DispositionStatus)
	}
	if contact.SequenceCount != 1 {
		t.Errorf("expected sequence_count 1, got %d", contact.SequenceCount)
	}
	if contact.EmailLastContacted == nil {
		t.Error("expected email_last_contacted to be stamped")
	}

	history, err := store.GetContactHistory(ctx, "acme-0@acme.com", "client-a", 10)
	if err != nil {
		t.Fatalf("GetContactHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].TriggeredBy != types.TriggerCampaignFill {
		t.Errorf("expected one campaign_fill history row, got %+v", history)
	}
	if history[0].CampaignID != "camp-1" {
		t.Errorf("expected campaign id on history, got %q", history[0].CampaignID)
	}
}

// TestFillClaimsCompany tests first-claim ownership during assignment.
func TestFillClaimsCompany(t *testing.T) {
	ctx := context.Background()
	e, store := setupEngine(t)
	seedFresh(t, store, "client-a", "acme.com", 1)

	if _, err := e.Fill(ctx, types.FillRequest{
		CampaignID: "camp-1", ClientID: "client-a", Volume: 1,
	}); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	company, err := store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.ClientOwnerID != "client-a" {
		t.Errorf("expected fill to claim the company, got owner %q", company.ClientOwnerID)
	}
	if company.ContactsInSequence != 1 {
		t.Errorf("expected in-sequence counter 1, got %d", company.ContactsInSequence)
	}
}

// TestFillCompanyCap tests the per-company selection cap with its
// shortfall warning.
func TestFillCompanyCap(t *testing.T) {
	ctx := context.Background()
	e, store := setupEngine(t)
	seedFresh(t, store, "client-a", "acme.com", 5)

	result, err := e.Fill(ctx, types.FillRequest{
		CampaignID:    "camp-1",
		ClientID:      "client-a",
		Volume:        5,
		MaxPerCompany: 2,
	})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if result.TotalAssigned != 2 {
		t.Errorf("expected cap at 2, got %d", result.TotalAssigned)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a shortfall warning")
	}
}

// TestFillBlendRatio tests the fresh/retouch split.
func TestFillBlendRatio(t *testing.T) {
	ctx := context.Background()
	e, store := setupEngine(t)
	// Spread domains so the company cap does not interfere.
	for i := 0; i < 10; i++ {
		seedFresh(t, store, "client-a", fmt.Sprintf("fresh%d.com", i), 1)
		seedRetouch(t, store, "client-a", fmt.Sprintf("re%d.com", i), 1)
	}

	result, err := e.Fill(ctx, types.FillRequest{
		CampaignID: "camp-1",
		ClientID:   "client-a",
		Volume:     10,
		FreshRatio: types.Ptr(0.7),
	})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if result.TotalAssigned != 10 {
		t.Fatalf("expected 10 assigned, got %d", result.TotalAssigned)
	}
	if result.FreshCount != 7 || result.RetouchCount != 3 {
		t.Errorf("expected 7/3 blend, got %d/%d", result.FreshCount, result.RetouchCount)
	}
}

// TestFillTopsUpFromFresh tests that a missing retouch pool is filled
// from the fresh remainder.
func TestFillTopsUpFromFresh(t *testing.T) {
	ctx := context.Background()
	e, store := setupEngine(t)
	for i := 0; i < 6; i++ {
		seedFresh(t, store, "client-a", fmt.Sprintf("fresh%d.com", i), 1)
	}

	result, err := e.Fill(ctx, types.FillRequest{
		CampaignID: "camp-1",
		ClientID:   "client-a",
		Volume:     4,
		FreshRatio: types.Ptr(0.5),
	})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if result.TotalAssigned != 4 {
		t.Errorf("expected top-up to 4, got %d", result.TotalAssigned)
	}
	if result.FreshCount != 4 {
		t.Errorf("expected all assignments fresh, got %d", result.FreshCount)
	}
}

// TestFillShortfallWarning tests the exhausted-universe shape: success
// with warnings, never an error.
func TestFillShortfallWarning(t *testing.T) {
	ctx := context.Background()
	e, store := setupEngine(t)
	seedFresh(t, store, "client-a", "acme.com", 1)

	result, err := e.Fill(ctx, types.FillRequest{
		CampaignID: "camp-1",
		ClientID:   "client-a",
		Volume:     10,
	})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if result.TotalAssigned != 1 {
		t.Errorf("expected 1 assigned, got %d", result.TotalAssigned)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "shortfall") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected shortfall warning, got %v", result.Warnings)
	}
}

// TestApplyCompanyCap tests the greedy cap pass with seeded counts.
func TestApplyCompanyCap(t *testing.T) {
	contacts := []*types.Contact{
		{Email: "a@x.com", CompanyDomain: "x.com"},
		{Email: "b@x.com", CompanyDomain: "x.com"},
		{Email: "c@x.com", CompanyDomain: "x.com"},
		{Email: "d@y.com", CompanyDomain: "y.com"},
	}

	capped := applyCompanyCap(contacts, 2, nil)
	if len(capped) != 3 {
		t.Fatalf("expected 3 after cap, got %d", len(capped))
	}
	if capped[0].Email != "a@x.com" || capped[2].Email != "d@y.com" {
		t.Errorf("cap should preserve order: %v", capped)
	}

	// Seeded counts from a prior pass constrain this one.
	capped = applyCompanyCap(contacts, 2, map[string]int{"x.com": 2})
	if len(capped) != 1 || capped[0].Email != "d@y.com" {
		t.Errorf("expected only y.com contact, got %v", capped)
	}
}
