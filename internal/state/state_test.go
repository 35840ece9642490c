package state

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/storage/sqlite"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		CooldownNoResponseDays:    90,
		CooldownNeutralReplyDays:  45,
		CooldownNegativeReplyDays: 180,
		CooldownLostClosedDays:    90,
		CooldownLinkedInDays:      30,
		CooldownPhoneDays:         60,
		OwnershipDurationMonths:   12,
		MaxContactsPerCompany:     3,
		FreshRetouchRatio:         0.7,
		StaleDataMonths:           6,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMachine(t *testing.T) (*Machine, storage.Store) {
	t.Helper()
	store, err := sqlite.New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, testConfig(), testLogger()), store
}

func mustInsert(t *testing.T, store storage.Store, email, clientID, domain string) {
	t.Helper()
	err := store.InsertContact(context.Background(), &types.Contact{
		Email: email, ClientID: clientID, CompanyDomain: domain,
	})
	if err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}
}

// advance walks a contact through a sequence of legal transitions.
func advance(t *testing.T, m *Machine, email, clientID string, targets ...types.DispositionStatus) {
	t.Helper()
	for _, target := range targets {
		if err := m.Transition(context.Background(), email, clientID, target, TransitionOptions{}); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}
}

// TestTransitionBasic tests a legal transition with its history row.
func TestTransitionBasic(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "jane@acme.com", "client-a", "acme.com")

	err := m.Transition(ctx, "jane@acme.com", "client-a", types.StatusInSequence, TransitionOptions{
		Reason:      "assigned",
		TriggeredBy: types.TriggerUI,
		CampaignID:  "camp-1",
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	contact, err := store.GetContact(ctx, "jane@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if contact.DispositionStatus != types.StatusInSequence {
		t.Errorf("expected in_sequence, got %s", contact.DispositionStatus)
	}
	if contact.DispositionUpdatedAt == nil {
		t.Error("expected disposition_updated_at to be stamped")
	}

	history, err := store.GetContactHistory(ctx, "jane@acme.com", "client-a", 10)
	if err != nil {
		t.Fatalf("GetContactHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(history))
	}
	h := history[0]
	if h.PreviousStatus != types.StatusFresh || h.NewStatus != types.StatusInSequence {
		t.Errorf("unexpected transition row: %s -> %s", h.PreviousStatus, h.NewStatus)
	}
	if h.TriggeredBy != types.TriggerUI || h.CampaignID != "camp-1" || h.TransitionReason != "assigned" {
		t.Errorf("audit fields not recorded: %+v", h)
	}
}

// TestTransitionIllegal tests that an illegal move is rejected without
// side effects.
func TestTransitionIllegal(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "jane@acme.com", "client-a", "acme.com")

	err := m.Transition(ctx, "jane@acme.com", "client-a", types.StatusWonCustomer, TransitionOptions{})
	if !IsIllegalTransition(err) {
		t.Fatalf("expected TransitionError, got %v", err)
	}

	contact, err := store.GetContact(ctx, "jane@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if contact.DispositionStatus != types.StatusFresh {
		t.Errorf("status changed on illegal transition: %s", contact.DispositionStatus)
	}
	history, err := store.GetContactHistory(ctx, "jane@acme.com", "client-a", 10)
	if err != nil {
		t.Fatalf("GetContactHistory failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no history rows, got %d", len(history))
	}
}

// TestTransitionSameStateNoOp tests that a same-state request succeeds
// without writing anything.
func TestTransitionSameStateNoOp(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "jane@acme.com", "client-a", "acme.com")

	if err := m.Transition(ctx, "jane@acme.com", "client-a", types.StatusFresh, TransitionOptions{}); err != nil {
		t.Fatalf("same-state transition should be a no-op: %v", err)
	}
	history, err := store.GetContactHistory(ctx, "jane@acme.com", "client-a", 10)
	if err != nil {
		t.Fatalf("GetContactHistory failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no history for a no-op, got %d rows", len(history))
	}
}

// TestTransitionMissingContact tests the not-found passthrough.
func TestTransitionMissingContact(t *testing.T) {
	m, _ := setupMachine(t)
	err := m.Transition(context.Background(), "ghost@acme.com", "client-a", types.StatusInSequence, TransitionOptions{})
	if err == nil {
		t.Fatal("expected error for missing contact")
	}
	if IsIllegalTransition(err) {
		t.Fatal("missing contact should not classify as illegal transition")
	}
}

// TestCooldownStamping tests the per-target email cooldowns and the
// channel-conditional linkedin cooldown.
func TestCooldownStamping(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "jane@acme.com", "client-a", "acme.com")
	advance(t, m, "jane@acme.com", "client-a", types.StatusInSequence)

	before := time.Now().UTC()
	err := m.Transition(ctx, "jane@acme.com", "client-a", types.StatusCompletedNoResponse, TransitionOptions{
		Channel: types.ChannelLinkedIn,
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	contact, err := store.GetContact(ctx, "jane@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if contact.EmailCooldownUntil == nil {
		t.Fatal("expected email cooldown")
	}
	gotDays := contact.EmailCooldownUntil.Sub(before).Hours() / 24
	if gotDays < 89 || gotDays > 91 {
		t.Errorf("expected ~90 day email cooldown, got %.1f days", gotDays)
	}
	if contact.LinkedInCooldownUntil == nil {
		t.Fatal("expected linkedin cooldown for linkedin channel")
	}
	liDays := contact.LinkedInCooldownUntil.Sub(before).Hours() / 24
	if liDays < 29 || liDays > 31 {
		t.Errorf("expected ~30 day linkedin cooldown, got %.1f days", liDays)
	}
	if contact.PhoneCooldownUntil != nil {
		t.Error("phone cooldown should not be set for linkedin channel")
	}
}

// TestHardNoCascade tests the triple suppression, company suppression,
// and the cross-client domain cascade.
func TestHardNoCascade(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "jane@acme.com", "client-a", "acme.com")
	mustInsert(t, store, "bob@acme.com", "client-b", "acme.com")
	mustInsert(t, store, "eve@other.io", "client-a", "other.io")
	advance(t, m, "jane@acme.com", "client-a", types.StatusInSequence)

	if err := m.Transition(ctx, "jane@acme.com", "client-a", types.StatusRepliedHardNo, TransitionOptions{}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	jane, err := store.GetContact(ctx, "jane@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if !jane.EmailSuppressed || !jane.LinkedInSuppressed || !jane.PhoneSuppressed {
		t.Errorf("expected all channels suppressed, got %+v", jane)
	}

	company, err := store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if !company.CompanySuppressed || company.CompanyStatus != types.CompanySuppressed {
		t.Errorf("expected suppressed company, got %+v", company)
	}
	if company.SuppressedReason != "hard_no_received" {
		t.Errorf("unexpected suppression reason: %q", company.SuppressedReason)
	}

	// The cascade takes email from every contact at the domain, across
	// clients, but not from other domains.
	bob, err := store.GetContact(ctx, "bob@acme.com", "client-b")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if !bob.EmailSuppressed {
		t.Error("expected cascade to suppress bob's email channel")
	}
	if bob.LinkedInSuppressed || bob.PhoneSuppressed {
		t.Error("cascade should only touch the email channel")
	}
	eve, err := store.GetContact(ctx, "eve@other.io", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if eve.EmailSuppressed {
		t.Error("cascade leaked to another domain")
	}
}

// TestBouncedSuppressesEmailOnly tests the bounce side effect.
func TestBouncedSuppressesEmailOnly(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "jane@acme.com", "client-a", "acme.com")
	advance(t, m, "jane@acme.com", "client-a", types.StatusInSequence)

	if err := m.Transition(ctx, "jane@acme.com", "client-a", types.StatusBounced, TransitionOptions{}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	contact, err := store.GetContact(ctx, "jane@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if !contact.EmailSuppressed {
		t.Error("expected email suppressed on bounce")
	}
	if contact.LinkedInSuppressed || contact.PhoneSuppressed {
		t.Error("bounce should leave other channels open")
	}
	company, err := store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.CompanySuppressed {
		t.Error("bounce should not suppress the company")
	}
}

// TestCompanyCounterDerivation tests the in-sequence counters and the
// active/cooling status swings.
func TestCompanyCounterDerivation(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "a@acme.com", "client-a", "acme.com")
	mustInsert(t, store, "b@acme.com", "client-a", "acme.com")

	advance(t, m, "a@acme.com", "client-a", types.StatusInSequence)
	advance(t, m, "b@acme.com", "client-a", types.StatusInSequence)

	company, err := store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.ContactsInSequence != 2 || company.ContactsTouched != 2 {
		t.Errorf("expected counters 2/2, got %d/%d", company.ContactsInSequence, company.ContactsTouched)
	}
	if company.CompanyStatus != types.CompanyActive {
		t.Errorf("expected active company, got %s", company.CompanyStatus)
	}
	if company.LastContactDate == nil {
		t.Error("expected last_contact_date to be stamped")
	}

	advance(t, m, "a@acme.com", "client-a", types.StatusCompletedNoResponse)
	company, err = store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.ContactsInSequence != 1 {
		t.Errorf("expected counter 1 after one exit, got %d", company.ContactsInSequence)
	}
	if company.CompanyStatus != types.CompanyActive {
		t.Errorf("company should stay active while one sequence remains, got %s", company.CompanyStatus)
	}

	advance(t, m, "b@acme.com", "client-a", types.StatusCompletedNoResponse)
	company, err = store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if company.ContactsInSequence != 0 {
		t.Errorf("expected counter 0, got %d", company.ContactsInSequence)
	}
	if company.CompanyStatus != types.CompanyCooling {
		t.Errorf("expected cooling company, got %s", company.CompanyStatus)
	}
}

// TestWonCustomer tests the customer promotion on won_customer.
func TestWonCustomer(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "jane@acme.com", "client-a", "acme.com")

	advance(t, m, "jane@acme.com", "client-a",
		types.StatusInSequence, types.StatusRepliedPositive, types.StatusWonCustomer)

	company, err := store.GetCompany(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if !company.IsCustomer || company.CompanyStatus != types.CompanyCustomer {
		t.Errorf("expected customer company, got %+v", company)
	}
	if company.CustomerSince == nil {
		t.Error("expected customer_since to be stamped")
	}
}

// TestProcessExpiredCooldowns tests the retouch sweep.
func TestProcessExpiredCooldowns(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)
	mustInsert(t, store, "done@acme.com", "client-a", "acme.com")
	mustInsert(t, store, "waiting@acme.com", "client-a", "acme.com")

	advance(t, m, "done@acme.com", "client-a", types.StatusInSequence, types.StatusCompletedNoResponse)
	advance(t, m, "waiting@acme.com", "client-a", types.StatusInSequence, types.StatusCompletedNoResponse)

	// Force one cooldown into the past; the other stays live.
	if err := store.UpdateContact(ctx, "done@acme.com", "client-a", types.ContactUpdate{
		EmailCooldownUntil: types.Ptr(time.Now().UTC().Add(-time.Hour)),
	}); err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}

	n, err := m.ProcessExpiredCooldowns(ctx)
	if err != nil {
		t.Fatalf("ProcessExpiredCooldowns failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 contact swept, got %d", n)
	}

	done, err := store.GetContact(ctx, "done@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if done.DispositionStatus != types.StatusRetouchEligible {
		t.Errorf("expected retouch_eligible, got %s", done.DispositionStatus)
	}
	waiting, err := store.GetContact(ctx, "waiting@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if waiting.DispositionStatus != types.StatusCompletedNoResponse {
		t.Errorf("live cooldown should not be swept, got %s", waiting.DispositionStatus)
	}
}

// TestProcessStaleData tests the stale-data sweep with the config
// default horizon.
func TestProcessStaleData(t *testing.T) {
	ctx := context.Background()
	m, store := setupMachine(t)

	stale := &types.Contact{
		Email: "stale@acme.com", ClientID: "client-a", CompanyDomain: "acme.com",
		DataEnrichedAt: types.Ptr(time.Now().UTC().Add(-400 * 24 * time.Hour)),
	}
	if err := store.InsertContact(ctx, stale); err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}
	mustInsert(t, store, "recent@acme.com", "client-a", "acme.com")

	n, err := m.ProcessStaleData(ctx, 0)
	if err != nil {
		t.Fatalf("ProcessStaleData failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 contact flagged, got %d", n)
	}

	got, err := store.GetContact(ctx, "stale@acme.com", "client-a")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.DispositionStatus != types.StatusStaleData {
		t.Errorf("expected stale_data, got %s", got.DispositionStatus)
	}
}
