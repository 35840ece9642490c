package waterfall

import (
	"testing"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/provider"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// TestLeadToContact tests the lead mapping: normalization, domain
// fallback, and provenance fields.
func TestLeadToContact(t *testing.T) {
	now := time.Now().UTC()
	lead := provider.Lead{
		Email:          "  Jane.Doe@Acme.COM ",
		FirstName:      "Jane",
		LastName:       "Doe",
		Title:          "CTO",
		CompanyName:    "Acme",
		SourceProvider: "ai_ark",
		SourceID:       "p-123",
	}

	c := LeadToContact(lead, "client-a", now)
	if c == nil {
		t.Fatal("expected a contact")
	}
	if c.Email != "jane.doe@acme.com" {
		t.Errorf("email not normalized: %q", c.Email)
	}
	if c.CompanyDomain != "acme.com" {
		t.Errorf("expected domain derived from email, got %q", c.CompanyDomain)
	}
	if c.DispositionStatus != types.StatusFresh {
		t.Errorf("expected fresh status, got %s", c.DispositionStatus)
	}
	if c.DataEnrichedAt == nil || !c.DataEnrichedAt.Equal(now) {
		t.Errorf("expected enrichment stamp %v, got %v", now, c.DataEnrichedAt)
	}
	if c.SourceSystem != "ai_ark" || c.SourceID != "p-123" {
		t.Errorf("provenance lost: %q/%q", c.SourceSystem, c.SourceID)
	}

	// An explicit provider domain wins over the email domain.
	lead.CompanyDomain = "Acme.io"
	c = LeadToContact(lead, "client-a", now)
	if c.CompanyDomain != "acme.io" {
		t.Errorf("expected explicit domain, got %q", c.CompanyDomain)
	}
}

// TestLeadToContactInvalid tests that unusable emails map to nil.
func TestLeadToContactInvalid(t *testing.T) {
	now := time.Now().UTC()
	for _, email := range []string{"", "   ", "not-an-email"} {
		if c := LeadToContact(provider.Lead{Email: email}, "client-a", now); c != nil {
			t.Errorf("expected nil for %q, got %+v", email, c)
		}
	}
}
