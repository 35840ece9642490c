package waterfall

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/provider"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// LeadToContact maps an external lead to a fresh internal contact.
// Returns nil when the lead has no usable email address.
func LeadToContact(lead provider.Lead, clientID string, now time.Time) *types.Contact {
	email := strings.TrimSpace(strings.ToLower(lead.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil
	}

	domain := lead.CompanyDomain
	if domain == "" {
		_, domain, _ = strings.Cut(email, "@")
	}

	return &types.Contact{
		Email:             email,
		ClientID:          clientID,
		CompanyDomain:     strings.TrimSpace(strings.ToLower(domain)),
		FirstName:         lead.FirstName,
		LastName:          lead.LastName,
		LastKnownTitle:    lead.Title,
		LastKnownCompany:  lead.CompanyName,
		DispositionStatus: types.StatusFresh,
		DataEnrichedAt:    &now,
		SourceSystem:      lead.SourceProvider,
		SourceID:          lead.SourceID,
	}
}

// writeBack persists externally sourced leads. Existing email plus
// client pairs are left untouched and counted as duplicates.
func writeBack(ctx context.Context, store storage.Store, leads []provider.Lead, clientID string, log *slog.Logger) *types.WriteBackResult {
	result := &types.WriteBackResult{TotalProcessed: len(leads)}

	now := time.Now().UTC()
	var contacts []*types.Contact
	for _, lead := range leads {
		contact := LeadToContact(lead, clientID, now)
		if contact == nil {
			result.InvalidSkipped++
			continue
		}
		contacts = append(contacts, contact)
	}
	if len(contacts) == 0 {
		return result
	}

	inserted, err := store.BulkInsertContacts(ctx, contacts)
	if err != nil {
		log.Error("write-back failed", "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("Bulk insert failed: %v", err))
		return result
	}
	result.NewInserted = inserted
	result.DuplicatesSkipped = len(contacts) - inserted
	return result
}
