// Package fill implements the campaign fill engine: fresh/retouch
// blending, per-company caps, and atomic assignment units.
package fill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/deconflict"
	"github.com/apqllyqn/lead-disposition/internal/state"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// Engine selects eligible contacts and assigns them to campaigns.
type Engine struct {
	store storage.Store
	sm    *state.Machine
	cfg   *config.Config
	log   *slog.Logger
}

// New builds a fill engine over the given store.
func New(store storage.Store, cfg *config.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store: store,
		sm:    state.New(store, cfg, log),
		cfg:   cfg,
		log:   log,
	}
}

// Fill selects and assigns contacts for one campaign fill request.
// Shortfalls are warnings in the success shape, never errors.
func (e *Engine) Fill(ctx context.Context, req types.FillRequest) (*types.FillResult, error) {
	ratio := e.cfg.FreshRetouchRatio
	if req.FreshRatio != nil {
		ratio = *req.FreshRatio
	}
	maxPerCompany := req.MaxPerCompany
	if maxPerCompany <= 0 {
		maxPerCompany = e.cfg.MaxContactsPerCompany
	}
	channel := req.Channel
	if !channel.IsValid() {
		channel = types.ChannelEmail
	}

	result := &types.FillResult{
		CampaignID:     req.CampaignID,
		ClientID:       req.ClientID,
		TotalRequested: req.Volume,
	}

	freshTarget := int(float64(req.Volume) * ratio)
	retouchTarget := req.Volume - freshTarget

	// Over-fetch 2x so the per-company cap can drop rows without a
	// second round trip.
	fresh, err := e.store.QueryEligibleContacts(ctx, types.EligibilityQuery{
		ClientID:      req.ClientID,
		Channel:       channel,
		Statuses:      []types.DispositionStatus{types.StatusFresh},
		TitleKeywords: req.TitleKeywords,
		Limit:         freshTarget * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("fresh eligibility query failed: %w", err)
	}

	retouch, err := e.store.QueryEligibleContacts(ctx, types.EligibilityQuery{
		ClientID:      req.ClientID,
		Channel:       channel,
		Statuses:      []types.DispositionStatus{types.StatusRetouchEligible},
		TitleKeywords: req.TitleKeywords,
		Limit:         retouchTarget * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("retouch eligibility query failed: %w", err)
	}

	if len(fresh) < freshTarget {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Insufficient fresh leads: requested %d, found %d", freshTarget, len(fresh)))
	}

	selectedFresh := applyCompanyCap(fresh, maxPerCompany, nil)
	companyCounts := countByCompany(selectedFresh)
	selectedRetouch := applyCompanyCap(retouch, maxPerCompany, companyCounts)

	var selected []*types.Contact
	selected = append(selected, head(selectedFresh, freshTarget)...)
	selected = append(selected, head(selectedRetouch, req.Volume-len(selected))...)
	if len(selected) < req.Volume {
		// Top up from the fresh remainder.
		rest := selectedFresh[min(freshTarget, len(selectedFresh)):]
		selected = append(selected, head(rest, req.Volume-len(selected))...)
	}

	if len(selected) < req.Volume {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Volume shortfall: requested %d, assigned %d", req.Volume, len(selected)))
	}

	companiesTouched := make(map[string]struct{})
	for _, contact := range selected {
		wasFresh := contact.DispositionStatus == types.StatusFresh
		if err := e.assign(ctx, contact, req, channel); err != nil {
			return nil, fmt.Errorf("assignment failed for %s: %w", contact.Email, err)
		}
		companiesTouched[contact.CompanyDomain] = struct{}{}
		if wasFresh {
			result.FreshCount++
		} else {
			result.RetouchCount++
		}
	}

	result.TotalAssigned = len(selected)
	result.CompaniesTouched = len(companiesTouched)
	result.Contacts = selected

	e.log.Info("campaign fill complete",
		"campaign", req.CampaignID, "client", req.ClientID,
		"requested", req.Volume, "assigned", result.TotalAssigned,
		"fresh", result.FreshCount, "retouch", result.RetouchCount)
	return result, nil
}

// assign is one atomic assignment unit: transition to in_sequence,
// stamp the channel, append the assignment row, and first-claim the
// company if unowned, all inside one transaction.
func (e *Engine) assign(ctx context.Context, contact *types.Contact, req types.FillRequest, channel types.Channel) error {
	return e.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		if err := e.sm.TransitionTx(ctx, tx, contact.Email, contact.ClientID, types.StatusInSequence, state.TransitionOptions{
			Reason:      "assigned_to_campaign:" + req.CampaignID,
			TriggeredBy: types.TriggerCampaignFill,
			CampaignID:  req.CampaignID,
			Channel:     channel,
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		upd := types.ContactUpdate{SequenceCount: types.Ptr(contact.SequenceCount + 1)}
		upd.SetLastContacted(channel, now)
		if err := tx.UpdateContact(ctx, contact.Email, contact.ClientID, upd); err != nil {
			return err
		}

		if err := tx.AppendAssignment(ctx, &types.CampaignAssignment{
			ContactEmail:    contact.Email,
			ContactClientID: contact.ClientID,
			CampaignID:      req.CampaignID,
			ClientID:        req.ClientID,
			Channel:         channel,
			AssignedAt:      now,
		}); err != nil {
			return err
		}

		company, err := tx.GetCompanyForUpdate(ctx, contact.CompanyDomain)
		if err != nil {
			return err
		}
		if !company.Owned() {
			expiry := now.Add(time.Duration(e.cfg.OwnershipDurationMonths) * 30 * 24 * time.Hour)
			if _, err := deconflict.ClaimTx(ctx, tx, contact.CompanyDomain, req.ClientID, expiry); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyCompanyCap is a greedy single pass preserving eligibility order:
// a contact is skipped iff its domain's running count has reached the
// cap. Existing counts seed the counters (fresh picks constrain the
// retouch pass).
func applyCompanyCap(contacts []*types.Contact, maxPerCompany int, existing map[string]int) []*types.Contact {
	counts := make(map[string]int, len(existing))
	for k, v := range existing {
		counts[k] = v
	}
	var out []*types.Contact
	for _, c := range contacts {
		if counts[c.CompanyDomain] >= maxPerCompany {
			continue
		}
		out = append(out, c)
		counts[c.CompanyDomain]++
	}
	return out
}

func countByCompany(contacts []*types.Contact) map[string]int {
	counts := make(map[string]int)
	for _, c := range contacts {
		counts[c.CompanyDomain]++
	}
	return counts
}

func head(contacts []*types.Contact, n int) []*types.Contact {
	if n <= 0 {
		return nil
	}
	if n > len(contacts) {
		n = len(contacts)
	}
	return contacts[:n]
}
