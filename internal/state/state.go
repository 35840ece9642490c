// Package state implements the contact disposition state machine.
//
// A transition validates the move against the legal transition map,
// writes the contact's new status plus cooldown and suppression side
// effects, appends a history row, and derives the owning company's
// state, all inside one store transaction.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// TransitionError reports an illegal transition attempt, carrying the
// current state, the requested state, and the allowed set.
type TransitionError struct {
	Current   types.DispositionStatus
	Requested types.DispositionStatus
	Allowed   []types.DispositionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s -> %s (allowed from %s: %v)",
		e.Current, e.Requested, e.Current, e.Allowed)
}

// IsIllegalTransition reports whether err is a TransitionError.
func IsIllegalTransition(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// TransitionOptions carries the audit context for a transition.
type TransitionOptions struct {
	Reason      string
	TriggeredBy types.TriggeredBy
	CampaignID  string
	// Channel selects which channel's cooldown applies in addition to
	// the email cooldown. Email is the default; naming linkedin or
	// phone adds that channel's configured flat cooldown.
	Channel types.Channel
}

// Machine validates and effects disposition transitions. It holds no
// mutable state between calls; every check-then-act round-trips through
// the store.
type Machine struct {
	store storage.Store
	cfg   *config.Config
	log   *slog.Logger
}

// New builds a state machine over the given store.
func New(store storage.Store, cfg *config.Config, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	return &Machine{store: store, cfg: cfg, log: log}
}

// Transition runs one transition as its own transactional unit.
func (m *Machine) Transition(ctx context.Context, email, clientID string, target types.DispositionStatus, opts TransitionOptions) error {
	return m.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		return m.TransitionTx(ctx, tx, email, clientID, target, opts)
	})
}

// TransitionTx runs one transition inside an already-open transaction,
// for callers (the fill engine) that bundle a transition with further
// writes into a single atomic unit.
func (m *Machine) TransitionTx(ctx context.Context, tx storage.Tx, email, clientID string, target types.DispositionStatus, opts TransitionOptions) error {
	contact, err := tx.GetContact(ctx, email, clientID)
	if err != nil {
		return err
	}

	current := contact.DispositionStatus
	if current == target {
		// Permitted no-op: no history row, no side effects.
		return nil
	}
	if !current.CanTransitionTo(target) {
		return &TransitionError{
			Current:   current,
			Requested: target,
			Allowed:   types.Transitions[current],
		}
	}

	now := time.Now().UTC()
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = types.TriggerSystem
	}

	upd := types.ContactUpdate{
		DispositionStatus:    &target,
		DispositionUpdatedAt: &now,
	}
	if d := m.cooldownFor(target); d > 0 {
		upd.EmailCooldownUntil = types.Ptr(now.Add(d))
		switch opts.Channel {
		case types.ChannelLinkedIn:
			upd.LinkedInCooldownUntil = types.Ptr(now.Add(days(m.cfg.CooldownLinkedInDays)))
		case types.ChannelPhone:
			upd.PhoneCooldownUntil = types.Ptr(now.Add(days(m.cfg.CooldownPhoneDays)))
		}
	}
	switch target {
	case types.StatusRepliedHardNo:
		upd.EmailSuppressed = types.Ptr(true)
		upd.LinkedInSuppressed = types.Ptr(true)
		upd.PhoneSuppressed = types.Ptr(true)
	case types.StatusBounced, types.StatusUnsubscribed:
		upd.EmailSuppressed = types.Ptr(true)
	}

	if err := tx.UpdateContact(ctx, email, clientID, upd); err != nil {
		return err
	}

	if err := tx.AppendHistory(ctx, &types.DispositionHistory{
		ContactEmail:     email,
		ContactClientID:  clientID,
		PreviousStatus:   current,
		NewStatus:        target,
		TransitionReason: opts.Reason,
		TriggeredBy:      opts.TriggeredBy,
		CampaignID:       opts.CampaignID,
		CreatedAt:        now,
	}); err != nil {
		return err
	}

	if err := m.deriveCompanyState(ctx, tx, contact.CompanyDomain, current, target, now); err != nil {
		return err
	}

	if target == types.StatusRepliedHardNo {
		if err := suppressDomainContacts(ctx, tx, contact.CompanyDomain); err != nil {
			return err
		}
	}
	return nil
}

// cooldownFor maps a transition target to its email cooldown duration;
// zero means no cooldown write.
func (m *Machine) cooldownFor(target types.DispositionStatus) time.Duration {
	switch target {
	case types.StatusCompletedNoResponse:
		return days(m.cfg.CooldownNoResponseDays)
	case types.StatusRepliedNeutral:
		return days(m.cfg.CooldownNeutralReplyDays)
	case types.StatusRepliedNegative:
		return days(m.cfg.CooldownNegativeReplyDays)
	case types.StatusLostClosed:
		return days(m.cfg.CooldownLostClosedDays)
	}
	return 0
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// deriveCompanyState updates the company counters and status from a
// contact transition. The row is read under a write lock so concurrent
// fills serialise on the counter update.
func (m *Machine) deriveCompanyState(ctx context.Context, tx storage.Tx, domain string, previous, target types.DispositionStatus, now time.Time) error {
	company, err := tx.GetCompanyForUpdate(ctx, domain)
	if errors.Is(err, storage.ErrCompanyNotFound) {
		// Contacts always ensure their company on insert; a missing row
		// here means an import bypassed the store, not a transition bug.
		m.log.Warn("company missing during transition", "domain", domain)
		return nil
	}
	if err != nil {
		return err
	}

	var upd types.CompanyUpdate

	switch {
	case target == types.StatusInSequence:
		upd.ContactsInSequence = types.Ptr(company.ContactsInSequence + 1)
		upd.ContactsTouched = types.Ptr(company.ContactsTouched + 1)
		upd.CompanyStatus = types.Ptr(types.CompanyActive)
		upd.LastContactDate = &now
	case previous == types.StatusInSequence:
		n := company.ContactsInSequence - 1
		if n < 0 {
			n = 0
		}
		upd.ContactsInSequence = types.Ptr(n)
		if n == 0 && company.ContactsTouched > 0 {
			upd.CompanyStatus = types.Ptr(types.CompanyCooling)
		}
	}

	if target == types.StatusWonCustomer {
		upd.CompanyStatus = types.Ptr(types.CompanyCustomer)
		upd.IsCustomer = types.Ptr(true)
		upd.CustomerSince = &now
	}

	if target == types.StatusRepliedHardNo {
		upd.CompanyStatus = types.Ptr(types.CompanySuppressed)
		upd.CompanySuppressed = types.Ptr(true)
		upd.SuppressedReason = types.Ptr("hard_no_received")
		upd.SuppressedAt = &now
	}

	if upd.Empty() {
		return nil
	}
	return tx.UpdateCompany(ctx, domain, upd)
}

// suppressDomainContacts is the hard-no cascade: every contact sharing
// the domain, across all clients, loses the email channel.
func suppressDomainContacts(ctx context.Context, tx storage.Tx, domain string) error {
	contacts, err := tx.GetContactsByDomain(ctx, domain)
	if err != nil {
		return err
	}
	for _, c := range contacts {
		if c.EmailSuppressed {
			continue
		}
		if err := tx.UpdateContact(ctx, c.Email, c.ClientID, types.ContactUpdate{
			EmailSuppressed: types.Ptr(true),
		}); err != nil {
			return err
		}
	}
	return nil
}

// ProcessExpiredCooldowns moves contacts whose email cooldown has
// lapsed to retouch_eligible. Illegal transitions are logged and
// skipped; store failures abort the sweep.
func (m *Machine) ProcessExpiredCooldowns(ctx context.Context) (int, error) {
	contacts, err := m.store.ExpiredCooldownContacts(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, c := range contacts {
		err := m.Transition(ctx, c.Email, c.ClientID, types.StatusRetouchEligible, TransitionOptions{
			Reason:      "cooldown_expired",
			TriggeredBy: types.TriggerMaintenance,
		})
		if IsIllegalTransition(err) {
			m.log.Warn("cooldown sweep skipped contact",
				"email", c.Email, "client", c.ClientID, "error", err)
			continue
		}
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ProcessStaleData flags contacts whose enrichment data is older than
// the given number of months (config default when months <= 0).
func (m *Machine) ProcessStaleData(ctx context.Context, months int) (int, error) {
	if months <= 0 {
		months = m.cfg.StaleDataMonths
	}
	contacts, err := m.store.StaleContacts(ctx, months)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, c := range contacts {
		err := m.Transition(ctx, c.Email, c.ClientID, types.StatusStaleData, TransitionOptions{
			Reason:      fmt.Sprintf("data_enriched_at older than %d months", months),
			TriggeredBy: types.TriggerMaintenance,
		})
		if IsIllegalTransition(err) {
			m.log.Warn("stale sweep skipped contact",
				"email", c.Email, "client", c.ClientID, "error", err)
			continue
		}
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
