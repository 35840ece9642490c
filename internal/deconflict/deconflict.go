// Package deconflict implements first-mover company ownership.
//
// The first client to contact a company domain gains exclusive
// targeting for the configured ownership duration. Expired ownership is
// only released by the sweep, and only once the last in-sequence
// contact has left.
package deconflict

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// Deconflictor manages company ownership checks and mutations.
type Deconflictor struct {
	store storage.Store
	cfg   *config.Config
	log   *slog.Logger
}

// New builds a deconflictor over the given store.
func New(store storage.Store, cfg *config.Config, log *slog.Logger) *Deconflictor {
	if log == nil {
		log = slog.Default()
	}
	return &Deconflictor{store: store, cfg: cfg, log: log}
}

// expiry computes an ownership expiry from now. Months are measured as
// 30-day blocks.
func (d *Deconflictor) expiry(now time.Time) time.Time {
	return now.Add(time.Duration(d.cfg.OwnershipDurationMonths) * 30 * 24 * time.Hour)
}

// CanTarget reports whether a client may target a company domain:
// company absent, unowned, owned by this client, or expired with no
// active sequences.
func (d *Deconflictor) CanTarget(ctx context.Context, domain, clientID string) (bool, error) {
	company, err := d.store.GetCompany(ctx, domain)
	if errors.Is(err, storage.ErrCompanyNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return canTarget(company, clientID, time.Now()), nil
}

func canTarget(company *types.Company, clientID string, now time.Time) bool {
	if !company.Owned() {
		return true
	}
	if company.ClientOwnerID == clientID {
		return true
	}
	return company.OwnershipExpired(now) && company.ContactsInSequence == 0
}

// Claim takes ownership for a client. Returns true iff the company
// exists and is unowned or already owned by the same client.
func (d *Deconflictor) Claim(ctx context.Context, domain, clientID string) (bool, error) {
	claimed := false
	err := d.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		ok, err := ClaimTx(ctx, tx, domain, clientID, d.expiry(time.Now().UTC()))
		claimed = ok
		return err
	})
	if errors.Is(err, storage.ErrCompanyNotFound) {
		return false, nil
	}
	return claimed, err
}

// ClaimTx performs a claim inside an already-open transaction, for the
// fill engine's assignment unit. The caller supplies the expiry so the
// whole assignment shares one clock reading.
func ClaimTx(ctx context.Context, tx storage.Tx, domain, clientID string, expiresAt time.Time) (bool, error) {
	company, err := tx.GetCompanyForUpdate(ctx, domain)
	if err != nil {
		return false, err
	}
	if company.Owned() && company.ClientOwnerID != clientID {
		return false, nil
	}

	now := time.Now().UTC()
	if err := tx.SetOwnership(ctx, domain, clientID, now, expiresAt); err != nil {
		return false, err
	}
	if err := tx.AppendOwnershipChange(ctx, &types.OwnershipChange{
		CompanyDomain:   domain,
		PreviousOwnerID: company.ClientOwnerID,
		NewOwnerID:      clientID,
		ChangeReason:    types.ReasonFirstClaim,
		ChangedAt:       now,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// Release clears ownership (operator action). Returns true iff the
// company existed and was owned.
func (d *Deconflictor) Release(ctx context.Context, domain string) (bool, error) {
	released := false
	err := d.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		company, err := tx.GetCompanyForUpdate(ctx, domain)
		if err != nil {
			return err
		}
		if !company.Owned() {
			return nil
		}
		if err := tx.ClearOwnership(ctx, domain); err != nil {
			return err
		}
		if err := tx.AppendOwnershipChange(ctx, &types.OwnershipChange{
			CompanyDomain:   domain,
			PreviousOwnerID: company.ClientOwnerID,
			ChangeReason:    types.ReasonManualRelease,
		}); err != nil {
			return err
		}
		released = true
		return nil
	})
	if errors.Is(err, storage.ErrCompanyNotFound) {
		return false, nil
	}
	return released, err
}

// Transfer rewrites ownership to a different client (operator action),
// with a fresh expiry computed from now.
func (d *Deconflictor) Transfer(ctx context.Context, domain, newClientID string) (bool, error) {
	transferred := false
	err := d.store.RunInTransaction(ctx, func(tx storage.Tx) error {
		company, err := tx.GetCompanyForUpdate(ctx, domain)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := tx.SetOwnership(ctx, domain, newClientID, now, d.expiry(now)); err != nil {
			return err
		}
		if err := tx.AppendOwnershipChange(ctx, &types.OwnershipChange{
			CompanyDomain:   domain,
			PreviousOwnerID: company.ClientOwnerID,
			NewOwnerID:      newClientID,
			ChangeReason:    types.ReasonAdminTransfer,
			ChangedAt:       now,
		}); err != nil {
			return err
		}
		transferred = true
		return nil
	})
	if errors.Is(err, storage.ErrCompanyNotFound) {
		return false, nil
	}
	return transferred, err
}

// SweepExpired releases ownership for every company whose expiry has
// passed and that has no contacts in sequence. This is the only
// unattended release path.
func (d *Deconflictor) SweepExpired(ctx context.Context) (int, error) {
	expired, err := d.store.ExpiredOwnerships(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, company := range expired {
		err := d.store.RunInTransaction(ctx, func(tx storage.Tx) error {
			if err := tx.ClearOwnership(ctx, company.Domain); err != nil {
				return err
			}
			return tx.AppendOwnershipChange(ctx, &types.OwnershipChange{
				CompanyDomain:   company.Domain,
				PreviousOwnerID: company.ClientOwnerID,
				ChangeReason:    types.ReasonExpired,
			})
		})
		if err != nil {
			return count, err
		}
		d.log.Info("ownership expired", "domain", company.Domain, "previous_owner", company.ClientOwnerID)
		count++
	}
	return count, nil
}
