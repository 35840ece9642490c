// Package storage defines the persistent store contract for the
// disposition system.
//
// Concrete implementations live in the sqlite and postgres sub-packages.
// This package holds the interface and sentinel errors referenced by
// both drivers and their consumers (state machine, fill engine, bridge).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/types"
)

// ErrNotFound is returned when a requested contact does not exist.
var ErrNotFound = errors.New("contact not found")

// ErrCompanyNotFound is returned when a requested company does not exist.
var ErrCompanyNotFound = errors.New("company not found")

// ErrNoPendingJobs is returned by ClaimPendingJob when the intake queue
// has no claimable rows.
var ErrNoPendingJobs = errors.New("no pending jobs")

// Store is the full persistence contract, satisfied by both the sqlite
// and postgres drivers. Consumers depend on this interface rather than
// on a concrete type so that drivers (and instrumented wrappers) can be
// substituted.
type Store interface {
	Tx

	// Bulk ingestion with duplicate-skip semantics on (email, client_id).
	// Returns the number of rows actually inserted. Every new domain
	// lazily creates a company row at default values.
	BulkInsertContacts(ctx context.Context, contacts []*types.Contact) (int, error)

	// Eligibility is the single parameterised read behind campaign
	// fills. Results are ordered fresh-first, then data_enriched_at
	// descending (nulls last), then sequence_count ascending.
	QueryEligibleContacts(ctx context.Context, q types.EligibilityQuery) ([]*types.Contact, error)

	// Maintenance selections.
	ExpiredCooldownContacts(ctx context.Context) ([]*types.Contact, error)
	StaleContacts(ctx context.Context, months int) ([]*types.Contact, error)
	ExpiredOwnerships(ctx context.Context) ([]*types.Company, error)

	// TAM aggregates.
	TAMPools(ctx context.Context, clientID *string) (types.PoolCounts, error)
	BurnRateWeekly(ctx context.Context, clientID *string) (float64, error)
	UpsertTAMSnapshot(ctx context.Context, snap *types.TAMSnapshot) error
	GetSnapshots(ctx context.Context, clientID *string, days int) ([]*types.TAMSnapshot, error)
	DistinctClients(ctx context.Context) ([]string, error)

	// Operator views.
	ListContacts(ctx context.Context, f types.ContactListFilter) ([]*types.Contact, int, error)
	ListOwnedCompanies(ctx context.Context, clientID string) ([]*types.Company, error)
	GetContactHistory(ctx context.Context, email, clientID string, limit int) ([]*types.DispositionHistory, error)

	// Bridge intake queue. ClaimPendingJob atomically claims the oldest
	// pending row (skipping rows locked by other workers) and flips it
	// to processing.
	ClaimPendingJob(ctx context.Context) (*types.PullJob, error)
	CompleteJob(ctx context.Context, jobID string, resultJSON []byte) error
	FailJob(ctx context.Context, jobID string, message string) error

	// RunInTransaction executes fn atomically: every write lands or
	// none do. On error or panic the transaction is rolled back.
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Lifecycle.
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of row-level operations available both directly on the
// store (auto-committed) and inside RunInTransaction (atomic).
type Tx interface {
	GetContact(ctx context.Context, email, clientID string) (*types.Contact, error)
	GetContactsByDomain(ctx context.Context, domain string) ([]*types.Contact, error)
	InsertContact(ctx context.Context, contact *types.Contact) error
	UpdateContact(ctx context.Context, email, clientID string, upd types.ContactUpdate) error

	GetCompany(ctx context.Context, domain string) (*types.Company, error)
	// GetCompanyForUpdate reads the company row with a write lock where
	// the driver supports one, serialising concurrent counter updates.
	GetCompanyForUpdate(ctx context.Context, domain string) (*types.Company, error)
	EnsureCompany(ctx context.Context, domain string) error
	UpdateCompany(ctx context.Context, domain string, upd types.CompanyUpdate) error

	// Ownership mutation is explicit; there is no free-form setter.
	SetOwnership(ctx context.Context, domain, ownerID string, ownedAt, expiresAt time.Time) error
	ClearOwnership(ctx context.Context, domain string) error

	AppendHistory(ctx context.Context, h *types.DispositionHistory) error
	AppendOwnershipChange(ctx context.Context, oc *types.OwnershipChange) error
	AppendAssignment(ctx context.Context, a *types.CampaignAssignment) error
}
