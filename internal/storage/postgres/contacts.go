package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

const contactColumns = `email, client_id, company_domain, first_name, last_name,
	last_known_title, last_known_company, disposition_status, disposition_updated_at,
	email_last_contacted, linkedin_last_contacted, phone_last_contacted,
	email_cooldown_until, linkedin_cooldown_until, phone_cooldown_until,
	email_suppressed, linkedin_suppressed, phone_suppressed,
	data_enriched_at, sequence_count, source_system, source_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(r rowScanner) (*types.Contact, error) {
	var c types.Contact
	var dispUpdated, emailLast, liLast, phoneLast sql.NullTime
	var emailCool, liCool, phoneCool, enriched sql.NullTime

	err := r.Scan(
		&c.Email, &c.ClientID, &c.CompanyDomain, &c.FirstName, &c.LastName,
		&c.LastKnownTitle, &c.LastKnownCompany, &c.DispositionStatus, &dispUpdated,
		&emailLast, &liLast, &phoneLast,
		&emailCool, &liCool, &phoneCool,
		&c.EmailSuppressed, &c.LinkedInSuppressed, &c.PhoneSuppressed,
		&enriched, &c.SequenceCount, &c.SourceSystem, &c.SourceID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.DispositionUpdatedAt = timePtr(dispUpdated)
	c.EmailLastContacted = timePtr(emailLast)
	c.LinkedInLastContacted = timePtr(liLast)
	c.PhoneLastContacted = timePtr(phoneLast)
	c.EmailCooldownUntil = timePtr(emailCool)
	c.LinkedInCooldownUntil = timePtr(liCool)
	c.PhoneCooldownUntil = timePtr(phoneCool)
	c.DataEnrichedAt = timePtr(enriched)
	return &c, nil
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func bindTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanContactRows(rows *sql.Rows) ([]*types.Contact, error) {
	defer func() { _ = rows.Close() }()
	var out []*types.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetContact fetches one contact by its (email, client_id) key.
func (q *queries) GetContact(ctx context.Context, email, clientID string) (*types.Contact, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE email = $1 AND client_id = $2`,
		email, clientID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

// GetContactsByDomain fetches every contact at a company domain, across
// all clients.
func (q *queries) GetContactsByDomain(ctx context.Context, domain string) ([]*types.Contact, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE company_domain = $1`, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts by domain: %w", err)
	}
	return scanContactRows(rows)
}

// InsertContact inserts a single contact, lazily creating its company
// and incrementing the company's contacts_total counter.
func (q *queries) InsertContact(ctx context.Context, c *types.Contact) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.DispositionStatus == "" {
		c.DispositionStatus = types.StatusFresh
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := q.EnsureCompany(ctx, c.CompanyDomain); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO contacts (
			email, client_id, company_domain, first_name, last_name,
			last_known_title, last_known_company, disposition_status,
			disposition_updated_at, data_enriched_at, sequence_count,
			source_system, source_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.Email, c.ClientID, c.CompanyDomain, c.FirstName, c.LastName,
		c.LastKnownTitle, c.LastKnownCompany, string(c.DispositionStatus),
		now, bindTimePtr(c.DataEnrichedAt), c.SequenceCount,
		c.SourceSystem, c.SourceID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	_, err = q.db.ExecContext(ctx,
		`UPDATE companies SET contacts_total = contacts_total + 1, updated_at = NOW() WHERE domain = $1`,
		c.CompanyDomain)
	if err != nil {
		return fmt.Errorf("failed to bump contacts_total: %w", err)
	}
	return nil
}

// UpdateContact applies a typed partial update. Always bumps updated_at.
func (q *queries) UpdateContact(ctx context.Context, email, clientID string, upd types.ContactUpdate) error {
	if upd.Empty() {
		return nil
	}

	var sets []string
	var args []any
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.DispositionStatus != nil {
		add("disposition_status", string(*upd.DispositionStatus))
	}
	if upd.DispositionUpdatedAt != nil {
		add("disposition_updated_at", upd.DispositionUpdatedAt.UTC())
	}
	if upd.EmailCooldownUntil != nil {
		add("email_cooldown_until", upd.EmailCooldownUntil.UTC())
	}
	if upd.LinkedInCooldownUntil != nil {
		add("linkedin_cooldown_until", upd.LinkedInCooldownUntil.UTC())
	}
	if upd.PhoneCooldownUntil != nil {
		add("phone_cooldown_until", upd.PhoneCooldownUntil.UTC())
	}
	if upd.EmailSuppressed != nil {
		add("email_suppressed", *upd.EmailSuppressed)
	}
	if upd.LinkedInSuppressed != nil {
		add("linkedin_suppressed", *upd.LinkedInSuppressed)
	}
	if upd.PhoneSuppressed != nil {
		add("phone_suppressed", *upd.PhoneSuppressed)
	}
	if upd.EmailLastContacted != nil {
		add("email_last_contacted", upd.EmailLastContacted.UTC())
	}
	if upd.LinkedInLastContacted != nil {
		add("linkedin_last_contacted", upd.LinkedInLastContacted.UTC())
	}
	if upd.PhoneLastContacted != nil {
		add("phone_last_contacted", upd.PhoneLastContacted.UTC())
	}
	if upd.SequenceCount != nil {
		add("sequence_count", *upd.SequenceCount)
	}
	if upd.DataEnrichedAt != nil {
		add("data_enriched_at", upd.DataEnrichedAt.UTC())
	}
	add("updated_at", time.Now().UTC())

	args = append(args, email, clientID)
	res, err := q.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE contacts SET %s WHERE email = $%d AND client_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args)),
		args...)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// BulkInsertContacts inserts contacts skipping duplicates on the
// (email, client_id) key. The whole batch lands in one transaction.
func (s *Store) BulkInsertContacts(ctx context.Context, contacts []*types.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	inserted := 0
	err := s.RunInTransaction(ctx, func(tx storage.Tx) error {
		t := tx.(*txStore)
		now := time.Now().UTC()
		for _, c := range contacts {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("validation failed for %s: %w", c.Email, err)
			}
			if c.DispositionStatus == "" {
				c.DispositionStatus = types.StatusFresh
			}
			if err := t.EnsureCompany(ctx, c.CompanyDomain); err != nil {
				return err
			}
			res, err := t.db.ExecContext(ctx, `
				INSERT INTO contacts (
					email, client_id, company_domain, first_name, last_name,
					last_known_title, last_known_company, disposition_status,
					disposition_updated_at, data_enriched_at, sequence_count,
					source_system, source_id, created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
				ON CONFLICT (email, client_id) DO NOTHING`,
				c.Email, c.ClientID, c.CompanyDomain, c.FirstName, c.LastName,
				c.LastKnownTitle, c.LastKnownCompany, string(c.DispositionStatus),
				now, bindTimePtr(c.DataEnrichedAt), c.SequenceCount,
				c.SourceSystem, c.SourceID, now, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert contact %s: %w", c.Email, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n > 0 {
				if _, err := t.db.ExecContext(ctx,
					`UPDATE companies SET contacts_total = contacts_total + 1, updated_at = NOW() WHERE domain = $1`,
					c.CompanyDomain); err != nil {
					return fmt.Errorf("failed to bump contacts_total: %w", err)
				}
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
