package sqlite

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
	var status string
	var dispUpdated, emailLast, liLast, phoneLast sql.NullString
	var emailCool, liCool, phoneCool, enriched sql.NullString
	var emailSup, liSup, phoneSup int
	var createdAt, updatedAt string

	err := r.Scan(
		&c.Email, &c.ClientID, &c.CompanyDomain, &c.FirstName, &c.LastName,
		&c.LastKnownTitle, &c.LastKnownCompany, &status, &dispUpdated,
		&emailLast, &liLast, &phoneLast,
		&emailCool, &liCool, &phoneCool,
		&emailSup, &liSup, &phoneSup,
		&enriched, &c.SequenceCount, &c.SourceSystem, &c.SourceID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.DispositionStatus = types.DispositionStatus(status)
	c.EmailSuppressed = emailSup != 0
	c.LinkedInSuppressed = liSup != 0
	c.PhoneSuppressed = phoneSup != 0

	for _, p := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{dispUpdated, &c.DispositionUpdatedAt},
		{emailLast, &c.EmailLastContacted},
		{liLast, &c.LinkedInLastContacted},
		{phoneLast, &c.PhoneLastContacted},
		{emailCool, &c.EmailCooldownUntil},
		{liCool, &c.LinkedInCooldownUntil},
		{phoneCool, &c.PhoneCooldownUntil},
		{enriched, &c.DataEnrichedAt},
	} {
		t, err := scanTimePtr(p.src)
		if err != nil {
			return nil, err
		}
		*p.dst = t
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
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
		`SELECT `+contactColumns+` FROM contacts WHERE email = ? AND client_id = ?`,
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
// all clients (the hard-no cascade needs the cross-client view).
func (q *queries) GetContactsByDomain(ctx context.Context, domain string) ([]*types.Contact, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE company_domain = ?`, domain)
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Email, c.ClientID, c.CompanyDomain, c.FirstName, c.LastName,
		c.LastKnownTitle, c.LastKnownCompany, string(c.DispositionStatus),
		fmtTime(now), fmtTimePtr(c.DataEnrichedAt), c.SequenceCount,
		c.SourceSystem, c.SourceID, fmtTime(now), fmtTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	_, err = q.db.ExecContext(ctx,
		`UPDATE companies SET contacts_total = contacts_total + 1, updated_at = ? WHERE domain = ?`,
		fmtTime(now), c.CompanyDomain)
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
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if upd.DispositionStatus != nil {
		add("disposition_status", string(*upd.DispositionStatus))
	}
	if upd.DispositionUpdatedAt != nil {
		add("disposition_updated_at", fmtTime(*upd.DispositionUpdatedAt))
	}
	if upd.EmailCooldownUntil != nil {
		add("email_cooldown_until", fmtTime(*upd.EmailCooldownUntil))
	}
	if upd.LinkedInCooldownUntil != nil {
		add("linkedin_cooldown_until", fmtTime(*upd.LinkedInCooldownUntil))
	}
	if upd.PhoneCooldownUntil != nil {
		add("phone_cooldown_until", fmtTime(*upd.PhoneCooldownUntil))
	}
	if upd.EmailSuppressed != nil {
		add("email_suppressed", boolInt(*upd.EmailSuppressed))
	}
	if upd.LinkedInSuppressed != nil {
		add("linkedin_suppressed", boolInt(*upd.LinkedInSuppressed))
	}
	if upd.PhoneSuppressed != nil {
		add("phone_suppressed", boolInt(*upd.PhoneSuppressed))
	}
	if upd.EmailLastContacted != nil {
		add("email_last_contacted", fmtTime(*upd.EmailLastContacted))
	}
	if upd.LinkedInLastContacted != nil {
		add("linkedin_last_contacted", fmtTime(*upd.LinkedInLastContacted))
	}
	if upd.PhoneLastContacted != nil {
		add("phone_last_contacted", fmtTime(*upd.PhoneLastContacted))
	}
	if upd.SequenceCount != nil {
		add("sequence_count", *upd.SequenceCount)
	}
	if upd.DataEnrichedAt != nil {
		add("data_enriched_at", fmtTime(*upd.DataEnrichedAt))
	}
	add("updated_at", fmtTime(time.Now()))

	args = append(args, email, clientID)
	res, err := q.db.ExecContext(ctx,
		`UPDATE contacts SET `+strings.Join(sets, ", ")+` WHERE email = ? AND client_id = ?`,
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
				INSERT OR IGNORE INTO contacts (
					email, client_id, company_domain, first_name, last_name,
					last_known_title, last_known_company, disposition_status,
					disposition_updated_at, data_enriched_at, sequence_count,
					source_system, source_id, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.Email, c.ClientID, c.CompanyDomain, c.FirstName, c.LastName,
				c.LastKnownTitle, c.LastKnownCompany, string(c.DispositionStatus),
				fmtTime(now), fmtTimePtr(c.DataEnrichedAt), c.SequenceCount,
				c.SourceSystem, c.SourceID, fmtTime(now), fmtTime(now),
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
					`UPDATE companies SET contacts_total = contacts_total + 1, updated_at = ? WHERE domain = ?`,
					fmtTime(now), c.CompanyDomain); err != nil {
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
