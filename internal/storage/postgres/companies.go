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

const companyColumns = `domain, name, company_status, company_suppressed,
	suppressed_reason, suppressed_at, contacts_total, contacts_in_sequence,
	contacts_touched, last_contact_date, company_cooldown_until,
	is_customer, customer_since, client_owner_id, client_owned_at,
	ownership_expires_at, created_at, updated_at`

func scanCompany(r rowScanner) (*types.Company, error) {
	var c types.Company
	var suppressedAt, lastContact, cooldown, customerSince sql.NullTime
	var ownerID sql.NullString
	var ownedAt, expiresAt sql.NullTime

	err := r.Scan(
		&c.Domain, &c.Name, &c.CompanyStatus, &c.CompanySuppressed,
		&c.SuppressedReason, &suppressedAt, &c.ContactsTotal, &c.ContactsInSequence,
		&c.ContactsTouched, &lastContact, &cooldown,
		&c.IsCustomer, &customerSince, &ownerID, &ownedAt,
		&expiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ownerID.Valid {
		c.ClientOwnerID = ownerID.String
	}
	c.SuppressedAt = timePtr(suppressedAt)
	c.LastContactDate = timePtr(lastContact)
	c.CompanyCooldownUntil = timePtr(cooldown)
	c.CustomerSince = timePtr(customerSince)
	c.ClientOwnedAt = timePtr(ownedAt)
	c.OwnershipExpiresAt = timePtr(expiresAt)
	return &c, nil
}

func scanCompanyRows(rows *sql.Rows) ([]*types.Company, error) {
	defer func() { _ = rows.Close() }()
	var out []*types.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCompany fetches one company by domain.
func (q *queries) GetCompany(ctx context.Context, domain string) (*types.Company, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE domain = $1`, domain)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// GetCompanyForUpdate reads the company row under FOR UPDATE so that
// concurrent counter updates serialise on the row lock. Only meaningful
// inside RunInTransaction.
func (q *queries) GetCompanyForUpdate(ctx context.Context, domain string) (*types.Company, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE domain = $1 FOR UPDATE`, domain)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company for update: %w", err)
	}
	return c, nil
}

// EnsureCompany lazily creates a company row at default values.
func (q *queries) EnsureCompany(ctx context.Context, domain string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO companies (domain, company_status)
		VALUES ($1, 'fresh')
		ON CONFLICT (domain) DO NOTHING`,
		domain)
	if err != nil {
		return fmt.Errorf("failed to ensure company %s: %w", domain, err)
	}
	return nil
}

// UpdateCompany applies a typed partial update to a company's derived
// state.
func (q *queries) UpdateCompany(ctx context.Context, domain string, upd types.CompanyUpdate) error {
	if upd.Empty() {
		return nil
	}

	var sets []string
	var args []any
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.CompanyStatus != nil {
		add("company_status", string(*upd.CompanyStatus))
	}
	if upd.CompanySuppressed != nil {
		add("company_suppressed", *upd.CompanySuppressed)
	}
	if upd.SuppressedReason != nil {
		add("suppressed_reason", *upd.SuppressedReason)
	}
	if upd.SuppressedAt != nil {
		add("suppressed_at", upd.SuppressedAt.UTC())
	}
	if upd.ContactsInSequence != nil {
		add("contacts_in_sequence", *upd.ContactsInSequence)
	}
	if upd.ContactsTouched != nil {
		add("contacts_touched", *upd.ContactsTouched)
	}
	if upd.LastContactDate != nil {
		add("last_contact_date", upd.LastContactDate.UTC())
	}
	if upd.IsCustomer != nil {
		add("is_customer", *upd.IsCustomer)
	}
	if upd.CustomerSince != nil {
		add("customer_since", upd.CustomerSince.UTC())
	}
	add("updated_at", time.Now().UTC())

	args = append(args, domain)
	res, err := q.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE companies SET %s WHERE domain = $%d`,
		strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrCompanyNotFound
	}
	return nil
}

// SetOwnership writes the three ownership fields together.
func (q *queries) SetOwnership(ctx context.Context, domain, ownerID string, ownedAt, expiresAt time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE companies
		SET client_owner_id = $1, client_owned_at = $2, ownership_expires_at = $3, updated_at = NOW()
		WHERE domain = $4`,
		ownerID, ownedAt.UTC(), expiresAt.UTC(), domain)
	if err != nil {
		return fmt.Errorf("failed to set ownership: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrCompanyNotFound
	}
	return nil
}

// ClearOwnership clears the three ownership fields together.
func (q *queries) ClearOwnership(ctx context.Context, domain string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE companies
		SET client_owner_id = NULL, client_owned_at = NULL, ownership_expires_at = NULL, updated_at = NOW()
		WHERE domain = $1`,
		domain)
	if err != nil {
		return fmt.Errorf("failed to clear ownership: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrCompanyNotFound
	}
	return nil
}

// ExpiredOwnerships returns companies whose ownership expiry has passed
// and that have no contacts in sequence.
func (s *Store) ExpiredOwnerships(ctx context.Context) ([]*types.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+companyColumns+` FROM companies
		WHERE client_owner_id IS NOT NULL
		AND ownership_expires_at IS NOT NULL
		AND ownership_expires_at <= NOW()
		AND contacts_in_sequence = 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired ownerships: %w", err)
	}
	return scanCompanyRows(rows)
}

// ListOwnedCompanies returns every company currently owned by a client.
func (s *Store) ListOwnedCompanies(ctx context.Context, clientID string) ([]*types.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+companyColumns+` FROM companies
		WHERE client_owner_id = $1
		ORDER BY client_owned_at DESC`,
		clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned companies: %w", err)
	}
	return scanCompanyRows(rows)
}
