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

const companyColumns = `domain, name, company_status, company_suppressed,
	suppressed_reason, suppressed_at, contacts_total, contacts_in_sequence,
	contacts_touched, last_contact_date, company_cooldown_until,
	is_customer, customer_since, client_owner_id, client_owned_at,
	ownership_expires_at, created_at, updated_at`

func scanCompany(r rowScanner) (*types.Company, error) {
	var c types.Company
	var status string
	var suppressed, isCustomer int
	var suppressedAt, lastContact, cooldown, customerSince sql.NullString
	var ownerID sql.NullString
	var ownedAt, expiresAt sql.NullString
	var createdAt, updatedAt string

	err := r.Scan(
		&c.Domain, &c.Name, &status, &suppressed,
		&c.SuppressedReason, &suppressedAt, &c.ContactsTotal, &c.ContactsInSequence,
		&c.ContactsTouched, &lastContact, &cooldown,
		&isCustomer, &customerSince, &ownerID, &ownedAt,
		&expiresAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CompanyStatus = types.CompanyStatus(status)
	c.CompanySuppressed = suppressed != 0
	c.IsCustomer = isCustomer != 0
	if ownerID.Valid {
		c.ClientOwnerID = ownerID.String
	}

	for _, p := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{suppressedAt, &c.SuppressedAt},
		{lastContact, &c.LastContactDate},
		{cooldown, &c.CompanyCooldownUntil},
		{customerSince, &c.CustomerSince},
		{ownedAt, &c.ClientOwnedAt},
		{expiresAt, &c.OwnershipExpiresAt},
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
		`SELECT `+companyColumns+` FROM companies WHERE domain = ?`, domain)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// GetCompanyForUpdate reads the company row for a counter update. SQLite
// serialises writers database-wide (BEGIN IMMEDIATE takes the write lock
// up front), so no row-level lock clause is needed here.
func (q *queries) GetCompanyForUpdate(ctx context.Context, domain string) (*types.Company, error) {
	return q.GetCompany(ctx, domain)
}

// EnsureCompany lazily creates a company row at default values. Existing
// rows are left untouched.
func (q *queries) EnsureCompany(ctx context.Context, domain string) error {
	now := fmtTime(time.Now())
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO companies (domain, company_status, created_at, updated_at)
		VALUES (?, 'fresh', ?, ?)`,
		domain, now, now)
	if err != nil {
		return fmt.Errorf("failed to ensure company %s: %w", domain, err)
	}
	return nil
}

// UpdateCompany applies a typed partial update to a company's derived
// state. Ownership fields are not reachable from here.
func (q *queries) UpdateCompany(ctx context.Context, domain string, upd types.CompanyUpdate) error {
	if upd.Empty() {
		return nil
	}

	var sets []string
	var args []any
	add := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if upd.CompanyStatus != nil {
		add("company_status", string(*upd.CompanyStatus))
	}
	if upd.CompanySuppressed != nil {
		add("company_suppressed", boolInt(*upd.CompanySuppressed))
	}
	if upd.SuppressedReason != nil {
		add("suppressed_reason", *upd.SuppressedReason)
	}
	if upd.SuppressedAt != nil {
		add("suppressed_at", fmtTime(*upd.SuppressedAt))
	}
	if upd.ContactsInSequence != nil {
		add("contacts_in_sequence", *upd.ContactsInSequence)
	}
	if upd.ContactsTouched != nil {
		add("contacts_touched", *upd.ContactsTouched)
	}
	if upd.LastContactDate != nil {
		add("last_contact_date", fmtTime(*upd.LastContactDate))
	}
	if upd.IsCustomer != nil {
		add("is_customer", boolInt(*upd.IsCustomer))
	}
	if upd.CustomerSince != nil {
		add("customer_since", fmtTime(*upd.CustomerSince))
	}
	add("updated_at", fmtTime(time.Now()))

	args = append(args, domain)
	res, err := q.db.ExecContext(ctx,
		`UPDATE companies SET `+strings.Join(sets, ", ")+` WHERE domain = ?`, args...)
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
		SET client_owner_id = ?, client_owned_at = ?, ownership_expires_at = ?, updated_at = ?
		WHERE domain = ?`,
		ownerID, fmtTime(ownedAt), fmtTime(expiresAt), fmtTime(time.Now()), domain)
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
		SET client_owner_id = NULL, client_owned_at = NULL, ownership_expires_at = NULL, updated_at = ?
		WHERE domain = ?`,
		fmtTime(time.Now()), domain)
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
		AND ownership_expires_at <= ?
		AND contacts_in_sequence = 0`,
		fmtTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired ownerships: %w", err)
	}
	return scanCompanyRows(rows)
}

// ListOwnedCompanies returns every company currently owned by a client.
func (s *Store) ListOwnedCompanies(ctx context.Context, clientID string) ([]*types.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+companyColumns+` FROM companies
		WHERE client_owner_id = ?
		ORDER BY client_owned_at DESC`,
		clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned companies: %w", err)
	}
	return scanCompanyRows(rows)
}
