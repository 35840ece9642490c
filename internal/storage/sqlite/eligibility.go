package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/types"
)

// prefixColumns qualifies a comma-separated column list with a table
// alias, for queries that join contacts against companies.
func prefixColumns(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// QueryEligibleContacts is the single parameterised eligibility read.
//
// The channel name is substituted into column identifiers (validated
// enum, never caller text); everything else is bound. Ordering is
// fresh-first, then enrichment recency, then lowest sequence count.
func (s *Store) QueryEligibleContacts(ctx context.Context, q types.EligibilityQuery) ([]*types.Contact, error) {
	ch := q.Channel
	if !ch.IsValid() {
		ch = types.ChannelEmail
	}
	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = []types.DispositionStatus{types.StatusFresh, types.StatusRetouchEligible}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}

	now := time.Now()
	freshnessCutoff := now.Add(-180 * 24 * time.Hour)
	suppressedCol := string(ch) + "_suppressed"
	cooldownCol := string(ch) + "_cooldown_until"

	var sb strings.Builder
	var args []any

	sb.WriteString(`SELECT ` + prefixColumns(contactColumns, "c") + `
		FROM contacts c
		JOIN companies co ON c.company_domain = co.domain
		WHERE c.client_id = ?
		AND c.disposition_status IN (` + placeholders(len(statuses)) + `)
		AND c.` + suppressedCol + ` = 0
		AND (c.` + cooldownCol + ` IS NULL OR c.` + cooldownCol + ` <= ?)
		AND co.company_suppressed = 0
		AND co.is_customer = 0
		AND (co.client_owner_id = ? OR co.client_owner_id IS NULL)
		AND (c.data_enriched_at IS NULL OR c.data_enriched_at > ?)`)
	args = append(args, q.ClientID)
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, fmtTime(now), q.ClientID, fmtTime(freshnessCutoff))

	if len(q.TitleKeywords) > 0 {
		var conds []string
		for _, kw := range q.TitleKeywords {
			conds = append(conds, "LOWER(c.last_known_title) LIKE ?")
			args = append(args, "%"+strings.ToLower(kw)+"%")
		}
		sb.WriteString(" AND (" + strings.Join(conds, " OR ") + ")")
	}

	sb.WriteString(`
		ORDER BY
			CASE WHEN c.disposition_status = 'fresh' THEN 0 ELSE 1 END,
			c.data_enriched_at DESC,
			c.sequence_count ASC
		LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible contacts: %w", err)
	}
	return scanContactRows(rows)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ExpiredCooldownContacts returns contacts whose email cooldown has
// lapsed and whose disposition permits a move to retouch_eligible.
func (s *Store) ExpiredCooldownContacts(ctx context.Context) ([]*types.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE disposition_status IN (
			'completed_no_response', 'replied_neutral', 'replied_negative', 'lost_closed'
		)
		AND email_cooldown_until IS NOT NULL
		AND email_cooldown_until <= ?`,
		fmtTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired cooldowns: %w", err)
	}
	return scanContactRows(rows)
}

// StaleContacts returns contacts whose enrichment data is older than the
// given number of months, excluding dispositions that never go stale.
func (s *Store) StaleContacts(ctx context.Context, months int) ([]*types.Contact, error) {
	cutoff := time.Now().Add(-time.Duration(months) * 30 * 24 * time.Hour)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE data_enriched_at IS NOT NULL
		AND data_enriched_at < ?
		AND disposition_status NOT IN (
			'replied_hard_no', 'bounced', 'unsubscribed', 'won_customer', 'stale_data'
		)`,
		fmtTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to query stale contacts: %w", err)
	}
	return scanContactRows(rows)
}

// ListContacts is the operator view over contacts with optional filters.
// Returns the page plus the total row count for the filter.
func (s *Store) ListContacts(ctx context.Context, f types.ContactListFilter) ([]*types.Contact, int, error) {
	var where []string
	var args []any
	if f.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.Status != "" {
		where = append(where, "disposition_status = ?")
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		where = append(where, "(email LIKE ? OR last_known_title LIKE ? OR company_domain LIKE ?)")
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat, pat)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, f.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts`+clause+`
		ORDER BY updated_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}
	contacts, err := scanContactRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}
