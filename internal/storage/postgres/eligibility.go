package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/types"
)

func prefixColumns(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// QueryEligibleContacts is the single parameterised eligibility read,
// identical in shape to the sqlite driver: the channel name is
// substituted into column identifiers (validated enum), everything else
// is bound.
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

	now := time.Now().UTC()
	freshnessCutoff := now.Add(-180 * 24 * time.Hour)
	suppressedCol := string(ch) + "_suppressed"
	cooldownCol := string(ch) + "_cooldown_until"

	var sb strings.Builder
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	statusBinds := make([]string, len(statuses))
	clientBind := bind(q.ClientID)
	for i, st := range statuses {
		statusBinds[i] = bind(string(st))
	}

	sb.WriteString(`SELECT ` + prefixColumns(contactColumns, "c") + `
		FROM contacts c
		JOIN companies co ON c.company_domain = co.domain
		WHERE c.client_id = ` + clientBind + `
		AND c.disposition_status IN (` + strings.Join(statusBinds, ", ") + `)
		AND c.` + suppressedCol + ` = FALSE
		AND (c.` + cooldownCol + ` IS NULL OR c.` + cooldownCol + ` <= ` + bind(now) + `)
		AND co.company_suppressed = FALSE
		AND co.is_customer = FALSE
		AND (co.client_owner_id = ` + bind(q.ClientID) + ` OR co.client_owner_id IS NULL)
		AND (c.data_enriched_at IS NULL OR c.data_enriched_at > ` + bind(freshnessCutoff) + `)`)

	if len(q.TitleKeywords) > 0 {
		var conds []string
		for _, kw := range q.TitleKeywords {
			conds = append(conds, "LOWER(c.last_known_title) LIKE "+bind("%"+strings.ToLower(kw)+"%"))
		}
		sb.WriteString(" AND (" + strings.Join(conds, " OR ") + ")")
	}

	sb.WriteString(`
		ORDER BY
			CASE WHEN c.disposition_status = 'fresh' THEN 0 ELSE 1 END,
			c.data_enriched_at DESC NULLS LAST,
			c.sequence_count ASC
		LIMIT ` + bind(limit))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible contacts: %w", err)
	}
	return scanContactRows(rows)
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
		AND email_cooldown_until <= NOW()`)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired cooldowns: %w", err)
	}
	return scanContactRows(rows)
}

// StaleContacts returns contacts whose enrichment data is older than the
// given number of months.
func (s *Store) StaleContacts(ctx context.Context, months int) ([]*types.Contact, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(months) * 30 * 24 * time.Hour)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE data_enriched_at IS NOT NULL
		AND data_enriched_at < $1
		AND disposition_status NOT IN (
			'replied_hard_no', 'bounced', 'unsubscribed', 'won_customer', 'stale_data'
		)`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale contacts: %w", err)
	}
	return scanContactRows(rows)
}

// ListContacts is the operator view over contacts with optional filters.
func (s *Store) ListContacts(ctx context.Context, f types.ContactListFilter) ([]*types.Contact, int, error) {
	var where []string
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ClientID != "" {
		where = append(where, "client_id = "+bind(f.ClientID))
	}
	if f.Status != "" {
		where = append(where, "disposition_status = "+bind(string(f.Status)))
	}
	if f.Search != "" {
		pat := "%" + f.Search + "%"
		where = append(where, fmt.Sprintf("(email LIKE %s OR last_known_title LIKE %s OR company_domain LIKE %s)",
			bind(pat), bind(pat), bind(pat)))
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
	query := `SELECT ` + contactColumns + ` FROM contacts` + clause +
		` ORDER BY updated_at DESC LIMIT ` + bind(limit) + ` OFFSET ` + bind(f.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}
	contacts, err := scanContactRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}
