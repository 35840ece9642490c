package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apqllyqn/lead-disposition/internal/types"
)

// TAMPools runs the single segmentation aggregate over contacts.
func (s *Store) TAMPools(ctx context.Context, clientID *string) (types.PoolCounts, error) {
	query := `
		SELECT
			COUNT(*) AS total_universe,
			COUNT(*) FILTER (WHERE disposition_status = 'fresh' AND sequence_count = 0) AS never_touched,
			COUNT(*) FILTER (WHERE disposition_status IN (
					'completed_no_response', 'replied_neutral', 'replied_negative', 'lost_closed'
				) AND email_cooldown_until IS NOT NULL AND email_cooldown_until > NOW()) AS in_cooldown,
			COUNT(*) FILTER (WHERE disposition_status IN ('fresh', 'retouch_eligible')
				AND email_suppressed = FALSE
				AND (email_cooldown_until IS NULL OR email_cooldown_until <= NOW())) AS available_now,
			COUNT(*) FILTER (WHERE disposition_status IN (
					'replied_hard_no', 'bounced', 'unsubscribed')) AS permanent_suppress,
			COUNT(*) FILTER (WHERE disposition_status = 'in_sequence') AS in_sequence,
			COUNT(*) FILTER (WHERE disposition_status = 'won_customer') AS won_customer
		FROM contacts`
	var args []any
	if clientID != nil {
		query += ` WHERE client_id = $1`
		args = append(args, *clientID)
	}

	var p types.PoolCounts
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.TotalUniverse, &p.NeverTouched, &p.InCooldown, &p.AvailableNow,
		&p.PermanentSuppress, &p.InSequence, &p.WonCustomer)
	if err != nil {
		return types.PoolCounts{}, fmt.Errorf("failed to aggregate TAM pools: %w", err)
	}
	return p, nil
}

// BurnRateWeekly counts transitions into in_sequence over the trailing
// seven days.
func (s *Store) BurnRateWeekly(ctx context.Context, clientID *string) (float64, error) {
	query := `
		SELECT COUNT(*) FROM disposition_history
		WHERE new_status = 'in_sequence' AND created_at > NOW() - INTERVAL '7 days'`
	var args []any
	if clientID != nil {
		query += ` AND contact_client_id = $1`
		args = append(args, *clientID)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to compute burn rate: %w", err)
	}
	return float64(n), nil
}

// UpsertTAMSnapshot writes one snapshot row, replacing any existing row
// for the same (snapshot_date, client_id) scope. The conflict target is
// the coalesced unique index so the NULL-client global row upserts too.
func (s *Store) UpsertTAMSnapshot(ctx context.Context, snap *types.TAMSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.SnapshotDate == "" {
		snap.SnapshotDate = time.Now().UTC().Format("2006-01-02")
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	var clientID any
	if snap.ClientID != nil {
		clientID = *snap.ClientID
	}
	var eta any
	if snap.ExhaustionETAWeeks != nil {
		eta = *snap.ExhaustionETAWeeks
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tam_snapshots (
			id, snapshot_date, client_id, total_universe, never_touched,
			in_cooldown, available_now, permanent_suppress, in_sequence,
			won_customer, burn_rate_weekly, exhaustion_eta_weeks, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (snapshot_date, COALESCE(client_id, '')) DO UPDATE SET
			total_universe = EXCLUDED.total_universe,
			never_touched = EXCLUDED.never_touched,
			in_cooldown = EXCLUDED.in_cooldown,
			available_now = EXCLUDED.available_now,
			permanent_suppress = EXCLUDED.permanent_suppress,
			in_sequence = EXCLUDED.in_sequence,
			won_customer = EXCLUDED.won_customer,
			burn_rate_weekly = EXCLUDED.burn_rate_weekly,
			exhaustion_eta_weeks = EXCLUDED.exhaustion_eta_weeks`,
		snap.ID, snap.SnapshotDate, clientID,
		snap.TotalUniverse, snap.NeverTouched, snap.InCooldown, snap.AvailableNow,
		snap.PermanentSuppress, snap.InSequence, snap.WonCustomer,
		snap.BurnRateWeekly, eta, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert TAM snapshot: %w", err)
	}
	return nil
}

// GetSnapshots returns the last N days of snapshots for one scope,
// newest first.
func (s *Store) GetSnapshots(ctx context.Context, clientID *string, days int) ([]*types.TAMSnapshot, error) {
	if days <= 0 {
		days = 30
	}

	query := `
		SELECT id, snapshot_date::text, client_id, total_universe, never_touched,
			in_cooldown, available_now, permanent_suppress, in_sequence,
			won_customer, burn_rate_weekly, exhaustion_eta_weeks, created_at
		FROM tam_snapshots
		WHERE snapshot_date > CURRENT_DATE - $1::int`
	args := []any{days}
	if clientID != nil {
		query += ` AND client_id = $2`
		args = append(args, *clientID)
	} else {
		query += ` AND client_id IS NULL`
	}
	query += ` ORDER BY snapshot_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.TAMSnapshot
	for rows.Next() {
		var snap types.TAMSnapshot
		var cid sql.NullString
		var burn, eta sql.NullFloat64
		if err := rows.Scan(&snap.ID, &snap.SnapshotDate, &cid,
			&snap.TotalUniverse, &snap.NeverTouched, &snap.InCooldown,
			&snap.AvailableNow, &snap.PermanentSuppress, &snap.InSequence,
			&snap.WonCustomer, &burn, &eta, &snap.CreatedAt); err != nil {
			return nil, err
		}
		if cid.Valid {
			snap.ClientID = &cid.String
		}
		if burn.Valid {
			snap.BurnRateWeekly = burn.Float64
		}
		if eta.Valid {
			snap.ExhaustionETAWeeks = &eta.Float64
		}
		out = append(out, &snap)
	}
	return out, rows.Err()
}

// DistinctClients returns every client id present in contacts.
func (s *Store) DistinctClients(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT client_id FROM contacts ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
