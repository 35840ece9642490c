package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// TAMPools runs the single segmentation aggregate over contacts. A nil
// clientID scopes the counts to the whole universe.
func (s *Store) TAMPools(ctx context.Context, clientID *string) (types.PoolCounts, error) {
	now := fmtTime(time.Now())
	query := `
		SELECT
			COUNT(*) AS total_universe,
			COALESCE(SUM(CASE WHEN disposition_status = 'fresh' AND sequence_count = 0
				THEN 1 ELSE 0 END), 0) AS never_touched,
			COALESCE(SUM(CASE WHEN disposition_status IN (
					'completed_no_response', 'replied_neutral', 'replied_negative', 'lost_closed'
				) AND email_cooldown_until IS NOT NULL AND email_cooldown_until > ?
				THEN 1 ELSE 0 END), 0) AS in_cooldown,
			COALESCE(SUM(CASE WHEN disposition_status IN ('fresh', 'retouch_eligible')
				AND email_suppressed = 0
				AND (email_cooldown_until IS NULL OR email_cooldown_until <= ?)
				THEN 1 ELSE 0 END), 0) AS available_now,
			COALESCE(SUM(CASE WHEN disposition_status IN ('replied_hard_no', 'bounced', 'unsubscribed')
				THEN 1 ELSE 0 END), 0) AS permanent_suppress,
			COALESCE(SUM(CASE WHEN disposition_status = 'in_sequence'
				THEN 1 ELSE 0 END), 0) AS in_sequence,
			COALESCE(SUM(CASE WHEN disposition_status = 'won_customer'
				THEN 1 ELSE 0 END), 0) AS won_customer
		FROM contacts`
	args := []any{now, now}
	if clientID != nil {
		query += ` WHERE client_id = ?`
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
	cutoff := fmtTime(time.Now().Add(-7 * 24 * time.Hour))
	query := `
		SELECT COUNT(*) FROM disposition_history
		WHERE new_status = 'in_sequence' AND created_at > ?`
	args := []any{cutoff}
	if clientID != nil {
		query += ` AND contact_client_id = ?`
		args = append(args, *clientID)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to compute burn rate: %w", err)
	}
	return float64(n), nil
}

// UpsertTAMSnapshot writes one snapshot row, replacing any existing row
// for the same (snapshot_date, client_id). Delete-then-insert rather
// than ON CONFLICT: SQLite unique indexes treat NULLs as distinct, so a
// conflict clause would never fire for the global (NULL client) row.
func (s *Store) UpsertTAMSnapshot(ctx context.Context, snap *types.TAMSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.SnapshotDate == "" {
		snap.SnapshotDate = time.Now().UTC().Format(dateLayout)
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

	err := s.RunInTransaction(ctx, func(tx storage.Tx) error {
		t := tx.(*txStore)
		if snap.ClientID != nil {
			_, err := t.db.ExecContext(ctx,
				`DELETE FROM tam_snapshots WHERE snapshot_date = ? AND client_id = ?`,
				snap.SnapshotDate, *snap.ClientID)
			if err != nil {
				return err
			}
		} else {
			_, err := t.db.ExecContext(ctx,
				`DELETE FROM tam_snapshots WHERE snapshot_date = ? AND client_id IS NULL`,
				snap.SnapshotDate)
			if err != nil {
				return err
			}
		}
		_, err := t.db.ExecContext(ctx, `
			INSERT INTO tam_snapshots (
				id, snapshot_date, client_id, total_universe, never_touched,
				in_cooldown, available_now, permanent_suppress, in_sequence,
				won_customer, burn_rate_weekly, exhaustion_eta_weeks, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, snap.SnapshotDate, clientID,
			snap.TotalUniverse, snap.NeverTouched, snap.InCooldown, snap.AvailableNow,
			snap.PermanentSuppress, snap.InSequence, snap.WonCustomer,
			snap.BurnRateWeekly, eta, fmtTime(snap.CreatedAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert TAM snapshot: %w", err)
	}
	return nil
}

// GetSnapshots returns the last N days of snapshots for one scope,
// newest first. A nil clientID selects the global rows.
func (s *Store) GetSnapshots(ctx context.Context, clientID *string, days int) ([]*types.TAMSnapshot, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(dateLayout)

	query := `
		SELECT id, snapshot_date, client_id, total_universe, never_touched,
			in_cooldown, available_now, permanent_suppress, in_sequence,
			won_customer, burn_rate_weekly, exhaustion_eta_weeks, created_at
		FROM tam_snapshots
		WHERE snapshot_date > ?`
	args := []any{cutoff}
	if clientID != nil {
		query += ` AND client_id = ?`
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
		var createdAt string
		if err := rows.Scan(&snap.ID, &snap.SnapshotDate, &cid,
			&snap.TotalUniverse, &snap.NeverTouched, &snap.InCooldown,
			&snap.AvailableNow, &snap.PermanentSuppress, &snap.InSequence,
			&snap.WonCustomer, &burn, &eta, &createdAt); err != nil {
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
		if snap.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
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
