package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

const jobColumns = `id, client_id, suggestion_id, volume, channel,
	enable_external, max_external_credits, search_criteria, status,
	started_at, completed_at, error_message, created_at`

func scanJob(r rowScanner) (*types.PullJob, error) {
	var j types.PullJob
	var enableExternal int
	var criteria string
	var startedAt, completedAt sql.NullString
	var createdAt string

	err := r.Scan(&j.ID, &j.ClientID, &j.SuggestionID, &j.Volume, &j.Channel,
		&enableExternal, &j.MaxExternalCredits, &criteria, &j.Status,
		&startedAt, &completedAt, &j.ErrorMessage, &createdAt)
	if err != nil {
		return nil, err
	}

	j.EnableExternal = enableExternal != 0
	if criteria != "" && criteria != "{}" {
		if err := json.Unmarshal([]byte(criteria), &j.SearchCriteria); err != nil {
			return nil, fmt.Errorf("failed to unmarshal search criteria: %w", err)
		}
	}
	if j.StartedAt, err = scanTimePtr(startedAt); err != nil {
		return nil, err
	}
	if j.CompletedAt, err = scanTimePtr(completedAt); err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// ClaimPendingJob atomically claims the oldest pending intake row and
// flips it to processing. SQLite has a single writer, so claiming inside
// an IMMEDIATE transaction is equivalent to a skip-locked dequeue.
func (s *Store) ClaimPendingJob(ctx context.Context) (*types.PullJob, error) {
	var job *types.PullJob
	err := s.RunInTransaction(ctx, func(tx storage.Tx) error {
		t := tx.(*txStore)
		row := t.db.QueryRowContext(ctx, `
			SELECT `+jobColumns+` FROM lead_pull_jobs
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT 1`)
		j, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNoPendingJobs
		}
		if err != nil {
			return fmt.Errorf("failed to select pending job: %w", err)
		}

		now := time.Now().UTC()
		if _, err := t.db.ExecContext(ctx,
			`UPDATE lead_pull_jobs SET status = 'processing', started_at = ? WHERE id = ?`,
			fmtTime(now), j.ID); err != nil {
			return fmt.Errorf("failed to claim job: %w", err)
		}
		j.Status = types.JobProcessing
		j.StartedAt = &now
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CompleteJob marks a claimed job completed and stores the result JSON.
func (s *Store) CompleteJob(ctx context.Context, jobID string, resultJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE lead_pull_jobs
		SET status = 'completed', result_data = ?, completed_at = ?
		WHERE id = ?`,
		string(resultJSON), fmtTime(time.Now()), jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// FailJob marks a claimed job failed with an explanatory message.
func (s *Store) FailJob(ctx context.Context, jobID string, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE lead_pull_jobs
		SET status = 'failed', error_message = ?, completed_at = ?
		WHERE id = ?`,
		message, fmtTime(time.Now()), jobID)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}
