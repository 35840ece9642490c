package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// ClaimPendingJob claims the oldest pending intake row under
// FOR UPDATE SKIP LOCKED, so N bridge workers can poll the same queue
// without double-processing.
func (s *Store) ClaimPendingJob(ctx context.Context) (*types.PullJob, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE lead_pull_jobs
		SET status = 'processing', started_at = NOW()
		WHERE id = (
			SELECT id FROM lead_pull_jobs
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, client_id, suggestion_id, volume, channel,
			enable_external, max_external_credits, search_criteria, status,
			started_at, completed_at, error_message, created_at`)

	var j types.PullJob
	var criteria []byte
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&j.ID, &j.ClientID, &j.SuggestionID, &j.Volume, &j.Channel,
		&j.EnableExternal, &j.MaxExternalCredits, &criteria, &j.Status,
		&startedAt, &completedAt, &j.ErrorMessage, &j.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoPendingJobs
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending job: %w", err)
	}

	if len(criteria) > 0 && string(criteria) != "{}" {
		if err := json.Unmarshal(criteria, &j.SearchCriteria); err != nil {
			return nil, fmt.Errorf("failed to unmarshal search criteria: %w", err)
		}
	}
	j.StartedAt = timePtr(startedAt)
	j.CompletedAt = timePtr(completedAt)
	return &j, nil
}

// CompleteJob marks a claimed job completed and stores the result JSON.
func (s *Store) CompleteJob(ctx context.Context, jobID string, resultJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE lead_pull_jobs
		SET status = 'completed', result_data = $1::jsonb, completed_at = NOW()
		WHERE id = $2`,
		string(resultJSON), jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// FailJob marks a claimed job failed with an explanatory message.
func (s *Store) FailJob(ctx context.Context, jobID string, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE lead_pull_jobs
		SET status = 'failed', error_message = $1, completed_at = NOW()
		WHERE id = $2`,
		message, jobID)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}
