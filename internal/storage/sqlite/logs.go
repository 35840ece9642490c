package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apqllyqn/lead-disposition/internal/types"
)

// AppendHistory writes one append-only disposition transition row.
func (q *queries) AppendHistory(ctx context.Context, h *types.DispositionHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	meta := "{}"
	if len(h.Metadata) > 0 {
		b, err := json.Marshal(h.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal history metadata: %w", err)
		}
		meta = string(b)
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO disposition_history (
			id, contact_email, contact_client_id, previous_status, new_status,
			transition_reason, triggered_by, campaign_id, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.ContactEmail, h.ContactClientID,
		nullStr(string(h.PreviousStatus)), string(h.NewStatus),
		h.TransitionReason, string(h.TriggeredBy), h.CampaignID, meta,
		fmtTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// AppendOwnershipChange writes one append-only ownership change row.
func (q *queries) AppendOwnershipChange(ctx context.Context, oc *types.OwnershipChange) error {
	if oc.ID == "" {
		oc.ID = uuid.NewString()
	}
	if oc.ChangedAt.IsZero() {
		oc.ChangedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO client_ownership (
			id, company_domain, previous_owner_id, new_owner_id, change_reason, changed_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		oc.ID, oc.CompanyDomain, nullStr(oc.PreviousOwnerID), nullStr(oc.NewOwnerID),
		string(oc.ChangeReason), fmtTime(oc.ChangedAt))
	if err != nil {
		return fmt.Errorf("failed to append ownership change: %w", err)
	}
	return nil
}

// AppendAssignment writes one campaign assignment row.
func (q *queries) AppendAssignment(ctx context.Context, a *types.CampaignAssignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.AssignedAt.IsZero() {
		a.AssignedAt = now
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO campaign_assignments (
			id, contact_email, contact_client_id, campaign_id, client_id,
			channel, assigned_at, completed_at, outcome, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ContactEmail, a.ContactClientID, a.CampaignID, a.ClientID,
		string(a.Channel), fmtTime(a.AssignedAt), fmtTimePtr(a.CompletedAt),
		a.Outcome, fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append assignment: %w", err)
	}
	return nil
}

// GetContactHistory returns the most recent transition rows for one
// contact, newest first.
func (s *Store) GetContactHistory(ctx context.Context, email, clientID string, limit int) ([]*types.DispositionHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contact_email, contact_client_id, previous_status, new_status,
			transition_reason, triggered_by, campaign_id, metadata, created_at
		FROM disposition_history
		WHERE contact_email = ? AND contact_client_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		email, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.DispositionHistory
	for rows.Next() {
		var h types.DispositionHistory
		var prev sql.NullString
		var meta, createdAt string
		if err := rows.Scan(&h.ID, &h.ContactEmail, &h.ContactClientID, &prev,
			&h.NewStatus, &h.TransitionReason, &h.TriggeredBy, &h.CampaignID,
			&meta, &createdAt); err != nil {
			return nil, err
		}
		if prev.Valid {
			h.PreviousStatus = types.DispositionStatus(prev.String)
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &h.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal history metadata: %w", err)
			}
		}
		if h.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}
