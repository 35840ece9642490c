// Package types defines core data structures for the lead disposition system.
package types

import (
	"fmt"
	"strings"
	"time"
)

// DispositionStatus is the lifecycle state of a contact.
type DispositionStatus string

// Contact disposition states.
const (
	StatusFresh               DispositionStatus = "fresh"
	StatusInSequence          DispositionStatus = "in_sequence"
	StatusCompletedNoResponse DispositionStatus = "completed_no_response"
	StatusRepliedPositive     DispositionStatus = "replied_positive"
	StatusRepliedNeutral      DispositionStatus = "replied_neutral"
	StatusRepliedNegative     DispositionStatus = "replied_negative"
	StatusRepliedHardNo       DispositionStatus = "replied_hard_no"
	StatusBounced             DispositionStatus = "bounced"
	StatusUnsubscribed        DispositionStatus = "unsubscribed"
	StatusRetouchEligible     DispositionStatus = "retouch_eligible"
	StatusStaleData           DispositionStatus = "stale_data"
	StatusJobChangeDetected   DispositionStatus = "job_change_detected"
	StatusWonCustomer         DispositionStatus = "won_customer"
	StatusLostClosed          DispositionStatus = "lost_closed"
)

// Transitions maps each disposition state to the set of states it may
// legally move to. Same-state transitions are permitted no-ops handled
// by the state machine and are not listed here.
var Transitions = map[DispositionStatus][]DispositionStatus{
	StatusFresh:               {StatusInSequence, StatusStaleData, StatusJobChangeDetected},
	StatusInSequence:          {StatusCompletedNoResponse, StatusRepliedPositive, StatusRepliedNeutral, StatusRepliedNegative, StatusRepliedHardNo, StatusBounced, StatusUnsubscribed},
	StatusCompletedNoResponse: {StatusRetouchEligible, StatusStaleData, StatusJobChangeDetected},
	StatusRepliedPositive:     {StatusWonCustomer, StatusLostClosed},
	StatusRepliedNeutral:      {StatusRetouchEligible, StatusStaleData},
	StatusRepliedNegative:     {StatusRetouchEligible, StatusStaleData},
	StatusRepliedHardNo:       {},
	StatusBounced:             {},
	StatusUnsubscribed:        {},
	StatusRetouchEligible:     {StatusInSequence, StatusStaleData, StatusJobChangeDetected},
	StatusStaleData:           {StatusFresh, StatusRetouchEligible},
	StatusJobChangeDetected:   {StatusFresh},
	StatusWonCustomer:         {},
	StatusLostClosed:          {StatusRetouchEligible},
}

// IsValid checks if the status value is a known disposition state.
func (s DispositionStatus) IsValid() bool {
	_, ok := Transitions[s]
	return ok
}

// IsTerminal reports whether no transitions lead out of s.
func (s DispositionStatus) IsTerminal() bool {
	targets, ok := Transitions[s]
	return ok && len(targets) == 0
}

// CanTransitionTo reports whether s -> target is a legal transition.
// Same-state is always allowed.
func (s DispositionStatus) CanTransitionTo(target DispositionStatus) bool {
	if s == target {
		return true
	}
	for _, t := range Transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// CompanyStatus is the aggregate engagement state of a company.
type CompanyStatus string

// Company status constants.
const (
	CompanyFresh      CompanyStatus = "fresh"
	CompanyActive     CompanyStatus = "active"
	CompanyCooling    CompanyStatus = "cooling"
	CompanySuppressed CompanyStatus = "suppressed"
	CompanyCustomer   CompanyStatus = "customer"
)

// IsValid checks if the company status value is valid.
func (s CompanyStatus) IsValid() bool {
	switch s {
	case CompanyFresh, CompanyActive, CompanyCooling, CompanySuppressed, CompanyCustomer:
		return true
	}
	return false
}

// Channel is an outreach channel.
type Channel string

// Outreach channels.
const (
	ChannelEmail    Channel = "email"
	ChannelLinkedIn Channel = "linkedin"
	ChannelPhone    Channel = "phone"
)

// IsValid checks if the channel value is valid.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelLinkedIn, ChannelPhone:
		return true
	}
	return false
}

// ParseChannel normalizes a raw channel string, falling back to email
// when the value is empty or unknown. Job rows frequently carry junk
// channel values; email is always a safe default.
func ParseChannel(raw string) Channel {
	c := Channel(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return ChannelEmail
	}
	return c
}

// OwnershipChangeReason records why company ownership changed hands.
type OwnershipChangeReason string

// Ownership change reasons.
const (
	ReasonFirstClaim    OwnershipChangeReason = "first_claim"
	ReasonExpired       OwnershipChangeReason = "expired"
	ReasonManualRelease OwnershipChangeReason = "manual_release"
	ReasonAdminTransfer OwnershipChangeReason = "admin_transfer"
)

// TriggeredBy identifies what initiated a disposition transition.
type TriggeredBy string

// Transition trigger sources.
const (
	TriggerSystem       TriggeredBy = "system"
	TriggerUI           TriggeredBy = "ui"
	TriggerCampaignFill TriggeredBy = "campaign_fill"
	TriggerMaintenance  TriggeredBy = "maintenance"
)

// Contact is one person tracked for one client. Two clients tracking
// the same email address hold independent Contact rows.
type Contact struct {
	Email                 string            `json:"email"`
	ClientID              string            `json:"client_id"`
	CompanyDomain         string            `json:"company_domain"`
	FirstName             string            `json:"first_name,omitempty"`
	LastName              string            `json:"last_name,omitempty"`
	LastKnownTitle        string            `json:"last_known_title,omitempty"`
	LastKnownCompany      string            `json:"last_known_company,omitempty"`
	DispositionStatus     DispositionStatus `json:"disposition_status"`
	DispositionUpdatedAt  *time.Time        `json:"disposition_updated_at,omitempty"`
	EmailLastContacted    *time.Time        `json:"email_last_contacted,omitempty"`
	LinkedInLastContacted *time.Time        `json:"linkedin_last_contacted,omitempty"`
	PhoneLastContacted    *time.Time        `json:"phone_last_contacted,omitempty"`
	EmailCooldownUntil    *time.Time        `json:"email_cooldown_until,omitempty"`
	LinkedInCooldownUntil *time.Time        `json:"linkedin_cooldown_until,omitempty"`
	PhoneCooldownUntil    *time.Time        `json:"phone_cooldown_until,omitempty"`
	EmailSuppressed       bool              `json:"email_suppressed"`
	LinkedInSuppressed    bool              `json:"linkedin_suppressed"`
	PhoneSuppressed       bool              `json:"phone_suppressed"`
	DataEnrichedAt        *time.Time        `json:"data_enriched_at,omitempty"`
	SequenceCount         int               `json:"sequence_count"`
	SourceSystem          string            `json:"source_system,omitempty"`
	SourceID              string            `json:"source_id,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// Validate checks required fields and enum values.
func (c *Contact) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("invalid email: %q", c.Email)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.CompanyDomain == "" {
		return fmt.Errorf("company_domain is required")
	}
	if c.DispositionStatus != "" && !c.DispositionStatus.IsValid() {
		return fmt.Errorf("invalid disposition status: %s", c.DispositionStatus)
	}
	if c.SequenceCount < 0 {
		return fmt.Errorf("sequence_count cannot be negative")
	}
	return nil
}

// Suppressed reports whether the contact is suppressed on the given channel.
func (c *Contact) Suppressed(ch Channel) bool {
	switch ch {
	case ChannelLinkedIn:
		return c.LinkedInSuppressed
	case ChannelPhone:
		return c.PhoneSuppressed
	default:
		return c.EmailSuppressed
	}
}

// CooldownUntil returns the cooldown timestamp for the given channel.
func (c *Contact) CooldownUntil(ch Channel) *time.Time {
	switch ch {
	case ChannelLinkedIn:
		return c.LinkedInCooldownUntil
	case ChannelPhone:
		return c.PhoneCooldownUntil
	default:
		return c.EmailCooldownUntil
	}
}

// Company is a global (cross-client) record keyed by domain.
type Company struct {
	Domain               string        `json:"domain"`
	Name                 string        `json:"name,omitempty"`
	CompanyStatus        CompanyStatus `json:"company_status"`
	CompanySuppressed    bool          `json:"company_suppressed"`
	SuppressedReason     string        `json:"suppressed_reason,omitempty"`
	SuppressedAt         *time.Time    `json:"suppressed_at,omitempty"`
	ContactsTotal        int           `json:"contacts_total"`
	ContactsInSequence   int           `json:"contacts_in_sequence"`
	ContactsTouched      int           `json:"contacts_touched"`
	LastContactDate      *time.Time    `json:"last_contact_date,omitempty"`
	CompanyCooldownUntil *time.Time    `json:"company_cooldown_until,omitempty"`
	IsCustomer           bool          `json:"is_customer"`
	CustomerSince        *time.Time    `json:"customer_since,omitempty"`
	ClientOwnerID        string        `json:"client_owner_id,omitempty"`
	ClientOwnedAt        *time.Time    `json:"client_owned_at,omitempty"`
	OwnershipExpiresAt   *time.Time    `json:"ownership_expires_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// Owned reports whether the company currently has a client owner.
func (c *Company) Owned() bool {
	return c.ClientOwnerID != ""
}

// OwnershipExpired reports whether the ownership expiry has passed.
// Unowned companies are never expired.
func (c *Company) OwnershipExpired(now time.Time) bool {
	return c.Owned() && c.OwnershipExpiresAt != nil && !c.OwnershipExpiresAt.After(now)
}

// DispositionHistory is one append-only log entry per state transition.
type DispositionHistory struct {
	ID               string            `json:"id"`
	ContactEmail     string            `json:"contact_email"`
	ContactClientID  string            `json:"contact_client_id"`
	PreviousStatus   DispositionStatus `json:"previous_status,omitempty"`
	NewStatus        DispositionStatus `json:"new_status"`
	TransitionReason string            `json:"transition_reason,omitempty"`
	TriggeredBy      TriggeredBy       `json:"triggered_by"`
	CampaignID       string            `json:"campaign_id,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// OwnershipChange is one append-only log entry per ownership mutation.
type OwnershipChange struct {
	ID              string                `json:"id"`
	CompanyDomain   string                `json:"company_domain"`
	PreviousOwnerID string                `json:"previous_owner_id,omitempty"`
	NewOwnerID      string                `json:"new_owner_id,omitempty"`
	ChangeReason    OwnershipChangeReason `json:"change_reason"`
	ChangedAt       time.Time             `json:"changed_at"`
}

// CampaignAssignment is one row per (contact, campaign) assignment.
type CampaignAssignment struct {
	ID              string     `json:"id"`
	ContactEmail    string     `json:"contact_email"`
	ContactClientID string     `json:"contact_client_id"`
	CampaignID      string     `json:"campaign_id"`
	ClientID        string     `json:"client_id"`
	Channel         Channel    `json:"channel"`
	AssignedAt      time.Time  `json:"assigned_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Outcome         string     `json:"outcome,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PoolCounts is the TAM segmentation of the contact universe.
type PoolCounts struct {
	TotalUniverse     int `json:"total_universe"`
	NeverTouched      int `json:"never_touched"`
	InCooldown        int `json:"in_cooldown"`
	AvailableNow      int `json:"available_now"`
	PermanentSuppress int `json:"permanent_suppress"`
	InSequence        int `json:"in_sequence"`
	WonCustomer       int `json:"won_customer"`
}

// TAMSnapshot is one persisted snapshot row per (date, client). A nil
// client represents the global universe.
type TAMSnapshot struct {
	ID           string  `json:"id"`
	SnapshotDate string  `json:"snapshot_date"` // YYYY-MM-DD
	ClientID     *string `json:"client_id,omitempty"`
	PoolCounts
	BurnRateWeekly     float64   `json:"burn_rate_weekly"`
	ExhaustionETAWeeks *float64  `json:"exhaustion_eta_weeks,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// HealthStatus classifies how close a contact universe is to exhaustion.
type HealthStatus string

// Health classifications.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// TAMHealth is the computed (not persisted) health report.
type TAMHealth struct {
	PoolCounts
	BurnRateWeekly     float64      `json:"burn_rate_weekly"`
	ExhaustionETAWeeks *float64     `json:"exhaustion_eta_weeks,omitempty"`
	HealthStatus       HealthStatus `json:"health_status"`
}

// PullJob is one row of the bridge intake queue. The queue table is
// produced by an external system; this side only claims, processes, and
// completes rows.
type PullJob struct {
	ID                 string         `json:"id"`
	ClientID           string         `json:"client_id"`
	SuggestionID       string         `json:"suggestion_id,omitempty"`
	Volume             int            `json:"volume"`
	Channel            string         `json:"channel,omitempty"`
	EnableExternal     bool           `json:"enable_external"`
	MaxExternalCredits float64        `json:"max_external_credits"`
	SearchCriteria     map[string]any `json:"search_criteria,omitempty"`
	Status             string         `json:"status"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	ErrorMessage       string         `json:"error_message,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Pull job statuses.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)
