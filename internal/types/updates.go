package types

import "time"

// ContactUpdate is a typed partial update for a contact row. Nil fields
// are left untouched. The store accepts no free-form field maps; all
// contact mutation flows through these structs via the state machine.
type ContactUpdate struct {
	DispositionStatus    *DispositionStatus
	DispositionUpdatedAt *time.Time

	EmailCooldownUntil    *time.Time
	LinkedInCooldownUntil *time.Time
	PhoneCooldownUntil    *time.Time

	EmailSuppressed    *bool
	LinkedInSuppressed *bool
	PhoneSuppressed    *bool

	EmailLastContacted    *time.Time
	LinkedInLastContacted *time.Time
	PhoneLastContacted    *time.Time

	SequenceCount  *int
	DataEnrichedAt *time.Time
}

// Empty reports whether the update would change nothing.
func (u *ContactUpdate) Empty() bool {
	return u.DispositionStatus == nil && u.DispositionUpdatedAt == nil &&
		u.EmailCooldownUntil == nil && u.LinkedInCooldownUntil == nil && u.PhoneCooldownUntil == nil &&
		u.EmailSuppressed == nil && u.LinkedInSuppressed == nil && u.PhoneSuppressed == nil &&
		u.EmailLastContacted == nil && u.LinkedInLastContacted == nil && u.PhoneLastContacted == nil &&
		u.SequenceCount == nil && u.DataEnrichedAt == nil
}

// SetCooldown sets the cooldown field for the given channel.
func (u *ContactUpdate) SetCooldown(ch Channel, until time.Time) {
	switch ch {
	case ChannelLinkedIn:
		u.LinkedInCooldownUntil = &until
	case ChannelPhone:
		u.PhoneCooldownUntil = &until
	default:
		u.EmailCooldownUntil = &until
	}
}

// SetLastContacted sets the last-contacted field for the given channel.
func (u *ContactUpdate) SetLastContacted(ch Channel, at time.Time) {
	switch ch {
	case ChannelLinkedIn:
		u.LinkedInLastContacted = &at
	case ChannelPhone:
		u.PhoneLastContacted = &at
	default:
		u.EmailLastContacted = &at
	}
}

// CompanyUpdate is a typed partial update for a company's derived state.
// Ownership fields are mutated only through the store's SetOwnership and
// ClearOwnership operations, never here.
type CompanyUpdate struct {
	CompanyStatus      *CompanyStatus
	CompanySuppressed  *bool
	SuppressedReason   *string
	SuppressedAt       *time.Time
	ContactsInSequence *int
	ContactsTouched    *int
	LastContactDate    *time.Time
	IsCustomer         *bool
	CustomerSince      *time.Time
}

// Empty reports whether the update would change nothing.
func (u *CompanyUpdate) Empty() bool {
	return u.CompanyStatus == nil && u.CompanySuppressed == nil &&
		u.SuppressedReason == nil && u.SuppressedAt == nil &&
		u.ContactsInSequence == nil && u.ContactsTouched == nil &&
		u.LastContactDate == nil && u.IsCustomer == nil && u.CustomerSince == nil
}

// Ptr returns a pointer to v. Convenience for building partial updates.
func Ptr[T any](v T) *T { return &v }
