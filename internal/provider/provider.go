// Package provider defines the external lead source contract and its
// concrete adapters.
//
// Adapters never surface network or parse failures as Go errors: every
// failure becomes an entry in Result.Errors, with CreditsConsumed
// reflecting any budget already spent. The only error a Search returns
// is context cancellation.
package provider

import (
	"context"
	"sort"
)

// SearchCriteria narrows an external lead search.
type SearchCriteria struct {
	ClientID       string   `json:"client_id"`
	Industry       string   `json:"industry,omitempty"`
	JobTitles      []string `json:"job_titles,omitempty"`
	CompanySizes   []string `json:"company_sizes,omitempty"`
	Locations      []string `json:"locations,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	CompanyDomains []string `json:"company_domains,omitempty"`
	Limit          int      `json:"limit"`
}

// WithLimit returns a copy of the criteria with a new limit.
func (c SearchCriteria) WithLimit(limit int) SearchCriteria {
	c.Limit = limit
	return c
}

// Lead is a provider-shaped row before write-back mapping. Only Email
// is guaranteed; CompanyDomain may be derived from the email later.
type Lead struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	CompanyName    string `json:"company_name,omitempty"`
	CompanyDomain  string `json:"company_domain,omitempty"`
	Title          string `json:"title,omitempty"`
	LinkedInURL    string `json:"linkedin_url,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Location       string `json:"location,omitempty"`
	Industry       string `json:"industry,omitempty"`
	CompanySize    string `json:"company_size,omitempty"`
	SourceProvider string `json:"source_provider,omitempty"`
	SourceID       string `json:"source_id,omitempty"`
}

// Result is the uniform outcome of a provider search.
type Result struct {
	Leads           []Lead   `json:"leads"`
	TotalFound      int      `json:"total_found"`
	CreditsConsumed float64  `json:"credits_consumed"`
	Errors          []string `json:"errors,omitempty"`
}

// Provider is one external lead source. Priority orders the waterfall
// cascade (lower runs earlier).
type Provider interface {
	Name() string
	Priority() int

	// Search returns matching leads. Failures are reported inside the
	// Result; the error return is reserved for context cancellation.
	Search(ctx context.Context, criteria SearchCriteria) (*Result, error)

	// HealthCheck reports whether the provider is reachable and
	// authenticated.
	HealthCheck(ctx context.Context) bool

	Close() error
}

// SortByPriority orders providers by ascending priority in place and
// returns the slice.
func SortByPriority(providers []Provider) []Provider {
	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Priority() < providers[j].Priority()
	})
	return providers
}
