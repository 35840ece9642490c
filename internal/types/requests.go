package types

// FillRequest is the input to the campaign fill engine.
type FillRequest struct {
	CampaignID    string   `json:"campaign_id"`
	ClientID      string   `json:"client_id"`
	Channel       Channel  `json:"channel"`
	Volume        int      `json:"volume"`
	TitleKeywords []string `json:"title_keywords,omitempty"`
	// FreshRatio overrides the configured fresh/retouch blend when
	// non-nil; must be in [0,1].
	FreshRatio    *float64 `json:"fresh_ratio,omitempty"`
	MaxPerCompany int      `json:"max_per_company,omitempty"`
}

// FillResult is the output of the campaign fill engine. Warnings are
// part of the success shape: an exhausted universe is a shortfall
// warning, never an error.
type FillResult struct {
	CampaignID       string     `json:"campaign_id"`
	ClientID         string     `json:"client_id"`
	TotalRequested   int        `json:"total_requested"`
	TotalAssigned    int        `json:"total_assigned"`
	FreshCount       int        `json:"fresh_count"`
	RetouchCount     int        `json:"retouch_count"`
	CompaniesTouched int        `json:"companies_touched"`
	Contacts         []*Contact `json:"contacts"`
	Warnings         []string   `json:"warnings,omitempty"`
}

// WaterfallRequest extends a fill request with external-source options.
type WaterfallRequest struct {
	CampaignID    string   `json:"campaign_id"`
	ClientID      string   `json:"client_id"`
	Channel       Channel  `json:"channel"`
	Volume        int      `json:"volume"`
	TitleKeywords []string `json:"title_keywords,omitempty"`
	FreshRatio    *float64 `json:"fresh_ratio,omitempty"`
	MaxPerCompany int      `json:"max_per_company,omitempty"`

	EnableExternal     bool     `json:"enable_external"`
	MaxExternalCredits float64  `json:"max_external_credits"`
	ProvidersOverride  []string `json:"providers_override,omitempty"`

	Industry       string   `json:"industry,omitempty"`
	CompanySizes   []string `json:"company_sizes,omitempty"`
	Locations      []string `json:"locations,omitempty"`
	SearchKeywords []string `json:"search_keywords,omitempty"`
	CompanyDomains []string `json:"company_domains,omitempty"`
}

// FillRequest returns the internal-fill portion of the waterfall request.
func (r *WaterfallRequest) FillRequest() FillRequest {
	return FillRequest{
		CampaignID:    r.CampaignID,
		ClientID:      r.ClientID,
		Channel:       r.Channel,
		Volume:        r.Volume,
		TitleKeywords: r.TitleKeywords,
		FreshRatio:    r.FreshRatio,
		MaxPerCompany: r.MaxPerCompany,
	}
}

// WriteBackResult tallies the outcome of persisting external leads.
type WriteBackResult struct {
	TotalProcessed    int      `json:"total_processed"`
	NewInserted       int      `json:"new_inserted"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	InvalidSkipped    int      `json:"invalid_skipped"`
	Errors            []string `json:"errors,omitempty"`
}

// WaterfallResult is the fill result plus waterfall metrics.
type WaterfallResult struct {
	CampaignID       string     `json:"campaign_id"`
	ClientID         string     `json:"client_id"`
	TotalRequested   int        `json:"total_requested"`
	TotalAssigned    int        `json:"total_assigned"`
	FreshCount       int        `json:"fresh_count"`
	RetouchCount     int        `json:"retouch_count"`
	CompaniesTouched int        `json:"companies_touched"`
	Contacts         []*Contact `json:"contacts"`
	Warnings         []string   `json:"warnings,omitempty"`

	InternalFilled    int                `json:"internal_filled"`
	ExternalFilled    int                `json:"external_filled"`
	PerProviderCounts map[string]int     `json:"per_provider_counts,omitempty"`
	CreditsConsumed   map[string]float64 `json:"credits_consumed,omitempty"`
	WriteBackCount    int                `json:"write_back_count"`
	WriteBackDetails  *WriteBackResult   `json:"write_back_details,omitempty"`
}

// EligibilityQuery parameterises the single eligibility read. Statuses
// is typically {fresh} or {retouch_eligible}.
type EligibilityQuery struct {
	ClientID      string
	Channel       Channel
	Statuses      []DispositionStatus
	TitleKeywords []string
	Limit         int
}

// ContactListFilter narrows ListContacts.
type ContactListFilter struct {
	ClientID string
	Status   DispositionStatus
	Search   string
	Limit    int
	Offset   int
}
