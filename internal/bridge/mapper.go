// Package bridge consumes the lead_pull_jobs intake queue that the
// onboarding platform writes, turning each job into a waterfall fill.
package bridge

import (
	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// BuildWaterfallRequest converts an intake job into a waterfall fill
// request. The search_criteria blob is populated upstream from
// onboarding submissions, so every field is treated as optional and
// loosely typed.
func BuildWaterfallRequest(job *types.PullJob, cfg *config.Config) types.WaterfallRequest {
	criteria := job.SearchCriteria

	// Title keywords come from two onboarding sources, merged in order
	// with duplicates dropped.
	titles := flattenStrings(criteria["title_keywords"])
	titles = append(titles, flattenStrings(criteria["persona_titles"])...)
	titles = dedup(titles)

	// Search keywords are pain points plus buying signals. Signals may
	// be plain strings or objects keyed by name.
	keywords := flattenStrings(criteria["search_keywords"])
	if signals, ok := criteria["signals"].([]any); ok {
		for _, sig := range signals {
			switch v := sig.(type) {
			case string:
				if v != "" {
					keywords = append(keywords, v)
				}
			case map[string]any:
				if name, _ := v["name"].(string); name != "" {
					keywords = append(keywords, name)
				}
			}
		}
	}

	industry, _ := criteria["industry"].(string)

	// The suggestion links the fill back to the approved strategy; the
	// job id stands in when there is none.
	campaignID := job.SuggestionID
	if campaignID == "" {
		campaignID = job.ID
	}

	volume := job.Volume
	if volume <= 0 {
		volume = cfg.DefaultVolume
	}

	return types.WaterfallRequest{
		CampaignID:         campaignID,
		ClientID:           job.ClientID,
		Channel:            types.ParseChannel(job.Channel),
		Volume:             volume,
		TitleKeywords:      titles,
		Industry:           industry,
		SearchKeywords:     keywords,
		EnableExternal:     job.EnableExternal,
		MaxExternalCredits: job.MaxExternalCredits,
	}
}

// flattenStrings normalizes a decoded JSON value that may be a string,
// an array of values, or absent into a list of strings.
func flattenStrings(val any) []string {
	switch v := val.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

func dedup(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
