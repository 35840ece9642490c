// Package waterfall cascades a campaign fill across lead sources: the
// internal database first, then external providers in priority order
// until the volume is met or the credit budget runs out. External
// leads are written back internally before a final refill pass, so
// every assignment still flows through the disposition state machine.
package waterfall

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/fill"
	"github.com/apqllyqn/lead-disposition/internal/provider"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// Engine orchestrates the multi-source cascade.
type Engine struct {
	store     storage.Store
	providers []provider.Provider
	fill      *fill.Engine
	cfg       *config.Config
	log       *slog.Logger
}

func New(store storage.Store, providers []provider.Provider, cfg *config.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:     store,
		providers: provider.SortByPriority(providers),
		fill:      fill.New(store, cfg, log),
		cfg:       cfg,
		log:       log,
	}
}

// Fill runs the cascade. External sourcing is best effort: provider
// failures become warnings and the cascade moves on. Only context
// cancellation and internal storage failures abort.
func (e *Engine) Fill(ctx context.Context, req types.WaterfallRequest) (*types.WaterfallResult, error) {
	result := &types.WaterfallResult{
		CampaignID:        req.CampaignID,
		ClientID:          req.ClientID,
		TotalRequested:    req.Volume,
		PerProviderCounts: make(map[string]int),
		CreditsConsumed:   make(map[string]float64),
	}

	internal, err := e.fill.Fill(ctx, req.FillRequest())
	if err != nil {
		return nil, err
	}
	result.InternalFilled = internal.TotalAssigned
	result.TotalAssigned = internal.TotalAssigned
	result.FreshCount = internal.FreshCount
	result.RetouchCount = internal.RetouchCount
	result.CompaniesTouched = internal.CompaniesTouched
	result.Contacts = append(result.Contacts, internal.Contacts...)
	result.Warnings = append(result.Warnings, internal.Warnings...)
	result.PerProviderCounts["internal"] = internal.TotalAssigned

	e.log.Info("internal fill",
		"assigned", internal.TotalAssigned,
		"requested", req.Volume)

	deficit := req.Volume - result.TotalAssigned
	if deficit <= 0 || !req.EnableExternal {
		return result, nil
	}
	if !e.cfg.WaterfallEnabled {
		result.Warnings = append(result.Warnings, "Waterfall disabled - external sources skipped")
		return result, nil
	}

	e.log.Info("internal shortfall", "deficit", deficit)

	criteria := provider.SearchCriteria{
		ClientID:       req.ClientID,
		Industry:       req.Industry,
		JobTitles:      req.TitleKeywords,
		CompanySizes:   req.CompanySizes,
		Locations:      req.Locations,
		Keywords:       req.SearchKeywords,
		CompanyDomains: req.CompanyDomains,
	}

	var external []provider.Lead
	totalCredits := 0.0
	for _, p := range e.activeProviders(req.ProvidersOverride) {
		if deficit <= 0 {
			break
		}
		if totalCredits >= req.MaxExternalCredits {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Credit limit reached (%.1f/%.1f)", totalCredits, req.MaxExternalCredits))
			break
		}

		e.log.Info("querying provider", "provider", p.Name(), "deficit", deficit)

		searched, err := p.Search(ctx, criteria.WithLimit(deficit))
		if err != nil {
			// Search errors only on cancellation; return what we have.
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s interrupted: %v", p.Name(), err))
			break
		}
		result.Warnings = append(result.Warnings, searched.Errors...)

		found := len(searched.Leads)
		result.PerProviderCounts[p.Name()] = found
		result.CreditsConsumed[p.Name()] = searched.CreditsConsumed
		totalCredits += searched.CreditsConsumed

		e.log.Info("provider results",
			"provider", p.Name(),
			"leads", found,
			"credits", searched.CreditsConsumed)

		external = append(external, searched.Leads...)
		deficit -= found
	}

	if len(external) > 0 {
		wb := writeBack(ctx, e.store, external, req.ClientID, e.log)
		result.WriteBackCount = wb.NewInserted
		result.WriteBackDetails = wb
		result.Warnings = append(result.Warnings, wb.Errors...)

		e.log.Info("write-back",
			"new", wb.NewInserted,
			"duplicates", wb.DuplicatesSkipped,
			"invalid", wb.InvalidSkipped)

		if wb.NewInserted > 0 {
			if remaining := req.Volume - result.TotalAssigned; remaining > 0 {
				if err := e.refill(ctx, req, remaining, result); err != nil {
					return nil, err
				}
			}
		}
	}

	if result.TotalAssigned < req.Volume {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Final shortfall: requested %d, assigned %d (internal=%d, external=%d)",
			req.Volume, result.TotalAssigned, result.InternalFilled, result.ExternalFilled))
	}
	return result, nil
}

// refill runs a second internal pass over the freshly written-back
// leads. They are all fresh, so the blend ratio is forced to one.
func (e *Engine) refill(ctx context.Context, req types.WaterfallRequest, remaining int, result *types.WaterfallResult) error {
	refillReq := req.FillRequest()
	refillReq.Volume = remaining
	refillReq.FreshRatio = types.Ptr(1.0)

	refilled, err := e.fill.Fill(ctx, refillReq)
	if err != nil {
		return err
	}
	result.ExternalFilled = refilled.TotalAssigned
	result.TotalAssigned += refilled.TotalAssigned
	result.FreshCount += refilled.FreshCount
	result.CompaniesTouched += refilled.CompaniesTouched
	result.Contacts = append(result.Contacts, refilled.Contacts...)
	result.Warnings = append(result.Warnings, refilled.Warnings...)

	e.log.Info("refill from write-back", "assigned", refilled.TotalAssigned)
	return nil
}

// activeProviders returns the cascade order: the request override when
// present, otherwise the configured order.
func (e *Engine) activeProviders(override []string) []provider.Provider {
	if len(override) > 0 {
		allowed := make(map[string]bool, len(override))
		for _, name := range override {
			allowed[name] = true
		}
		var active []provider.Provider
		for _, p := range e.providers {
			if allowed[p.Name()] {
				active = append(active, p)
			}
		}
		return active
	}

	order := make(map[string]int)
	for i, name := range e.cfg.ProviderOrder() {
		order[name] = i
	}
	var active []provider.Provider
	for _, p := range e.providers {
		if _, ok := order[p.Name()]; ok {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return order[active[i].Name()] < order[active[j].Name()]
	})
	return active
}
