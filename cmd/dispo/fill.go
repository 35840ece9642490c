package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apqllyqn/lead-disposition/internal/fill"
	"github.com/apqllyqn/lead-disposition/internal/provider"
	"github.com/apqllyqn/lead-disposition/internal/types"
	"github.com/apqllyqn/lead-disposition/internal/waterfall"
)

var (
	fillCampaign      string
	fillClient        string
	fillChannel       string
	fillVolume        int
	fillTitles        []string
	fillFreshRatio    float64
	fillMaxPerCompany int
	fillExternal      bool
	fillMaxCredits    float64
	fillProviders     []string
	fillIndustry      string
	fillKeywords      []string
	fillDomains       []string
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill a campaign with eligible contacts",
	Long: `Selects eligible contacts (blending fresh and retouch pools),
assigns them to the campaign, and claims unowned companies for the
client. With --external, shortfalls cascade through the configured
lead providers and sourced leads are written back before a refill.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fillCampaign == "" || fillClient == "" || fillVolume <= 0 {
			return fmt.Errorf("--campaign, --client, and a positive --volume are required")
		}

		var ratio *float64
		if cmd.Flags().Changed("fresh-ratio") {
			ratio = &fillFreshRatio
		}

		if !fillExternal {
			engine := fill.New(store, cfg, logger)
			result, err := engine.Fill(rootCtx, types.FillRequest{
				CampaignID:    fillCampaign,
				ClientID:      fillClient,
				Channel:       types.ParseChannel(fillChannel),
				Volume:        fillVolume,
				TitleKeywords: fillTitles,
				FreshRatio:    ratio,
				MaxPerCompany: fillMaxPerCompany,
			})
			if err != nil {
				return err
			}
			return emit(result, func() { printFillSummary(result) })
		}

		maxCredits := fillMaxCredits
		if !cmd.Flags().Changed("max-credits") {
			maxCredits = cfg.WaterfallMaxCredits
		}
		engine := waterfall.New(store, provider.FromConfig(cfg), cfg, logger)
		result, err := engine.Fill(rootCtx, types.WaterfallRequest{
			CampaignID:         fillCampaign,
			ClientID:           fillClient,
			Channel:            types.ParseChannel(fillChannel),
			Volume:             fillVolume,
			TitleKeywords:      fillTitles,
			FreshRatio:         ratio,
			MaxPerCompany:      fillMaxPerCompany,
			EnableExternal:     true,
			MaxExternalCredits: maxCredits,
			ProvidersOverride:  fillProviders,
			Industry:           fillIndustry,
			SearchKeywords:     fillKeywords,
			CompanyDomains:     fillDomains,
		})
		if err != nil {
			return err
		}
		return emit(result, func() {
			fmt.Printf("Assigned %d/%d (fresh=%d retouch=%d companies=%d internal=%d external=%d)\n",
				result.TotalAssigned, result.TotalRequested,
				result.FreshCount, result.RetouchCount, result.CompaniesTouched,
				result.InternalFilled, result.ExternalFilled)
			for _, w := range result.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
		})
	},
}

func printFillSummary(result *types.FillResult) {
	fmt.Printf("Assigned %d/%d (fresh=%d retouch=%d companies=%d)\n",
		result.TotalAssigned, result.TotalRequested,
		result.FreshCount, result.RetouchCount, result.CompaniesTouched)
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

func init() {
	fillCmd.Flags().StringVar(&fillCampaign, "campaign", "", "Campaign id")
	fillCmd.Flags().StringVar(&fillClient, "client", "", "Client id")
	fillCmd.Flags().StringVar(&fillChannel, "channel", "email", "Outreach channel")
	fillCmd.Flags().IntVar(&fillVolume, "volume", 0, "Number of contacts to assign")
	fillCmd.Flags().StringSliceVar(&fillTitles, "titles", nil, "Title keywords (substring match)")
	fillCmd.Flags().Float64Var(&fillFreshRatio, "fresh-ratio", 0, "Fresh/retouch blend override in [0,1]")
	fillCmd.Flags().IntVar(&fillMaxPerCompany, "max-per-company", 0, "Per-company cap override")
	fillCmd.Flags().BoolVar(&fillExternal, "external", false, "Cascade to external providers on shortfall")
	fillCmd.Flags().Float64Var(&fillMaxCredits, "max-credits", 0, "External credit budget")
	fillCmd.Flags().StringSliceVar(&fillProviders, "providers", nil, "Override provider order")
	fillCmd.Flags().StringVar(&fillIndustry, "industry", "", "Industry for external search")
	fillCmd.Flags().StringSliceVar(&fillKeywords, "keywords", nil, "Keywords for external search")
	fillCmd.Flags().StringSliceVar(&fillDomains, "domains", nil, "Company domains for external search")
	rootCmd.AddCommand(fillCmd)
}
