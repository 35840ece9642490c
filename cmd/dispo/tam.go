package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apqllyqn/lead-disposition/internal/tam"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

var (
	tamClient string
	tamDays   int
)

// tamScope turns the --client flag into the tracker's scope argument.
func tamScope() *string {
	if tamClient == "" {
		return nil
	}
	return &tamClient
}

var tamCmd = &cobra.Command{
	Use:   "tam",
	Short: "Total addressable market tracking",
}

var tamHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report pool segmentation, burn rate, and exhaustion forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker := tam.New(store, cfg, logger)
		health, err := tracker.Health(rootCtx, tamScope())
		if err != nil {
			return err
		}
		return emit(health, func() { printHealth(health) })
	},
}

var tamSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture today's TAM snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker := tam.New(store, cfg, logger)
		all, _ := cmd.Flags().GetBool("all")
		if all {
			results, err := tracker.CaptureAll(rootCtx)
			if err != nil {
				return err
			}
			fmt.Printf("Captured %d snapshots\n", len(results))
			return nil
		}
		health, err := tracker.CaptureSnapshot(rootCtx, tamScope())
		if err != nil {
			return err
		}
		return emit(health, func() { printHealth(health) })
	},
}

var tamTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show snapshot history for the last N days",
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker := tam.New(store, cfg, logger)
		snaps, err := tracker.Trends(rootCtx, tamScope(), tamDays)
		if err != nil {
			return err
		}
		return emit(snaps, func() {
			for _, s := range snaps {
				eta := "-"
				if s.ExhaustionETAWeeks != nil {
					eta = fmt.Sprintf("%.1fw", *s.ExhaustionETAWeeks)
				}
				fmt.Printf("%s\tavailable=%d burn=%.1f eta=%s\n",
					s.SnapshotDate, s.AvailableNow, s.BurnRateWeekly, eta)
			}
		})
	},
}

func printHealth(h *types.TAMHealth) {
	fmt.Printf("Status: %s\n", h.HealthStatus)
	fmt.Printf("  universe=%d never_touched=%d available=%d in_cooldown=%d\n",
		h.TotalUniverse, h.NeverTouched, h.AvailableNow, h.InCooldown)
	fmt.Printf("  in_sequence=%d suppressed=%d customers=%d\n",
		h.InSequence, h.PermanentSuppress, h.WonCustomer)
	if h.ExhaustionETAWeeks != nil {
		fmt.Printf("  burn=%.1f/wk exhaustion in %.1f weeks\n",
			h.BurnRateWeekly, *h.ExhaustionETAWeeks)
	} else {
		fmt.Printf("  burn=%.1f/wk no forecast\n", h.BurnRateWeekly)
	}
}

func init() {
	tamCmd.PersistentFlags().StringVar(&tamClient, "client", "", "Scope to one client (default: global)")
	tamSnapshotCmd.Flags().Bool("all", false, "Snapshot global plus every client")
	tamTrendsCmd.Flags().IntVar(&tamDays, "days", 30, "History window in days")
	tamCmd.AddCommand(tamHealthCmd, tamSnapshotCmd, tamTrendsCmd)
	rootCmd.AddCommand(tamCmd)
}
