package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apqllyqn/lead-disposition/internal/deconflict"
	"github.com/apqllyqn/lead-disposition/internal/state"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run time-based maintenance transitions",
}

var sweepCooldownsCmd = &cobra.Command{
	Use:   "cooldowns",
	Short: "Move contacts with lapsed cooldowns to retouch_eligible",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm := state.New(store, cfg, logger)
		n, err := sm.ProcessExpiredCooldowns(rootCtx)
		if err != nil {
			return err
		}
		fmt.Printf("Processed %d expired cooldowns\n", n)
		return nil
	},
}

var sweepStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "Flag contacts whose enrichment data has aged out",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm := state.New(store, cfg, logger)
		n, err := sm.ProcessStaleData(rootCtx, cfg.StaleDataMonths)
		if err != nil {
			return err
		}
		fmt.Printf("Flagged %d stale contacts\n", n)
		return nil
	},
}

var sweepOwnershipCmd = &cobra.Command{
	Use:   "ownership",
	Short: "Release expired company ownerships",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := deconflict.New(store, cfg, logger)
		n, err := d.SweepExpired(rootCtx)
		if err != nil {
			return err
		}
		fmt.Printf("Released %d expired ownerships\n", n)
		return nil
	},
}

var sweepAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every sweep in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm := state.New(store, cfg, logger)
		d := deconflict.New(store, cfg, logger)

		cooldowns, err := sm.ProcessExpiredCooldowns(rootCtx)
		if err != nil {
			return err
		}
		stale, err := sm.ProcessStaleData(rootCtx, cfg.StaleDataMonths)
		if err != nil {
			return err
		}
		ownerships, err := d.SweepExpired(rootCtx)
		if err != nil {
			return err
		}
		fmt.Printf("Sweeps complete: cooldowns=%d stale=%d ownerships=%d\n",
			cooldowns, stale, ownerships)
		return nil
	},
}

func init() {
	sweepCmd.AddCommand(sweepCooldownsCmd, sweepStaleCmd, sweepOwnershipCmd, sweepAllCmd)
	rootCmd.AddCommand(sweepCmd)
}
