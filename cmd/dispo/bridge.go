package main

import (
	"github.com/spf13/cobra"

	"github.com/apqllyqn/lead-disposition/internal/bridge"
	"github.com/apqllyqn/lead-disposition/internal/provider"
	"github.com/apqllyqn/lead-disposition/internal/waterfall"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the intake queue worker",
	Long: `Polls lead_pull_jobs for pending rows and executes a waterfall
fill for each, writing the result back onto the job. Runs until
interrupted; SIGINT and SIGTERM stop the loop cleanly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := bridge.NewLogger(cfg)
		providers := provider.FromConfig(cfg)
		defer func() {
			for _, p := range providers {
				_ = p.Close()
			}
		}()

		engine := waterfall.New(store, providers, cfg, log)
		worker := bridge.NewWorker(store, engine, cfg, log)
		return worker.Run(rootCtx)
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}
