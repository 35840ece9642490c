package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database schema",
	Long: `Creates all disposition tables and indexes if they do not exist.
Safe to run repeatedly; existing data is never touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening the store applies the schema; all that is left is to
		// confirm the connection works.
		if err := store.Ping(rootCtx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		driver := "postgres"
		if cfg.UseSQLite {
			driver = "sqlite"
		}
		fmt.Printf("Database initialized (%s)\n", driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
