package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/storage/postgres"
	"github.com/apqllyqn/lead-disposition/internal/storage/sqlite"
	"github.com/apqllyqn/lead-disposition/internal/telemetry"
)

var version = "0.3.0"

var (
	cfg        *config.Config
	store      storage.Store
	logger     *slog.Logger
	jsonOutput bool

	// Signal-aware context for graceful cancellation.
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "dispo",
	Short: "dispo - Outbound contact disposition control plane",
	Long: `Tracks every outbound contact through a disposition lifecycle,
enforces cooldowns and suppressions, deconflicts company ownership
across clients, and fills campaigns from internal and external pools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("dispo version %s\n", version)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

		cfg = config.Load()
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

		if err := telemetry.Init(rootCtx, "dispo", version); err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}

		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		store, err = openStore(rootCtx)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		telemetry.Shutdown(ctx)
		cancel()
		if rootCancel != nil {
			rootCancel()
		}
	},
}

// openStore picks the configured driver and wraps it with telemetry.
func openStore(ctx context.Context) (storage.Store, error) {
	var (
		s   storage.Store
		err error
	)
	if cfg.UseSQLite {
		s, err = sqlite.New(ctx, cfg.SQLitePath)
	} else {
		s, err = postgres.New(ctx, cfg.PostgresDSN())
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return telemetry.WrapStore(s), nil
}

// emit prints v as indented JSON when --json is set, otherwise calls
// the plain-text fallback.
func emit(v any, plain func()) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	plain()
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.Flags().Bool("version", false, "Show version")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
