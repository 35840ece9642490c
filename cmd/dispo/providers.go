package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/apqllyqn/lead-disposition/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "External lead provider operations",
}

var providersHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check reachability of every configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		providers := provider.FromConfig(cfg)
		if len(providers) == 0 {
			fmt.Println("No providers configured")
			return nil
		}

		var mu sync.Mutex
		health := make(map[string]bool, len(providers))
		g, ctx := errgroup.WithContext(rootCtx)
		for _, p := range providers {
			g.Go(func() error {
				ok := p.HealthCheck(ctx)
				mu.Lock()
				health[p.Name()] = ok
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		return emit(health, func() {
			for _, p := range providers {
				status := "unhealthy"
				if health[p.Name()] {
					status = "ok"
				}
				fmt.Printf("%s (priority %d): %s\n", p.Name(), p.Priority(), status)
			}
		})
	},
}

func init() {
	providersCmd.AddCommand(providersHealthCmd)
	rootCmd.AddCommand(providersCmd)
}
