package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apqllyqn/lead-disposition/internal/deconflict"
)

var ownershipCmd = &cobra.Command{
	Use:   "ownership",
	Short: "Inspect and manage company ownership",
}

var ownershipListCmd = &cobra.Command{
	Use:   "list <client-id>",
	Short: "List companies currently owned by a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		companies, err := store.ListOwnedCompanies(rootCtx, args[0])
		if err != nil {
			return err
		}
		return emit(companies, func() {
			for _, c := range companies {
				expires := "never"
				if c.OwnershipExpiresAt != nil {
					expires = c.OwnershipExpiresAt.Format("2006-01-02")
				}
				fmt.Printf("%s\texpires %s\n", c.Domain, expires)
			}
			fmt.Printf("%d companies\n", len(companies))
		})
	},
}

var ownershipCheckCmd = &cobra.Command{
	Use:   "check <domain> <client-id>",
	Short: "Check whether a client may target a company",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := deconflict.New(store, cfg, logger)
		ok, err := d.CanTarget(rootCtx, args[0], args[1])
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("%s may target %s\n", args[1], args[0])
		} else {
			fmt.Printf("%s is owned by another client\n", args[0])
		}
		return nil
	},
}

var ownershipClaimCmd = &cobra.Command{
	Use:   "claim <domain> <client-id>",
	Short: "Claim an unowned company for a client",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := deconflict.New(store, cfg, logger)
		ok, err := d.Claim(rootCtx, args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is already owned by another client", args[0])
		}
		fmt.Printf("%s claimed by %s\n", args[0], args[1])
		return nil
	},
}

var ownershipReleaseCmd = &cobra.Command{
	Use:   "release <domain>",
	Short: "Manually release a company's ownership",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := deconflict.New(store, cfg, logger)
		ok, err := d.Release(rootCtx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not owned", args[0])
		}
		fmt.Printf("%s released\n", args[0])
		return nil
	},
}

var ownershipTransferCmd = &cobra.Command{
	Use:   "transfer <domain> <new-client-id>",
	Short: "Transfer a company's ownership to another client",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := deconflict.New(store, cfg, logger)
		ok, err := d.Transfer(rootCtx, args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s does not exist", args[0])
		}
		fmt.Printf("%s transferred to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	ownershipCmd.AddCommand(
		ownershipListCmd,
		ownershipCheckCmd,
		ownershipClaimCmd,
		ownershipReleaseCmd,
		ownershipTransferCmd,
	)
	rootCmd.AddCommand(ownershipCmd)
}
