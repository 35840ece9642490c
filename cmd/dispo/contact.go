package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apqllyqn/lead-disposition/internal/types"
)

var (
	contactClient string
	contactStatus string
	contactSearch string
	contactLimit  int
	contactOffset int
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Inspect contacts",
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts with optional filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		contacts, total, err := store.ListContacts(rootCtx, types.ContactListFilter{
			ClientID: contactClient,
			Status:   types.DispositionStatus(contactStatus),
			Search:   contactSearch,
			Limit:    contactLimit,
			Offset:   contactOffset,
		})
		if err != nil {
			return err
		}
		return emit(contacts, func() {
			for _, c := range contacts {
				fmt.Printf("%s\t%s\t%s\t%s\n",
					c.Email, c.ClientID, c.DispositionStatus, c.CompanyDomain)
			}
			fmt.Printf("%d of %d contacts\n", len(contacts), total)
		})
	},
}

var contactHistoryCmd = &cobra.Command{
	Use:   "history <email> <client-id>",
	Short: "Show a contact's disposition history, newest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := store.GetContactHistory(rootCtx, args[0], args[1], contactLimit)
		if err != nil {
			return err
		}
		return emit(history, func() {
			for _, h := range history {
				fmt.Printf("%s\t%s -> %s\t%s\t%s\n",
					h.CreatedAt.Format("2006-01-02 15:04"),
					h.PreviousStatus, h.NewStatus, h.TriggeredBy, h.TransitionReason)
			}
		})
	},
}

func init() {
	contactListCmd.Flags().StringVar(&contactClient, "client", "", "Filter by client id")
	contactListCmd.Flags().StringVar(&contactStatus, "status", "", "Filter by disposition status")
	contactListCmd.Flags().StringVar(&contactSearch, "search", "", "Substring match on email, name, or domain")
	contactListCmd.Flags().IntVar(&contactOffset, "offset", 0, "Pagination offset")
	contactCmd.PersistentFlags().IntVar(&contactLimit, "limit", 50, "Maximum rows returned")
	contactCmd.AddCommand(contactListCmd, contactHistoryCmd)
	rootCmd.AddCommand(contactCmd)
}
