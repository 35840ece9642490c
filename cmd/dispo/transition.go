package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apqllyqn/lead-disposition/internal/state"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

var (
	transitionReason   string
	transitionTrigger  string
	transitionCampaign string
	transitionChannel  string
)

var transitionCmd = &cobra.Command{
	Use:   "transition <email> <client-id> <status>",
	Short: "Move a contact to a new disposition status",
	Long: `Applies one state machine transition: validates legality, stamps
cooldowns and suppression flags, records history, and updates the
company's aggregate state. Moving to the current status is a no-op.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, clientID := args[0], args[1]
		target := types.DispositionStatus(args[2])
		if !target.IsValid() {
			return fmt.Errorf("unknown status %q", target)
		}

		sm := state.New(store, cfg, logger)
		err := sm.Transition(rootCtx, email, clientID, target, state.TransitionOptions{
			Reason:      transitionReason,
			TriggeredBy: types.TriggeredBy(transitionTrigger),
			CampaignID:  transitionCampaign,
			Channel:     types.ParseChannel(transitionChannel),
		})
		if err != nil {
			return err
		}

		contact, err := store.GetContact(rootCtx, email, clientID)
		if err != nil {
			return err
		}
		return emit(contact, func() {
			fmt.Printf("%s -> %s\n", email, contact.DispositionStatus)
		})
	},
}

func init() {
	transitionCmd.Flags().StringVar(&transitionReason, "reason", "", "Reason recorded in history")
	transitionCmd.Flags().StringVar(&transitionTrigger, "triggered-by", "manual", "Trigger source (manual, campaign_fill, reply_classifier, maintenance)")
	transitionCmd.Flags().StringVar(&transitionCampaign, "campaign", "", "Campaign id recorded in history")
	transitionCmd.Flags().StringVar(&transitionChannel, "channel", "email", "Channel the event arrived on (email, linkedin, phone)")
	rootCmd.AddCommand(transitionCmd)
}
