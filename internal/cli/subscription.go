package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Manage your subscription",
	}

	cmd.AddCommand(newSubscriptionStatusCmd())
	cmd.AddCommand(newSubscriptionCheckoutCmd())
	cmd.AddCommand(newSubscriptionPortalCmd())

	return cmd
}

func newSubscriptionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show subscription status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			status, err := apiClient.Subscription().Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get subscription status: %w", err)
			}

			if done, err := printStructured(out, status); done {
				return err
			}

			fmt.Fprintf(out, "Status: %s\n", formatStatus(status.Status))
			if s := status.Subscription; s != nil {
				table := NewTable(out, "ID", "STATUS", "PLAN", "PRODUCT", "PERIOD END", "CANCELS")
				cancels := "no"
				if s.CancelAtPeriodEnd {
					cancels = "yes"
				}
				table.AddRow(s.ID, s.Status, s.Plan.ID, s.Plan.Product, s.CurrentPeriodEnd.Format(time.DateOnly), cancels)
				table.Render()
			}
			return nil
		},
	}
}

func newSubscriptionCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Start a subscription checkout and print the payment URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			session, err := apiClient.Subscription().Checkout(context.Background())
			if err != nil {
				return fmt.Errorf("failed to create checkout session: %w", err)
			}

			if done, err := printStructured(out, session); done {
				return err
			}

			fmt.Fprintf(out, "Session: %s\nOpen this URL to pay:\n  %s\n", session.SessionID, session.URL)
			return nil
		},
	}
}

func newSubscriptionPortalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portal",
		Short: "Print a billing portal URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			portal, err := apiClient.Subscription().Portal(context.Background())
			if err != nil {
				return fmt.Errorf("failed to create portal session: %w", err)
			}

			if done, err := printStructured(out, portal); done {
				return err
			}

			fmt.Fprintf(out, "Manage your subscription at:\n  %s\n", portal.URL)
			return nil
		},
	}
}
