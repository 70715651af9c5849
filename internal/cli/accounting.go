package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newAccountingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounting",
		Short: "Monthly accounting reports",
	}

	cmd.AddCommand(newAccountingSummaryCmd())

	return cmd
}

func newAccountingSummaryCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show revenue, costs and profit for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if month == "" {
				month = time.Now().UTC().Format("2006-01")
			}

			summary, err := apiClient.Accounting().Summary(context.Background(), month)
			if err != nil {
				return fmt.Errorf("failed to get accounting summary: %w", err)
			}

			if done, err := printStructured(out, summary); done {
				return err
			}

			fmt.Fprintf(out, "Month:    %s\n", summary.Month)
			fmt.Fprintf(out, "Orders:   %d\n", summary.OrderCount)
			fmt.Fprintf(out, "Revenue:  %s\n", formatMoney(summary.TotalRevenue))
			fmt.Fprintf(out, "Costs:    %s\n", formatMoney(summary.TotalCosts))
			fmt.Fprintf(out, "Profit:   %s\n", formatMoney(summary.Profit))

			if len(summary.RevenueByService) > 0 {
				fmt.Fprintln(out)
				services := make([]string, 0, len(summary.RevenueByService))
				for s := range summary.RevenueByService {
					services = append(services, s)
				}
				sort.Strings(services)

				table := NewTable(out, "SERVICE", "REVENUE")
				for _, s := range services {
					table.AddRow(s, formatMoney(summary.RevenueByService[s]))
				}
				table.Render()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")

	return cmd
}
