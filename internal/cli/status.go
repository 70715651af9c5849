package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status, and subscription status when logged in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			out := cmd.OutOrStdout()

			server, err := apiClient.Status(ctx)
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}

			summary := map[string]interface{}{
				"server":    server.Status,
				"timestamp": server.Timestamp,
			}

			if token := viper.GetString("auth.token"); token != "" {
				apiClient.SetToken(token)
				sub, err := apiClient.Subscription().Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get subscription status: %w", err)
				}
				summary["subscription"] = sub.Status
			}

			if done, err := printStructured(out, summary); done {
				return err
			}

			fmt.Fprintf(out, "Server:        %s (%s)\n", formatStatus(server.Status), server.Timestamp)
			if sub, ok := summary["subscription"]; ok {
				fmt.Fprintf(out, "Subscription:  %s\n", formatStatus(sub.(string)))
			} else {
				fmt.Fprintln(out, "Subscription:  (not logged in)")
			}
			return nil
		},
	}
}
