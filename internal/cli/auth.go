package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(newAuthTokenCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [access-token]",
		Short: "Store the identity access token used for API calls",
		Long: `Stores an access token issued by the identity provider. When no token
is given as an argument it is read from the terminal without echo.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				token = promptSecret(cmd, "Access token: ")
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("access token is required")
			}

			viper.Set("auth.token", token)
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Access token saved")
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("auth.token", "")
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// promptSecret reads without echo from a terminal, or a plain line otherwise
func promptSecret(cmd *cobra.Command, label string) string {
	fmt.Fprint(cmd.ErrOrStderr(), label)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return ""
		}
		return string(b)
	}

	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return line
}
