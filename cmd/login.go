package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the Libra backend",
	Long: `Log in with your email and password. The session is stored locally and
restored on every following run.

The password can also be passed through the LIBRA_PASSWORD environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(loginEmail)
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		password := loginPassword
		if password == "" {
			password = os.Getenv("LIBRA_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("a password is required (--password or LIBRA_PASSWORD)")
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		a.auth.Boot(ctx)
		if err := a.auth.RequireGuest(); err != nil {
			return fmt.Errorf("%w as %s (run 'libra-session logout' first)", err, a.auth.State().User.DisplayName())
		}

		err = internal.ShowProgress(ctx, "Signing in", func() error {
			_, loginErr := a.auth.Login(ctx, email, password)
			return loginErr
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if meta := a.auth.ConsumeLastLoginMeta(); meta != nil {
			internal.PrintSuccess(out, fmt.Sprintf("Welcome, %s!", meta.Name))
		} else {
			internal.PrintSuccess(out, "Logged in")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
}
