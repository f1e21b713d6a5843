package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

var (
	registerEmail     string
	registerPassword  string
	registerFirstName string
	registerLastName  string
	registerMode      string
)

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a Libra account",
	Long: `Create a new account. Registration does not log you in; run
'libra-session login' afterwards.

Mode is "single" for an individual account or "multi" for an office account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := internal.RegisterRequest{
			Email:     strings.TrimSpace(registerEmail),
			Password:  registerPassword,
			FirstName: strings.TrimSpace(registerFirstName),
			LastName:  strings.TrimSpace(registerLastName),
			Mode:      registerMode,
		}
		if req.Password == "" {
			req.Password = os.Getenv("LIBRA_PASSWORD")
		}
		if err := validateRegisterRequest(req); err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var resp map[string]any
		err = internal.ShowProgress(ctx, "Creating account", func() error {
			var regErr error
			resp, regErr = a.auth.Register(ctx, req)
			return regErr
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		internal.PrintSuccess(out, fmt.Sprintf("Account created for %s", req.Email))
		if verify, _ := resp["requires_verification"].(bool); verify {
			internal.PrintInfo(out, "Check your inbox to verify the address before logging in")
		}
		return nil
	},
}

func validateRegisterRequest(req internal.RegisterRequest) error {
	switch {
	case req.Email == "":
		return fmt.Errorf("--email is required")
	case req.Password == "":
		return fmt.Errorf("a password is required (--password or LIBRA_PASSWORD)")
	case req.FirstName == "" || req.LastName == "":
		return fmt.Errorf("--first-name and --last-name are required")
	case req.Mode != "single" && req.Mode != "multi":
		return fmt.Errorf("unsupported mode: %s (supported: single, multi)", req.Mode)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "Account password")
	registerCmd.Flags().StringVar(&registerFirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&registerLastName, "last-name", "", "Last name")
	registerCmd.Flags().StringVar(&registerMode, "mode", "single", "Account mode (single, multi)")
}
