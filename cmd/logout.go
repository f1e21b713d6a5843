package cmd

import (
	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the stored session",
	Long: `Log out. The local session is always removed, even when the backend
cannot be reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		_ = internal.ShowProgress(ctx, "Signing out", func() error {
			a.auth.Logout(ctx)
			return nil
		})
		internal.PrintSuccess(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
