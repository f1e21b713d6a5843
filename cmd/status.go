package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

var statusVerify bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Restore the session the way every command does and print the result.

A stored token is trusted without asking the server. Use --verify to check it
against the backend as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		status := a.auth.Boot(ctx)
		out := cmd.OutOrStdout()
		printAuthState(out, a.auth.State(), time.Now())

		if statusVerify && status == internal.StatusAuthed {
			fmt.Fprintln(out)
			var me *internal.MeResponse
			err := internal.ShowProgress(ctx, "Verifying token", func() error {
				var meErr error
				me, meErr = a.api.Me(ctx, a.auth.State().Token)
				return meErr
			})
			switch {
			case err != nil:
				internal.PrintWarning(out, fmt.Sprintf("Server rejected the stored token: %v", err))
			case !me.Authed:
				internal.PrintWarning(out, "Server reports the session as expired")
			default:
				internal.PrintSuccess(out, "Server accepted the stored token")
			}
		}
		return nil
	},
}

func printAuthState(w io.Writer, state internal.AuthState, now time.Time) {
	fmt.Fprintln(w, headerStyle.Render("🔐 Session"))
	fmt.Fprintln(w)

	switch state.Status {
	case internal.StatusAuthed:
		fmt.Fprintf(w, "   Status: %s\n", successStyle.Render(string(state.Status)))
	default:
		fmt.Fprintf(w, "   Status: %s\n", warningStyle.Render(string(state.Status)))
		return
	}

	if state.User != nil {
		if name := state.User.DisplayName(); name != "" {
			fmt.Fprintf(w, "   User:   %s\n", titleStyle.Render(name))
		}
		if state.User.Email != "" {
			fmt.Fprintf(w, "   Email:  %s\n", state.User.Email)
		}
	}
	fmt.Fprintf(w, "   Token:  %s\n", idStyle.Render(internal.RedactToken(state.Token)))

	info := internal.InspectToken(state.Token)
	switch {
	case info.Opaque:
		fmt.Fprintf(w, "   Expiry: %s\n", dateStyle.Render("unknown (opaque token)"))
	case info.ExpiresAt.IsZero():
		fmt.Fprintf(w, "   Expiry: %s\n", dateStyle.Render("none"))
	case info.Expired(now):
		fmt.Fprintf(w, "   Expiry: %s\n", errorStyle.Render("expired "+info.ExpiresAt.Format(time.RFC3339)))
	default:
		fmt.Fprintf(w, "   Expiry: %s\n", dateStyle.Render(info.ExpiresAt.Format(time.RFC3339)))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusVerify, "verify", false, "Also check the token against the backend")
}
