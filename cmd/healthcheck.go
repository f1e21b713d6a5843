package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that libra-session can reach its storage and the backend",
	Long: `Check the health of libra-session by verifying:
  • Configuration loading
  • Local state storage access
  • Stored session and thread data
  • Backend reachability

This command is useful for debugging configuration issues. Use --verbose for
detailed diagnostic information.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, sectionStyle.Render("🔍 Libra Session Health Check"))
		fmt.Fprintln(out)

		// Step 1: configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if verbose {
			fmt.Fprintf(out, "   API: %s (timeout %s)\n", cfg.API.BaseURL, cfg.API.Timeout)
			fmt.Fprintf(out, "   Storage: %s\n", describeStorage(cfg.Storage))
			for _, u := range cfg.AssistantURLs() {
				fmt.Fprintf(out, "   Assistant endpoint: %s\n", u)
			}
		}
		fmt.Fprintln(out)

		// Step 2: storage
		fmt.Fprintln(out, infoStyle.Render("Step 2: Opening local storage..."))
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open storage"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Error details:")
			fmt.Fprintln(out, err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer a.Close()
		fmt.Fprintln(out, successStyle.Render("✅ Storage opened"))
		if lister, ok := a.kv.(internal.KeyLister); ok {
			keys, err := lister.Keys(ctx)
			if err != nil {
				fmt.Fprintln(out, warningStyle.Render("⚠️  Could not list stored keys:"), err)
			} else {
				fmt.Fprintf(out, "   %d key(s) stored\n", len(keys))
				if verbose {
					printKeys(out, keys)
				}
			}
		}
		fmt.Fprintln(out)

		// Step 3: stored state
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking stored data..."))
		hasSession := a.sessions.HasSession(ctx)
		if hasSession {
			fmt.Fprintln(out, successStyle.Render("✅ Stored session found"))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No stored session (run 'libra-session login')"))
		}
		fmt.Fprintf(out, "   %d thread(s) stored\n", len(a.chats.Threads()))
		fmt.Fprintln(out)

		// Step 4: backend
		fmt.Fprintln(out, infoStyle.Render("Step 4: Contacting the backend..."))
		reachable := checkBackend(cmd, a)
		fmt.Fprintln(out)

		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if !reachable {
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintln(out, "   • Storage: Available")
			fmt.Fprintln(out, "   • Backend: Unreachable")
			return fmt.Errorf("health check failed: backend unreachable at %s", a.api.BaseURL())
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		fmt.Fprintln(out, successStyle.Render("   • Storage: Available"))
		fmt.Fprintln(out, successStyle.Render("   • Backend: Reachable"))
		if !hasSession {
			fmt.Fprintln(out, "   • Not signed in")
		}
		return nil
	},
}

// checkBackend reports whether the API answered at all. Any HTTP status counts
// as reachable; only transport failures do not.
func checkBackend(cmd *cobra.Command, a *app) bool {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	session := a.sessions.Read(ctx)
	me, err := a.api.Me(ctx, session.Token)

	var apiErr *internal.APIError
	switch {
	case err == nil:
		fmt.Fprintln(out, successStyle.Render("✅ Backend reachable"))
		if session.Token != "" {
			if me.Authed {
				fmt.Fprintln(out, successStyle.Render("✅ Stored token accepted"))
			} else {
				fmt.Fprintln(out, warningStyle.Render("⚠️  Stored token not accepted"))
			}
		}
		return true
	case errors.As(err, &apiErr):
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Backend reachable (HTTP %d)", apiErr.Status)))
		if verbose {
			fmt.Fprintf(out, "   %s\n", apiErr.Message())
		}
		return true
	default:
		fmt.Fprintln(out, errorStyle.Render("❌ Backend unreachable:"), err)
		return false
	}
}

func describeStorage(s internal.StorageConfig) string {
	if s.Driver == "redis" {
		return fmt.Sprintf("redis %s db %d (prefix %q)", s.RedisAddr, s.RedisDB, s.RedisPrefix)
	}
	return "sqlite " + s.Path
}

func printKeys(out io.Writer, keys []string) {
	for i, key := range keys {
		if i == 10 {
			fmt.Fprintf(out, "   ... and %d more\n", len(keys)-10)
			return
		}
		fmt.Fprintf(out, "   [%d] %s\n", i+1, key)
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
