package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	configPath  string
	storagePath string
	apiURL      string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	cfg *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "libra-session",
	Short: "Sign in to Libra and chat with the legal assistant",
	Long: `A command-line client for the Libra legal assistant backend.

It keeps your session between runs, restores it on start, and stores your
assistant conversations locally so you can pick them up later.

Features:
  • Log in, register and log out against the Libra API
  • Session restore on every run without a network round-trip
  • Multiple assistant chat threads with local history
  • Export threads as text, Markdown, YAML, JSON or JSONL

Quick Start:
  libra-session login --email you@example.com   # Sign in
  libra-session chat send "What is the statute of limitations?"
  libra-session chat list                       # List your threads
  libra-session export --format md              # Export as Markdown`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		loaded, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if storagePath != "" {
			loaded.Storage.Path = storagePath
		}
		if apiURL != "" {
			loaded.API.BaseURL = apiURL
			if err := loaded.Validate(); err != nil {
				return err
			}
		}

		internal.SetLogOutput(os.Stderr, loaded.Log.Format)
		if !verbose {
			internal.SetLogLevel(internal.ParseLogLevel(loaded.Log.Level))
		}
		internal.UserAgent = "libra-session/" + version

		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.libra-session/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Custom storage location (path to the state database)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
