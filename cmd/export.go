package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iksnae/libra-session/internal"
	"github.com/iksnae/libra-session/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
	exportChatID string
	exportAll    bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export threads to file",
	Long: `Export assistant threads to a file (txt, jsonl, md, yaml, json).

By default the active thread is exported as a plain-text transcript named
after the thread. Use --chat-id for a specific thread or --all for every one.
Pass --out - to write a single thread to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportAll && exportChatID != "" {
			return fmt.Errorf("--all and --chat-id cannot be combined")
		}

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.chats.EnsureAtLeastOneThread(ctx); err != nil {
			return err
		}

		var threads []internal.Thread
		switch {
		case exportAll:
			threads = a.chats.Threads()
		case exportChatID != "":
			id, err := resolveThreadID(a.chats, exportChatID)
			if err != nil {
				return err
			}
			thread, err := a.chats.Thread(id)
			if err != nil {
				return err
			}
			threads = []internal.Thread{thread}
		default:
			thread, ok := a.chats.Current()
			if !ok {
				return internal.ErrNoActiveThread
			}
			threads = []internal.Thread{thread}
		}

		if exportOut == "-" {
			if len(threads) != 1 {
				return fmt.Errorf("--out - needs exactly one thread")
			}
			return exportTo(cmd.OutOrStdout(), a.chats, exporter, threads[0].ID, "-")
		}

		if err := os.MkdirAll(exportOut, 0755); err != nil {
			return &internal.ExportError{Format: exportFormat, Path: exportOut, Err: err}
		}

		exported := 0
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d thread(s) to %s", len(threads), exportOut), func() error {
			for i := range threads {
				path := filepath.Join(exportOut, export.FileName(&threads[i], exporter))
				if err := exportFile(path, a.chats, exporter, threads[i].ID); err != nil {
					internal.LogError("%v", err)
					continue
				}
				internal.LogDebug("Wrote %s", path)
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}
		if exported == 0 {
			return fmt.Errorf("no thread could be exported")
		}

		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Export complete: %d thread(s) exported to %s", exported, exportOut))
		return nil
	},
}

func exportFile(path string, chats *internal.ChatManager, exporter export.Exporter, id string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exportTo(file, chats, exporter, id, path); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

func exportTo(w io.Writer, chats *internal.ChatManager, exporter export.Exporter, id, path string) error {
	err := chats.ExportThread(id, w, exporter)
	var exportErr *internal.ExportError
	if errors.As(err, &exportErr) {
		exportErr.Path = path
	}
	return err
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "txt", "Export format (txt, jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", ".", "Output directory, or - for stdout")
	exportCmd.Flags().StringVar(&exportChatID, "chat-id", "", "Export a specific thread by ID")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every thread")
}
