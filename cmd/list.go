package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

var listQuery string

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assistant threads",
	Long:  `List your local assistant threads, newest first. Use --query to filter by name or last message.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.chats.EnsureAtLeastOneThread(ctx); err != nil {
			return err
		}

		displayThreads(cmd.OutOrStdout(), a.chats.Search(listQuery), a.chats.CurrentID(), time.Now())
		return nil
	},
}

func displayThreads(out io.Writer, threads []internal.Thread, currentID string, now time.Time) {
	if len(threads) == 0 {
		fmt.Fprintln(out, headerStyle.Render("💬 No threads found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("💬 Found %d thread(s)", len(threads))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, " \t"+titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Created")+"\t"+titleStyle.Render("Last message")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, thread := range threads {
		marker := " "
		if thread.ID == currentID {
			marker = selectedStyle.Render("▶")
		}

		name := thread.Name
		if name == "" {
			name = "Untitled"
		}
		name = truncate(name, 40)
		name = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(name)

		msgCount := countStyle.Render(strconv.Itoa(len(thread.Messages)))

		last := strings.ReplaceAll(thread.LastMessage(), "\n", " ")
		if last == "" {
			last = "—"
		}
		last = dateStyle.Render(truncate(last, 40))

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", marker, idStyle.Render(shortID(thread.ID)), name, msgCount, formatCreated(&thread, now), last)
	}

	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the ID (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(shortID(threads[0].ID))+
		idStyle.Render(") with `libra-session chat select <id>`"))
}

func formatCreated(thread *internal.Thread, now time.Time) string {
	t := thread.CreatedAt()
	if t.IsZero() {
		if thread.Date != "" {
			return dateStyle.Render(thread.Date)
		}
		return dateStyle.Render("—")
	}
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return dateStyle.Render(t.Format("Today 15:04"))
	case diff < 7*24*time.Hour:
		return dateStyle.Render(t.Format("Mon 15:04"))
	case diff < 365*24*time.Hour:
		return dateStyle.Render(t.Format("Jan 02 15:04"))
	default:
		return dateStyle.Render(t.Format("2006-01-02"))
	}
}

// shortID shows the random tail of a ULID, which is what tells threads apart
func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	chatCmd.AddCommand(chatListCmd)
	chatListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Filter by name or last message")
}
