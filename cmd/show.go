package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

var showLimit int

var (
	threadHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	threadMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	counterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// chatShowCmd prints one thread, the active one by default
var chatShowCmd = &cobra.Command{
	Use:   "show [thread-id]",
	Short: "Show the messages of a thread",
	Long:  `Display the messages of a thread. Without an argument the active thread is shown.`,
	Args:  cobra.MaximumNArgs(1),
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

		var thread internal.Thread
		if len(args) == 1 {
			id, err := resolveThreadID(a.chats, args[0])
			if err != nil {
				return err
			}
			if thread, err = a.chats.Thread(id); err != nil {
				return err
			}
		} else {
			var ok bool
			if thread, ok = a.chats.Current(); !ok {
				return internal.ErrNoActiveThread
			}
		}

		displayThread(cmd.OutOrStdout(), &thread, showLimit)
		return nil
	},
}

func displayThread(out io.Writer, thread *internal.Thread, limit int) {
	fmt.Fprintln(out, threadHeaderStyle.Render(fmt.Sprintf("💬 %s", thread.Name)))

	metaParts := []string{fmt.Sprintf("ID: %s", thread.ID)}
	if thread.Date != "" {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", thread.Date))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", len(thread.Messages)))
	fmt.Fprintln(out, threadMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(out)

	messages := thread.Messages
	total := len(messages)
	if limit > 0 && limit < total {
		messages = messages[total-limit:]
		fmt.Fprintln(out, counterStyle.Render(fmt.Sprintf("... (%d earlier message(s))", total-limit)))
		fmt.Fprintln(out)
	}

	offset := total - len(messages)
	for i, msg := range messages {
		displayMessage(out, offset+i+1, msg, total)
	}
}

func displayMessage(out io.Writer, index int, msg internal.ChatMessage, total int) {
	var header string
	switch msg.Sender {
	case internal.SenderUser:
		header = userMessageStyle.Render("👤 You")
	case internal.SenderAssistant:
		header = assistantMessageStyle.Render("🤖 Assistant")
	default:
		header = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Render("🔧 " + msg.Sender)
	}
	fmt.Fprintln(out, header+" "+counterStyle.Render(fmt.Sprintf("[%d/%d]", index, total)))

	content := strings.TrimSpace(msg.Text)
	if content == "" {
		fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	} else {
		fmt.Fprintln(out, messageContentStyle.Render(wrapText(content, 80)))
	}
	fmt.Fprintln(out)
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len([]rune(line)) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		current := ""
		for _, word := range strings.Fields(line) {
			switch {
			case current == "":
				current = word
			case len([]rune(current))+len([]rune(word))+1 > width:
				wrapped = append(wrapped, current)
				current = word
			default:
				current += " " + word
			}
		}
		if current != "" {
			wrapped = append(wrapped, current)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	chatCmd.AddCommand(chatShowCmd)
	chatShowCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Only show the last N messages")
}
