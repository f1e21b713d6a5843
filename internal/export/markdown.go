package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/libra-session/internal"
)

// MarkdownExporter exports threads in Markdown format
type MarkdownExporter struct{}

// Export exports a thread to Markdown format
func (e *MarkdownExporter) Export(thread *internal.Thread, w io.Writer) error {
	name := thread.Name
	if name == "" {
		name = "Chat"
	}
	if _, err := fmt.Fprintf(w, "# %s\n\n", name); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "**ID:** %s  \n", thread.ID)
	if thread.Date != "" {
		_, _ = fmt.Fprintf(w, "**Date:** %s  \n", thread.Date)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(thread.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range thread.Messages {
		_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", speaker(msg.Sender), escapeMarkdown(msg.Text))

		if i < len(thread.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func speaker(sender string) string {
	if sender == internal.SenderUser {
		return "You"
	}
	return "Assistant"
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
