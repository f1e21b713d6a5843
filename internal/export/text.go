package export

import (
	"io"

	"github.com/iksnae/libra-session/internal"
)

// TextExporter writes the plain transcript the chat download produced
type TextExporter struct{}

// Export writes speaker-prefixed paragraphs
func (e *TextExporter) Export(thread *internal.Thread, w io.Writer) error {
	_, err := io.WriteString(w, internal.FormatTranscript(thread))
	return err
}

// Extension returns the file extension for this format
func (e *TextExporter) Extension() string {
	return "txt"
}
