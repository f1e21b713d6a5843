package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/libra-session/internal"
)

// JSONLExporter exports threads in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	ChatID string `json:"chat_id"`
	Index  int    `json:"index"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Export exports a thread to JSONL format
func (e *JSONLExporter) Export(thread *internal.Thread, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, msg := range thread.Messages {
		line := jsonlLine{ChatID: thread.ID, Index: i, Sender: msg.Sender, Text: msg.Text}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
