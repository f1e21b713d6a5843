package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/libra-session/internal"
)

func TestJSONLExporter_Export(t *testing.T) {
	tests := []struct {
		name      string
		thread    *internal.Thread
		wantLines int
		want      []string
	}{
		{
			name:      "empty thread",
			thread:    internal.CreateTestThreadWithMessages("t1", []internal.ChatMessage{}),
			wantLines: 0,
		},
		{
			name:      "thread with messages",
			thread:    internal.CreateTestThread("t2"),
			wantLines: 3,
			want: []string{
				`"chat_id":"t2"`,
				`"sender":"user"`,
				`"sender":"assistant"`,
				`"index":2`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &JSONLExporter{}

			if err := exporter.Export(tt.thread, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			output := strings.TrimSpace(buf.String())
			var lines []string
			if output != "" {
				lines = strings.Split(output, "\n")
			}
			if len(lines) != tt.wantLines {
				t.Fatalf("Export() wrote %d lines, want %d", len(lines), tt.wantLines)
			}
			for _, line := range lines {
				var decoded map[string]interface{}
				if err := json.Unmarshal([]byte(line), &decoded); err != nil {
					t.Errorf("line is not valid JSON: %q", line)
				}
			}
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("Export() output missing %q", want)
				}
			}
		})
	}
}
