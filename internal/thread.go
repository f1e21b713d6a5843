package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ChatMessage is one entry of a thread's append-only log
type ChatMessage struct {
	Sender string `json:"sender" yaml:"sender"` // "user", "assistant"
	Text   string `json:"text" yaml:"text"`
}

// Thread is one independent conversation with the assistant
type Thread struct {
	ID       string        `json:"id" yaml:"id"`
	Name     string        `json:"name" yaml:"name"`
	Date     string        `json:"date" yaml:"date"`
	Messages []ChatMessage `json:"messages" yaml:"messages"`
}

// UnmarshalJSON accepts the numeric millisecond ids written by older clients.
func (t *Thread) UnmarshalJSON(data []byte) error {
	type threadAlias Thread
	var raw struct {
		threadAlias
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Thread(raw.threadAlias)

	id := bytes.TrimSpace(raw.ID)
	switch {
	case len(id) == 0 || string(id) == "null":
		t.ID = ""
	case id[0] == '"':
		if err := json.Unmarshal(id, &t.ID); err != nil {
			return fmt.Errorf("invalid thread id: %w", err)
		}
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("invalid thread id: %w", err)
		}
		t.ID = n.String()
	}
	return nil
}

// CreatedAt recovers the creation time from the id: the ULID timestamp, or
// the millisecond value of a legacy numeric id. Zero when neither parses.
func (t *Thread) CreatedAt() time.Time {
	if id, err := ulid.ParseStrict(t.ID); err == nil {
		return ulid.Time(id.Time())
	}
	if ms, err := strconv.ParseInt(t.ID, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

// LastMessage returns the most recent message text, or "" for an empty log
func (t *Thread) LastMessage() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[len(t.Messages)-1].Text
}

func (t Thread) clone() Thread {
	t.Messages = append([]ChatMessage(nil), t.Messages...)
	return t
}

// FormatTranscript renders the messages as speaker-prefixed paragraphs
func FormatTranscript(t *Thread) string {
	parts := make([]string, 0, len(t.Messages))
	for _, m := range t.Messages {
		prefix := "🤖"
		if m.Sender == SenderUser {
			prefix = "👤"
		}
		parts = append(parts, prefix+" "+m.Text)
	}
	return strings.Join(parts, "\n\n")
}

var unsafeFileNameChars = strings.NewReplacer(
	`\`, "-", "/", "-", ":", "-", "*", "-", "?", "-", `"`, "-", "<", "-", ">", "-", "|", "-",
)

// ExportFileName is the download name of a thread transcript
func ExportFileName(t *Thread) string {
	name := t.Name
	if name == "" {
		name = "Chat"
	}
	return unsafeFileNameChars.Replace(name) + ".txt"
}
