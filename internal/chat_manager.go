package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"
)

const (
	chatsKey       = "libraChats"
	currentChatKey = "libraCurrentChatId"

	// GreetingText seeds every new thread
	GreetingText = "Hello! How can I help you?"
	// NoReplyText stands in for an empty assistant answer
	NoReplyText = "⚠️ No reply received."
	// FailurePrefix starts the assistant bubble of a failed send
	FailurePrefix = "⚠️ No reply received: "
)

// ChatManager keeps the locally persisted assistant threads. Every mutation
// is written to the KV store before it becomes visible in memory.
type ChatManager struct {
	kv         KVStore
	sender     AssistantSender
	newID      func() string
	now        func() time.Time
	dateLayout string

	mu          sync.Mutex
	threads     []Thread
	currentID   string
	caseContext string

	sendInFlight *semaphore.Weighted
}

// ChatOption customizes a ChatManager
type ChatOption func(*ChatManager)

// WithIDGenerator overrides the ULID thread id generator
func WithIDGenerator(fn func() string) ChatOption {
	return func(m *ChatManager) {
		m.newID = fn
	}
}

// WithChatClock overrides time.Now for thread dates
func WithChatClock(now func() time.Time) ChatOption {
	return func(m *ChatManager) {
		m.now = now
	}
}

// WithDateLayout sets the layout of Thread.Date
func WithDateLayout(layout string) ChatOption {
	return func(m *ChatManager) {
		if layout != "" {
			m.dateLayout = layout
		}
	}
}

// WithCaseContext sets the case text sent along with every message
func WithCaseContext(text string) ChatOption {
	return func(m *ChatManager) {
		m.caseContext = text
	}
}

// NewChatManager loads the threads and selection from kv. Malformed stored
// data is treated as an empty history.
func NewChatManager(ctx context.Context, kv KVStore, sender AssistantSender, opts ...ChatOption) (*ChatManager, error) {
	m := &ChatManager{
		kv:           kv,
		sender:       sender,
		newID:        func() string { return ulid.Make().String() },
		now:          time.Now,
		dateLayout:   DefaultDateLayout,
		sendInFlight: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(m)
	}

	raw, ok, err := kv.Get(ctx, chatsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat threads: %w", err)
	}
	if ok && raw != "" {
		var threads []Thread
		if err := json.Unmarshal([]byte(raw), &threads); err != nil {
			LogWarn("Ignoring malformed chat history: %v", err)
		} else {
			m.threads = threads
		}
	}

	current, ok, err := kv.Get(ctx, currentChatKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load current chat: %w", err)
	}
	if ok && m.indexOf(m.threads, current) >= 0 {
		m.currentID = current
	}

	return m, nil
}

// SetCaseContext replaces the case text sent with subsequent messages
func (m *ChatManager) SetCaseContext(text string) {
	m.mu.Lock()
	m.caseContext = text
	m.mu.Unlock()
}

// Threads returns a copy of the thread list, newest first
func (m *ChatManager) Threads() []Thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Thread, len(m.threads))
	for i, t := range m.threads {
		out[i] = t.clone()
	}
	return out
}

// CurrentID returns the selected thread id, "" when none
func (m *ChatManager) CurrentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// Current returns a copy of the selected thread
func (m *ChatManager) Current() (Thread, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(m.threads, m.currentID)
	if i < 0 {
		return Thread{}, false
	}
	return m.threads[i].clone(), true
}

// Thread returns a copy of the thread with id
func (m *ChatManager) Thread(id string) (Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(m.threads, id)
	if i < 0 {
		return Thread{}, fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	return m.threads[i].clone(), nil
}

// Search filters threads whose name or last message contains query,
// case-insensitively. An empty query returns every thread.
func (m *ChatManager) Search(query string) []Thread {
	q := strings.ToLower(strings.TrimSpace(query))
	all := m.Threads()
	if q == "" {
		return all
	}
	out := make([]Thread, 0, len(all))
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.LastMessage()), q) {
			out = append(out, t)
		}
	}
	return out
}

// EnsureAtLeastOneThread creates and selects a seeded thread when the list is
// empty or nothing is selected.
func (m *ChatManager) EnsureAtLeastOneThread(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.threads) > 0 && m.indexOf(m.threads, m.currentID) >= 0 {
		return nil
	}
	threads, current := m.withNewThread(m.threads)
	return m.commit(ctx, threads, current)
}

// CreateThread prepends a seeded thread named "Chat N" and selects it
func (m *ChatManager) CreateThread(ctx context.Context) (Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	threads, current := m.withNewThread(m.threads)
	if err := m.commit(ctx, threads, current); err != nil {
		return Thread{}, err
	}
	return threads[0].clone(), nil
}

// RenameThread sets the name of thread id. A blank name is ignored.
func (m *ChatManager) RenameThread(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(m.threads, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	threads := append([]Thread(nil), m.threads...)
	threads[i].Name = name
	return m.commit(ctx, threads, m.currentID)
}

// SelectThread makes id the active thread
func (m *ChatManager) SelectThread(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(m.threads, id) < 0 {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	return m.commit(ctx, m.threads, id)
}

// DeleteThread removes id. A deleted selection moves to the first remaining
// thread; deleting the last thread replaces it with a fresh one in the same
// write, so an empty list is never persisted.
func (m *ChatManager) DeleteThread(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(m.threads, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}

	threads := make([]Thread, 0, len(m.threads))
	threads = append(threads, m.threads[:i]...)
	threads = append(threads, m.threads[i+1:]...)

	current := m.currentID
	switch {
	case len(threads) == 0:
		threads, current = m.withNewThread(threads)
	case current == id || m.indexOf(threads, current) < 0:
		current = threads[0].ID
	}
	return m.commit(ctx, threads, current)
}

// SendMessage appends text as a user message to the active thread, asks the
// assistant and appends its answer. Failures become an assistant message, so
// the returned error is only set for local problems: a blank text is a no-op
// (nil, nil), a second concurrent send gets ErrRequestInFlight.
func (m *ChatManager) SendMessage(ctx context.Context, text string) (*ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if !m.sendInFlight.TryAcquire(1) {
		return nil, ErrRequestInFlight
	}
	defer m.sendInFlight.Release(1)

	m.mu.Lock()
	threadID := m.currentID
	if err := m.appendLocked(ctx, threadID, ChatMessage{Sender: SenderUser, Text: text}); err != nil {
		m.mu.Unlock()
		if errors.Is(err, ErrThreadNotFound) {
			return nil, ErrNoActiveThread
		}
		return nil, err
	}
	req := AssistantRequest{Message: text, Context: m.caseContext, ChatID: threadID}
	m.mu.Unlock()

	reply := ChatMessage{Sender: SenderAssistant}
	resp, err := m.sender.Send(ctx, req)
	switch {
	case err != nil:
		LogWarn("Assistant request failed: %v", err)
		reply.Text = FailurePrefix + failureDetail(err)
	case strings.TrimSpace(resp.Reply) == "":
		reply.Text = NoReplyText
	default:
		reply.Text = resp.Reply
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.appendLocked(ctx, threadID, reply); err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			LogWarn("Thread %s was deleted before the reply arrived, dropping it", threadID)
			return &reply, nil
		}
		return &reply, err
	}
	return &reply, nil
}

// ThreadEncoder writes a thread in one export format
type ThreadEncoder interface {
	Export(thread *Thread, w io.Writer) error
}

// ExportThread writes thread id to w with enc, or as the plain transcript when
// enc is nil.
func (m *ChatManager) ExportThread(id string, w io.Writer, enc ThreadEncoder) error {
	t, err := m.Thread(id)
	if err != nil {
		return err
	}

	format := "txt"
	if enc == nil {
		_, err = io.WriteString(w, FormatTranscript(&t))
	} else {
		if e, ok := enc.(interface{ Extension() string }); ok {
			format = e.Extension()
		}
		err = enc.Export(&t, w)
	}
	if err != nil {
		return &ExportError{Format: format, Path: ExportFileName(&t), Err: err}
	}
	return nil
}

func (m *ChatManager) appendLocked(ctx context.Context, id string, msg ChatMessage) error {
	i := m.indexOf(m.threads, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	threads := append([]Thread(nil), m.threads...)
	threads[i] = threads[i].clone()
	threads[i].Messages = append(threads[i].Messages, msg)
	return m.commit(ctx, threads, m.currentID)
}

// withNewThread returns threads with a seeded thread prepended, and its id.
func (m *ChatManager) withNewThread(threads []Thread) ([]Thread, string) {
	t := Thread{
		ID:   m.newID(),
		Name: fmt.Sprintf("Chat %d", len(threads)+1),
		Date: m.now().Format(m.dateLayout),
		Messages: []ChatMessage{
			{Sender: SenderAssistant, Text: GreetingText},
		},
	}
	out := make([]Thread, 0, len(threads)+1)
	out = append(out, t)
	out = append(out, threads...)
	return out, t.ID
}

// commit persists threads and current in one batch, then adopts them.
func (m *ChatManager) commit(ctx context.Context, threads []Thread, current string) error {
	if threads == nil {
		threads = []Thread{}
	}
	data, err := json.Marshal(threads)
	if err != nil {
		return fmt.Errorf("failed to marshal chat threads: %w", err)
	}

	ops := []KVOp{SetOp(chatsKey, string(data))}
	if current != "" {
		ops = append(ops, SetOp(currentChatKey, current))
	} else {
		ops = append(ops, DeleteOp(currentChatKey))
	}
	if err := m.kv.Apply(ctx, ops...); err != nil {
		return fmt.Errorf("failed to persist chat threads: %w", err)
	}

	m.threads = threads
	m.currentID = current
	return nil
}

func (m *ChatManager) indexOf(threads []Thread, id string) int {
	if id == "" {
		return -1
	}
	for i := range threads {
		if threads[i].ID == id {
			return i
		}
	}
	return -1
}

func failureDetail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	if err == nil || err.Error() == "" {
		return "unknown error"
	}
	return err.Error()
}
