// Package conversation maintains bounded per-conversation message history and
// renders it deterministically into a budgeted prompt. History is owned
// exclusively by the Manager; no other component mutates it.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/deepthought-ai/deepthought/logging"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a message authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a message authored by the model.
	RoleAssistant Role = "assistant"
)

// Title returns the role capitalized for prompt rendering ("User", "Assistant").
func (r Role) Title() string {
	s := string(r)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Message is a single entry in a conversation. Immutable once appended.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// TokenCount is an optional token estimate; zero means unknown.
	TokenCount int `json:"token_count,omitempty"`
}

// Stats summarizes one conversation's history.
type Stats struct {
	MessageCount int
	Oldest       time.Time
	Newest       time.Time
}

// Default retention limits.
const (
	DefaultMaxMessages = 50
	DefaultMaxAge      = 24 * time.Hour
)

// Options configure a Manager.
type Options struct {
	// MaxMessages bounds each conversation's history; the oldest message is
	// evicted first. Defaults to DefaultMaxMessages.
	MaxMessages int

	// MaxAge prunes messages older than this on every mutation.
	// Defaults to DefaultMaxAge.
	MaxAge time.Duration

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger

	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Manager stores bounded history per conversation id. Locking is per
// conversation so unrelated turns never contend; the outer map is guarded by
// its own RWMutex.
type Manager struct {
	maxMessages int
	maxAge      time.Duration
	logger      logging.Logger
	now         func() time.Time

	mu            sync.RWMutex
	conversations map[string]*history
}

// history is one conversation's message sequence with its own lock.
type history struct {
	mu       sync.Mutex
	messages []Message
}

// NewManager constructs a Manager.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		MaxMessages: DefaultMaxMessages,
		MaxAge:      DefaultMaxAge,
		Logger:      logging.NoOpLogger{},
		Now:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		maxMessages:   opts.MaxMessages,
		maxAge:        opts.MaxAge,
		logger:        opts.Logger,
		now:           opts.Now,
		conversations: make(map[string]*history),
	}
}

// get returns the history for id, creating it lazily.
func (m *Manager) get(id string) *history {
	m.mu.RLock()
	h, ok := m.conversations[id]
	m.mu.RUnlock()
	if ok {
		return h
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok = m.conversations[id]; ok {
		return h
	}
	h = &history{}
	m.conversations[id] = h
	return h
}

// Append adds a message to the conversation. If the resulting count exceeds
// the maximum the oldest message is evicted, and any message older than the
// age limit is pruned opportunistically.
func (m *Manager) Append(id string, role Role, content string) {
	h := m.get(id)
	now := m.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, Message{Role: role, Content: content, Timestamp: now})
	h.pruneLocked(now.Add(-m.maxAge))
	if over := len(h.messages) - m.maxMessages; over > 0 {
		h.messages = append([]Message(nil), h.messages[over:]...)
	}

	m.logger.Debug("appended message", "conversation_id", id, "role", string(role), "history_len", len(h.messages))
}

// pruneLocked drops messages older than cutoff from the front. Caller holds
// the history lock.
func (h *history) pruneLocked(cutoff time.Time) {
	i := 0
	for i < len(h.messages) && h.messages[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		h.messages = append([]Message(nil), h.messages[i:]...)
	}
}

// Render walks the history oldest-first, accumulating messages into the
// budget after the system prompt. The system prompt is always included and
// never truncated; the walk stops as soon as the next message would exceed
// the budget. Render is a pure read and idempotent for unchanged history.
func (m *Manager) Render(id, systemPrompt string, budget int) string {
	h := m.get(id)

	h.mu.Lock()
	rendered, truncated := renderMessages(systemPrompt, h.messages, budget)
	h.mu.Unlock()

	if truncated {
		m.logger.Info("context budget reached, truncating history", "conversation_id", id)
	}
	return rendered
}

func renderMessages(systemPrompt string, messages []Message, budget int) (string, bool) {
	var sb strings.Builder
	sb.WriteString(systemPrompt)

	total := len(systemPrompt)
	for i, msg := range messages {
		chunk := "\n" + msg.Role.Title() + ": " + msg.Content + "\n"
		if total+len(chunk) > budget {
			return sb.String(), i < len(messages)
		}
		sb.WriteString(chunk)
		total += len(chunk)
	}
	return sb.String(), false
}

// Clear immediately discards all history for the conversation. Subsequent
// renders return only the system prompt.
func (m *Manager) Clear(id string) {
	h := m.get(id)
	h.mu.Lock()
	h.messages = nil
	h.mu.Unlock()
	m.logger.Info("cleared conversation history", "conversation_id", id)
}

// Len returns the number of stored messages for the conversation.
func (m *Manager) Len(id string) int {
	h := m.get(id)
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Messages returns a copy of the conversation's stored messages in order.
func (m *Manager) Messages(id string) []Message {
	h := m.get(id)
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.messages...)
}

// GetStats returns statistics about one conversation.
func (m *Manager) GetStats(id string) Stats {
	h := m.get(id)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return Stats{}
	}
	return Stats{
		MessageCount: len(h.messages),
		Oldest:       h.messages[0].Timestamp,
		Newest:       h.messages[len(h.messages)-1].Timestamp,
	}
}

// CleanupAll prunes expired messages across every conversation and removes
// conversations left empty.
func (m *Manager) CleanupAll() {
	cutoff := m.now().Add(-m.maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, h := range m.conversations {
		h.mu.Lock()
		h.pruneLocked(cutoff)
		empty := len(h.messages) == 0
		h.mu.Unlock()
		if empty {
			delete(m.conversations, id)
		}
	}
	m.logger.Info("cleaned up expired messages across all conversations")
}
