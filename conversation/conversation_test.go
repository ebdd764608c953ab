package conversation

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRender_Chronological(t *testing.T) {
	m := NewManager()
	m.Append("c1", RoleUser, "hello")
	m.Append("c1", RoleAssistant, "hi, how can I help?")

	out := m.Render("c1", "System prompt.", 4000)
	assert.Equal(t, "System prompt.\nUser: hello\n\nAssistant: hi, how can I help?\n", out)
}

func TestRender_EmptyHistoryReturnsSystemPrompt(t *testing.T) {
	m := NewManager()
	assert.Equal(t, "Only the system prompt.", m.Render("c1", "Only the system prompt.", 100))
}

func TestRender_NeverExceedsBudget(t *testing.T) {
	m := NewManager()
	system := "sys"
	for i := 0; i < 40; i++ {
		m.Append("c1", RoleUser, strings.Repeat("x", 20))
	}
	for _, budget := range []int{len(system), 10, 50, 100, 1000, 10000} {
		out := m.Render("c1", system, budget)
		assert.LessOrEqual(t, len(out), budget, "budget %d", budget)
		assert.True(t, strings.HasPrefix(out, system))
	}
}

func TestRender_OldestFirstFits(t *testing.T) {
	m := NewManager()
	m.Append("c1", RoleUser, "first")
	m.Append("c1", RoleAssistant, "second")
	m.Append("c1", RoleUser, "third")

	// Budget fits the system prompt plus the first message only.
	out := m.Render("c1", "sys", len("sys")+len("\nUser: first\n"))
	assert.Equal(t, "sys\nUser: first\n", out)
}

func TestRender_IsPureRead(t *testing.T) {
	m := NewManager()
	m.Append("c1", RoleUser, "hello")

	first := m.Render("c1", "sys", 20)
	second := m.Render("c1", "sys", 20)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, m.Len("c1"))
}

func TestAppend_FIFOEviction(t *testing.T) {
	m := NewManager(func(o *Options) { o.MaxMessages = 3 })

	for i := 1; i <= 5; i++ {
		role := RoleUser
		if i%2 == 0 {
			role = RoleAssistant
		}
		m.Append("c1", role, fmt.Sprintf("msg-%d", i))
	}

	msgs := m.Messages("c1")
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg-3", msgs[0].Content)
	assert.Equal(t, "msg-4", msgs[1].Content)
	assert.Equal(t, "msg-5", msgs[2].Content)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestAppend_MaxAgePruning(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewManager(func(o *Options) {
		o.MaxAge = time.Hour
		o.Now = clock
	})

	m.Append("c1", RoleUser, "old")
	now = now.Add(2 * time.Hour)
	m.Append("c1", RoleUser, "new")

	msgs := m.Messages("c1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "new", msgs[0].Content)
}

func TestClear(t *testing.T) {
	m := NewManager()
	m.Append("c1", RoleUser, "hello")
	m.Clear("c1")

	assert.Zero(t, m.Len("c1"))
	assert.Equal(t, "sys", m.Render("c1", "sys", 100))
}

func TestGetStats(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewManager(func(o *Options) { o.Now = clock })

	assert.Equal(t, Stats{}, m.GetStats("c1"))

	m.Append("c1", RoleUser, "a")
	now = now.Add(time.Minute)
	m.Append("c1", RoleAssistant, "b")

	stats := m.GetStats("c1")
	assert.Equal(t, 2, stats.MessageCount)
	assert.Equal(t, time.Minute, stats.Newest.Sub(stats.Oldest))
}

func TestCleanupAll_RemovesExpiredAndEmpty(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewManager(func(o *Options) {
		o.MaxAge = time.Hour
		o.Now = clock
	})

	m.Append("stale", RoleUser, "old")
	now = now.Add(30 * time.Minute)
	m.Append("fresh", RoleUser, "recent")
	now = now.Add(45 * time.Minute)

	m.CleanupAll()

	assert.Zero(t, m.Len("stale"))
	assert.Equal(t, 1, m.Len("fresh"))
}

func TestConcurrentConversationsDoNotInterleave(t *testing.T) {
	m := NewManager(func(o *Options) { o.MaxMessages = 100 })

	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", c)
			for i := 0; i < 50; i++ {
				m.Append(id, RoleUser, fmt.Sprintf("m%d", i))
				_ = m.Render(id, "sys", 500)
			}
		}(c)
	}
	wg.Wait()

	for c := 0; c < 8; c++ {
		assert.Equal(t, 50, m.Len(fmt.Sprintf("conv-%d", c)))
	}
}
