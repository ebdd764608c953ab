// Package turn composes the generation client, tool-call protocol,
// conversation memory, and plugin registry into a single conversational
// turn: append the user message, render budgeted context, augment with
// the tool catalog, generate, dispatch any requested tools, and fold the
// results into an optional second generation round.
package turn

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deepthought-ai/deepthought/conversation"
	"github.com/deepthought-ai/deepthought/logging"
	"github.com/deepthought-ai/deepthought/toolcall"
)

// DefaultContextBudget bounds the rendered prompt when no budget is
// configured.
const DefaultContextBudget = 4096

// Request describes one inbound user turn from a platform adapter.
type Request struct {
	// ConversationID scopes history. Turns on the same id are serialized.
	ConversationID string

	// UserText is the raw user message.
	UserText string

	// SystemPrompt is prepended to the rendered context and never truncated.
	SystemPrompt string
}

// Result is the outcome of one completed turn.
type Result struct {
	// TurnID uniquely identifies this turn in logs.
	TurnID string

	// Reply is the final assistant text, after any tool round.
	Reply string

	// ToolCalls lists the calls the model requested, in extraction order.
	ToolCalls []toolcall.Call

	// HistoryLength is the conversation length after the turn's appends.
	HistoryLength int
}

// Generator produces text for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ToolSource supplies the tool catalog and executes requested calls.
type ToolSource interface {
	Catalog() []toolcall.Spec
	Dispatch(ctx context.Context, name string, args map[string]any) (string, error)
}

// Memory is the slice of the conversation manager a turn needs.
type Memory interface {
	Append(id string, role conversation.Role, content string)
	Render(id, systemPrompt string, budget int) string
	Len(id string) int
}

// Options configures an Orchestrator.
type Options struct {
	// Logger receives turn-level events. Defaults to a no-op logger.
	Logger logging.Logger

	// ContextBudget caps the rendered prompt in bytes.
	ContextBudget int

	// Protocol augments prompts and parses replies. Defaults to a
	// protocol with default settings.
	Protocol *toolcall.Protocol
}

// Orchestrator runs conversational turns. Turns on distinct conversation
// ids proceed concurrently; turns on the same id are serialized.
type Orchestrator struct {
	generator Generator
	memory    Memory
	tools     ToolSource
	protocol  *toolcall.Protocol
	budget    int
	logger    logging.Logger

	mu    sync.Mutex
	locks map[string]*convLock
}

// convLock serializes turns for one conversation id. The reference count
// tracks holders and waiters so the entry can be evicted once idle instead
// of accumulating a mutex per conversation ever seen.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// New creates an Orchestrator over the given collaborators.
func New(generator Generator, memory Memory, tools ToolSource, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		ContextBudget: DefaultContextBudget,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Protocol == nil {
		opts.Protocol = toolcall.NewProtocol(func(o *toolcall.Options) {
			o.Logger = opts.Logger
		})
	}
	return &Orchestrator{
		generator: generator,
		memory:    memory,
		tools:     tools,
		protocol:  opts.Protocol,
		budget:    opts.ContextBudget,
		logger:    opts.Logger,
		locks:     make(map[string]*convLock),
	}
}

// acquireConversation blocks until this goroutine holds the serialization
// lock for id, registering itself as a holder first so the entry cannot be
// evicted while anyone waits on it.
func (o *Orchestrator) acquireConversation(id string) *convLock {
	o.mu.Lock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &convLock{}
		o.locks[id] = lock
	}
	lock.refs++
	o.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// releaseConversation unlocks and drops the entry once no holder or waiter
// remains.
func (o *Orchestrator) releaseConversation(id string, lock *convLock) {
	lock.mu.Unlock()

	o.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(o.locks, id)
	}
	o.mu.Unlock()
}

// Run executes one turn. On caller cancellation the error is returned
// and no assistant message is appended, so an abandoned turn never
// leaves a half-written exchange in memory. All provider failures
// surface as a degraded reply inside Result, never as an error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	turnID := uuid.NewString()
	logger := logging.WithConversation(o.logger, req.ConversationID, turnID)
	start := time.Now()

	lock := o.acquireConversation(req.ConversationID)
	defer o.releaseConversation(req.ConversationID, lock)

	o.memory.Append(req.ConversationID, conversation.RoleUser, req.UserText)

	rendered := o.memory.Render(req.ConversationID, req.SystemPrompt, o.budget)
	catalog := o.tools.Catalog()
	prompt := o.protocol.Augment(rendered, catalog)

	reply, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("turn abandoned during generation", "error", err)
		return Result{TurnID: turnID}, err
	}

	calls := o.protocol.Parse(reply)
	if len(calls) > 0 {
		reply, err = o.toolRound(ctx, logger, rendered, calls)
		if err != nil {
			return Result{TurnID: turnID}, err
		}
	}

	if ctx.Err() != nil {
		logger.Warn("turn cancelled before reply was recorded")
		return Result{TurnID: turnID}, ctx.Err()
	}
	o.memory.Append(req.ConversationID, conversation.RoleAssistant, reply)

	result := Result{
		TurnID:        turnID,
		Reply:         reply,
		ToolCalls:     calls,
		HistoryLength: o.memory.Len(req.ConversationID),
	}
	logger.Info("turn completed",
		"tool_calls", len(calls),
		"history_length", result.HistoryLength,
		"duration", time.Since(start))
	return result, nil
}

// toolRound dispatches the parsed calls and runs the follow-up
// generation with their results folded in. A failed call contributes an
// explicit error entry instead of aborting the round.
func (o *Orchestrator) toolRound(ctx context.Context, logger logging.Logger, rendered string, calls []toolcall.Call) (string, error) {
	results := make([]string, 0, len(calls))
	for _, call := range calls {
		callStart := time.Now()
		out, err := o.tools.Dispatch(ctx, call.Tool, call.Parameters)
		logging.LogToolCall(logger, call.Tool, time.Since(callStart), err == nil, err)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			results = append(results, fmt.Sprintf("- %s: error: %v", call.Tool, err))
			continue
		}
		results = append(results, fmt.Sprintf("- %s: %s", call.Tool, out))
	}

	return o.generator.Generate(ctx, foldResults(rendered, results))
}

// foldResults builds the follow-up prompt for the second generation
// round from the original rendered context and the tool outputs.
func foldResults(rendered string, results []string) string {
	var b strings.Builder
	b.WriteString(rendered)
	b.WriteString("\n\nTool results:\n")
	b.WriteString(strings.Join(results, "\n"))
	b.WriteString("\n\nUse the tool results above to answer the user's last message. Do not request further tools.")
	return b.String()
}
