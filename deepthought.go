// Package deepthought provides a high-level façade over the conversational
// orchestration core: the provider-abstracted generation client, the
// free-text tool-call protocol, bounded conversation memory, and the
// dependency-ordered plugin registry. Most applications interact with this
// package by:
//  1. Creating a Deepthought via New() with a provider configuration
//  2. Loading and enabling plugins, then calling InitializePlugins
//  3. Running turns with RunTurn as platform messages arrive
//
// The façade delegates turn execution to turn.Orchestrator while keeping
// setup ergonomics concise. All defaults are safe for local development
// against an Ollama instance; hosted backends need a credential.
package deepthought

import (
	"context"
	"time"

	"github.com/deepthought-ai/deepthought/conversation"
	"github.com/deepthought-ai/deepthought/logging"
	"github.com/deepthought-ai/deepthought/plugin"
	"github.com/deepthought-ai/deepthought/provider"
	"github.com/deepthought-ai/deepthought/provider/anthropic"
	"github.com/deepthought-ai/deepthought/provider/groq"
	"github.com/deepthought-ai/deepthought/provider/ollama"
	"github.com/deepthought-ai/deepthought/provider/openai"
	"github.com/deepthought-ai/deepthought/toolcall"
	"github.com/deepthought-ai/deepthought/turn"
)

// DefaultProviderRegistry returns a registry with every built-in backend
// factory registered.
func DefaultProviderRegistry() *provider.Registry {
	r := provider.NewRegistry()
	r.Register("ollama", ollama.Factory)
	r.Register("openai", openai.Factory)
	r.Register("groq", groq.Factory)
	r.Register("anthropic", anthropic.Factory)
	return r
}

// Options configures a Deepthought instance.
type Options struct {
	// ProviderRegistry supplies backend factories. Defaults to
	// DefaultProviderRegistry.
	ProviderRegistry *provider.Registry

	// SystemPrompt is prepended to every rendered context.
	SystemPrompt string

	// ContextBudget caps the rendered prompt in bytes.
	ContextBudget int

	// MaxMessages caps messages kept per conversation.
	MaxMessages int

	// MaxMessageAge prunes messages older than this on every mutation.
	MaxMessageAge time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Deepthought is the high-level façade aggregating the generation client,
// conversation memory, plugin registry, and turn orchestrator.
type Deepthought struct {
	opts         Options
	client       *provider.Client
	memory       *conversation.Manager
	plugins      *plugin.Registry
	orchestrator *turn.Orchestrator
}

// New creates a Deepthought instance for the given provider configuration.
// A hosted provider missing its credential fails here with a
// *provider.ConfigurationError rather than at first use.
func New(cfg provider.Config, optFns ...func(o *Options)) (*Deepthought, error) {
	opts := Options{
		ProviderRegistry: DefaultProviderRegistry(),
		SystemPrompt:     "You are a helpful assistant.",
		ContextBudget:    turn.DefaultContextBudget,
		MaxMessages:      conversation.DefaultMaxMessages,
		MaxMessageAge:    conversation.DefaultMaxAge,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := provider.NewClient(opts.ProviderRegistry, cfg, func(o *provider.ClientOptions) {
		o.Logger = logging.WithComponent(opts.Logger, "provider")
	})
	if err != nil {
		return nil, err
	}

	memory := conversation.NewManager(func(o *conversation.Options) {
		o.MaxMessages = opts.MaxMessages
		o.MaxAge = opts.MaxMessageAge
		o.Logger = logging.WithComponent(opts.Logger, "conversation")
	})

	plugins := plugin.NewRegistry(func(o *plugin.Options) {
		o.Logger = logging.WithComponent(opts.Logger, "plugins")
	})

	orchestrator := turn.New(client, memory, plugins, func(o *turn.Options) {
		o.Logger = logging.WithComponent(opts.Logger, "turn")
		o.ContextBudget = opts.ContextBudget
	})

	return &Deepthought{
		opts:         opts,
		client:       client,
		memory:       memory,
		plugins:      plugins,
		orchestrator: orchestrator,
	}, nil
}

// RunTurn executes one conversational turn: the user text is appended to
// history, context is rendered and augmented with the tool catalog, the
// model replies, and any requested tools run before the final answer.
func (d *Deepthought) RunTurn(ctx context.Context, conversationID, userText string) (turn.Result, error) {
	return d.orchestrator.Run(ctx, turn.Request{
		ConversationID: conversationID,
		UserText:       userText,
		SystemPrompt:   d.opts.SystemPrompt,
	})
}

// LoadPlugin registers a plugin constructor under name with its config.
func (d *Deepthought) LoadPlugin(name string, ctor plugin.Constructor, config map[string]any) error {
	return d.plugins.Load(name, ctor, config)
}

// EnablePlugin adds a loaded plugin to the active set.
func (d *Deepthought) EnablePlugin(name string) error { return d.plugins.Enable(name) }

// DisablePlugin removes a plugin from the active set, shutting it down
// first if it was initialized.
func (d *Deepthought) DisablePlugin(name string) error { return d.plugins.Disable(name) }

// InitializePlugins initializes every enabled plugin in dependency order.
// Per-plugin failures are logged and skipped; a dependency cycle among
// enabled plugins is returned after the acyclic remainder initializes.
func (d *Deepthought) InitializePlugins(ctx context.Context) error {
	return d.plugins.InitializeAll(ctx)
}

// ShutdownPlugins shuts down every initialized plugin in reverse
// dependency order.
func (d *Deepthought) ShutdownPlugins() { d.plugins.ShutdownAll() }

// Plugins returns descriptors for every registered plugin, sorted by name.
func (d *Deepthought) Plugins() []plugin.Descriptor { return d.plugins.Descriptors() }

// ToolCatalog returns the specs of all tools contributed by initialized
// plugins.
func (d *Deepthought) ToolCatalog() []toolcall.Spec { return d.plugins.Catalog() }

// ListModels returns the identifiers available on the active backend.
// Best-effort: failures yield an empty slice.
func (d *Deepthought) ListModels(ctx context.Context) []string { return d.client.ListModels(ctx) }

// SetModel switches the default model for subsequent turns.
func (d *Deepthought) SetModel(model string) { d.client.SetModel(model) }

// SetTimeout changes the per-request timeout for subsequent turns.
func (d *Deepthought) SetTimeout(timeout time.Duration) { d.client.SetTimeout(timeout) }

// SetProvider replaces the active backend wholesale. On failure the
// previous backend stays active.
func (d *Deepthought) SetProvider(cfg provider.Config) error { return d.client.SetProvider(cfg) }

// ClearConversation discards all history for the given conversation.
func (d *Deepthought) ClearConversation(conversationID string) { d.memory.Clear(conversationID) }

// ConversationStats reports message count and timestamp bounds for the
// given conversation.
func (d *Deepthought) ConversationStats(conversationID string) conversation.Stats {
	return d.memory.GetStats(conversationID)
}

// CleanupConversations prunes expired messages across all conversations
// and drops the ones left empty.
func (d *Deepthought) CleanupConversations() { d.memory.CleanupAll() }

// The orchestrator's collaborator interfaces are satisfied by the
// concrete client and registry.
var (
	_ turn.Generator  = (*provider.Client)(nil)
	_ turn.ToolSource = (*plugin.Registry)(nil)
	_ turn.Memory     = (*conversation.Manager)(nil)
)
