// Package provider defines the uniform text-generation contract implemented by
// concrete backends (Ollama, OpenAI, Groq, Anthropic) together with the Client
// wrapper that adds retry policy, degraded replies and live reconfiguration.
// Backend selection happens through an explicit Registry instance rather than
// a package-level singleton so independent clients can carry independent
// provider sets.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"sync"
	"time"
)

// Provider is the minimal interface a generation backend must implement.
// Implementations are safe for concurrent use and honor context cancellation
// on every network call.
type Provider interface {
	// Generate produces a completion for prompt using the named model.
	Generate(ctx context.Context, prompt, model string) (string, error)

	// ListModels returns the identifiers of models available on the backend.
	ListModels(ctx context.Context) ([]string, error)

	// Info returns metadata about the provider implementation.
	Info() Info
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name   string `json:"name"`   // "ollama", "openai", "groq", "anthropic"
	Hosted bool   `json:"hosted"` // hosted backends require a credential
}

// Config captures everything needed to address one backend. It is immutable
// after construction; reconfiguration replaces the whole value.
type Config struct {
	// Provider selects the backend factory ("ollama", "openai", ...).
	Provider string `json:"provider" yaml:"provider"`

	// Host is the endpoint of a self-hosted backend (Ollama). Ignored by
	// hosted providers.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// APIKey is the credential for a hosted backend. Required for hosted
	// providers; construction fails without it.
	APIKey string `json:"-" yaml:"api_key,omitempty"`

	// Model is the default model identifier for Generate calls.
	Model string `json:"model" yaml:"model"`

	// Timeout bounds each individual backend request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RetryCount is the total number of Generate attempts on timeout.
	RetryCount int `json:"retry_count" yaml:"retry_count"`
}

// ConfigurationError signals a fatal construction-time misconfiguration, such
// as a hosted provider missing its credential. It is never downgraded to a
// degraded reply.
type ConfigurationError struct {
	Provider string // provider name
	Param    string // offending parameter
	Message  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s: invalid configuration (%s): %s", e.Provider, e.Param, e.Message)
}

// NewConfigurationError creates a ConfigurationError for the given provider and parameter.
func NewConfigurationError(provider, param, message string) *ConfigurationError {
	return &ConfigurationError{Provider: provider, Param: param, Message: message}
}

// IsTransient reports whether err represents a network timeout that is worth
// retrying. Everything else (malformed request, backend rejection, context
// cancellation by the caller) is treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Factory constructs a Provider from a Config. Factories validate their
// required parameters and return a *ConfigurationError on violation.
type Factory func(cfg Config) (Provider, error)

// Registry maps provider names to factories. It replaces lookup-by-name
// dynamic dispatch with an explicit table built at registration time and is
// passed into the Client at construction.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name, replacing any previous entry.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New constructs a Provider for cfg.Provider. Unknown names fail with a
// *ConfigurationError.
func (r *Registry) New(cfg Config) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, NewConfigurationError(cfg.Provider, "provider", "unknown provider")
	}
	return factory(cfg)
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
