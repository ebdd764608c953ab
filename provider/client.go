package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deepthought-ai/deepthought/internal/retry"
	"github.com/deepthought-ai/deepthought/logging"
)

// Degraded replies returned to the caller when generation fails. The turn
// orchestrator always has something to send back to the platform adapter.
const (
	// DegradedTimeoutReply is returned after the retry budget for timeouts is exhausted.
	DegradedTimeoutReply = "AI service timeout. Please try again later."
	// DegradedErrorReply is returned on non-retryable backend failures.
	DegradedErrorReply = "Error communicating with the AI service."
)

const defaultRetryPause = time.Second

// ClientOptions configures optional Client collaborators.
type ClientOptions struct {
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger

	// RetryPause is the pause between generation attempts after a timeout.
	// Defaults to one second.
	RetryPause time.Duration
}

// Client wraps a Provider with the failure policy the orchestrator relies on:
// timeouts are retried with a brief pause, exhausted retries and permanent
// failures yield a degraded reply instead of an error, and model/timeout can
// be swapped live without reconstructing the client.
//
// Concurrency: all methods are safe for concurrent use. Mutators take effect
// on the next call only; in-flight calls keep the configuration they started
// with.
type Client struct {
	registry   *Registry
	logger     logging.Logger
	retryPause time.Duration

	mu       sync.RWMutex
	provider Provider
	cfg      Config
}

// NewClient constructs a Client for cfg using the given registry. A hosted
// provider missing its credential fails here with a *ConfigurationError;
// there is no silent fallback.
func NewClient(registry *Registry, cfg Config, optFns ...func(o *ClientOptions)) (*Client, error) {
	opts := ClientOptions{Logger: logging.NoOpLogger{}, RetryPause: defaultRetryPause}
	for _, fn := range optFns {
		fn(&opts)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryCount == 0 {
		cfg.RetryCount = 3
	}

	p, err := registry.New(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{registry: registry, logger: opts.Logger, retryPause: opts.RetryPause, provider: p, cfg: cfg}, nil
}

// snapshot returns the provider and config under a consistent read lock.
func (c *Client) snapshot() (Provider, Config) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider, c.cfg
}

// Generate produces a reply for prompt. Timeouts are retried up to the
// configured retry count with a brief pause between attempts; once exhausted,
// or on any non-retryable failure, a degraded reply is returned with a nil
// error so the caller can always answer the user.
//
// The only non-nil error is the caller's own context cancellation, which is
// surfaced so a cancelled turn can skip recording the reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	p, cfg := c.snapshot()
	start := time.Now()

	policy := retry.Policy{
		MaxAttempts:    cfg.RetryCount,
		InitialBackoff: c.retryPause,
		MaxBackoff:     c.retryPause,
		BackoffFactor:  1.0,
		IsRetryable:    IsTransient,
	}

	text, attempts, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return p.Generate(attemptCtx, prompt, cfg.Model)
	})

	logging.LogGeneration(c.logger, cfg.Provider, cfg.Model, attempts, time.Since(start), err == nil, err)
	if err == nil {
		return text, nil
	}

	// The caller gave up; do not substitute a degraded reply for a reply
	// nobody will read.
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return "", err
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return DegradedTimeoutReply, nil
	}
	return DegradedErrorReply, nil
}

// ListModels returns the identifiers of models available on the backend.
// Best-effort: any failure yields an empty slice, never an error. Callers
// must treat empty as "unknown", not "zero models exist".
func (c *Client) ListModels(ctx context.Context) []string {
	p, cfg := c.snapshot()

	listCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	models, err := p.ListModels(listCtx)
	if err != nil {
		c.logger.Error("list models failed", "provider", cfg.Provider, "error", err)
		return []string{}
	}
	return models
}

// SetModel changes the model used by subsequent Generate calls.
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Model = model
}

// SetTimeout changes the per-request timeout for subsequent calls.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Timeout = timeout
}

// SetProvider replaces the active backend wholesale with one built from cfg.
// The previous provider keeps serving in-flight calls; new calls see the
// replacement. Construction failures leave the client unchanged.
func (c *Client) SetProvider(cfg Config) error {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryCount == 0 {
		cfg.RetryCount = 3
	}

	p, err := c.registry.New(cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = p
	c.cfg = cfg
	return nil
}

// Config returns a copy of the active configuration.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}
