// Package openai implements provider.Provider on top of the official OpenAI
// Go SDK (Chat Completions). The hosted credential is mandatory; construction
// without it is a configuration error, never a silent downgrade.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/deepthought-ai/deepthought/provider"
)

// Options configure the OpenAI provider adapter.
type Options struct {
	Temperature         float64
	MaxCompletionTokens int64
	// BaseURL overrides the API endpoint. Used by OpenAI-compatible hosts.
	BaseURL string
	// ProviderName overrides the reported provider name (e.g. "groq").
	ProviderName string
}

// Provider wraps the OpenAI Chat Completions API behind the generic
// provider.Provider interface. The single-prompt contract of the core maps to
// a one-message user conversation per request.
type Provider struct {
	client openai.Client
	opts   Options
}

// New creates an OpenAI provider with the given API key.
func New(apiKey string, optFns ...func(o *Options)) (*Provider, error) {
	opts := Options{
		Temperature:         0.7,
		MaxCompletionTokens: 1000,
		ProviderName:        "openai",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if apiKey == "" {
		return nil, provider.NewConfigurationError(opts.ProviderName, "api_key", "API key required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Provider{client: openai.NewClient(clientOpts...), opts: opts}, nil
}

// Factory adapts New to the provider.Factory signature.
func Factory(cfg provider.Config) (provider.Provider, error) {
	return New(cfg.APIKey)
}

// Generate implements provider.Provider via the Chat Completions API.
func (p *Provider) Generate(ctx context.Context, prompt, model string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:               openai.ChatModel(model),
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%s: generate: %w", p.opts.ProviderName, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: generate: empty choices", p.opts.ProviderName)
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels implements provider.Provider. For the openai.com endpoint the
// inventory is filtered to chat-capable "gpt" families, mirroring what the
// rest of the core can actually drive.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list models: %w", p.opts.ProviderName, err)
	}

	filter := p.opts.BaseURL == "" // compatible hosts expose their full list as-is
	var names []string
	for _, m := range page.Data {
		if filter && !strings.Contains(strings.ToLower(m.ID), "gpt") {
			continue
		}
		names = append(names, m.ID)
	}
	return names, nil
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.Info {
	return provider.Info{Name: p.opts.ProviderName, Hosted: true}
}

var _ provider.Provider = (*Provider)(nil)
