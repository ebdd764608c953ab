// Package anthropic implements provider.Provider on top of the official
// Anthropic Go SDK (Messages API).
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/deepthought-ai/deepthought/provider"
)

// Options configure the Anthropic provider adapter.
type Options struct {
	Temperature float64
	MaxTokens   int64
}

// Provider wraps the Anthropic Messages API behind the generic
// provider.Provider interface.
type Provider struct {
	client anthropic.Client
	opts   Options
}

// New creates an Anthropic provider with the given API key.
func New(apiKey string, optFns ...func(o *Options)) (*Provider, error) {
	opts := Options{Temperature: 0.7, MaxTokens: 1000}
	for _, fn := range optFns {
		fn(&opts)
	}

	if apiKey == "" {
		return nil, provider.NewConfigurationError("anthropic", "api_key", "API key required")
	}

	return &Provider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		opts:   opts,
	}, nil
}

// Factory adapts New to the provider.Factory signature.
func Factory(cfg provider.Config) (provider.Provider, error) {
	return New(cfg.APIKey)
}

// Generate implements provider.Provider via the Messages API. Text blocks of
// the reply are concatenated; tool-use blocks do not occur because the core
// drives tool calling through its own free-text protocol.
func (p *Provider) Generate(ctx context.Context, prompt, model string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: generate: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}

// ListModels implements provider.Provider via the Models API.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("anthropic: list models: %w", err)
	}

	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, string(m.ID))
	}
	return names, nil
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.Info {
	return provider.Info{Name: "anthropic", Hosted: true}
}

var _ provider.Provider = (*Provider)(nil)
