// Package ollama implements provider.Provider against a self-hosted Ollama
// server's REST API (/api/generate for completions, /api/tags for the model
// inventory). Ollama is the only built-in backend without a credential.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/deepthought-ai/deepthought/provider"
)

const defaultHost = "http://localhost:11434"

// Options configure the Ollama provider.
type Options struct {
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Provider talks to one Ollama server. Request deadlines come from the caller's
// context; the embedded http.Client carries no timeout of its own.
type Provider struct {
	host       string
	httpClient *http.Client
}

// New creates an Ollama provider for the given host (default localhost:11434).
func New(host string, optFns ...func(o *Options)) *Provider {
	opts := Options{HTTPClient: http.DefaultClient}
	for _, fn := range optFns {
		fn(&opts)
	}
	if host == "" {
		host = defaultHost
	}
	return &Provider{host: strings.TrimRight(host, "/"), httpClient: opts.HTTPClient}
}

// Factory adapts New to the provider.Factory signature.
func Factory(cfg provider.Config) (provider.Provider, error) {
	return New(cfg.Host), nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate implements provider.Provider via POST /api/generate.
func (p *Provider) Generate(ctx context.Context, prompt, model string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ollama: generate: unexpected status %s", resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if out.Response == "" {
		return "No response returned.", nil
	}
	return out.Response, nil
}

// ListModels implements provider.Provider via GET /api/tags.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ollama: list models: unexpected status %s", resp.Status)
	}

	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.Info {
	return provider.Info{Name: "ollama", Hosted: false}
}

var _ provider.Provider = (*Provider)(nil)
