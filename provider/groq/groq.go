// Package groq implements provider.Provider against Groq's OpenAI-compatible
// endpoint. It reuses the OpenAI adapter with an overridden base URL instead
// of duplicating a wire client.
package groq

import (
	"github.com/deepthought-ai/deepthought/provider"
	"github.com/deepthought-ai/deepthought/provider/openai"
)

const baseURL = "https://api.groq.com/openai/v1"

// New creates a Groq provider with the given API key.
func New(apiKey string) (provider.Provider, error) {
	return openai.New(apiKey, func(o *openai.Options) {
		o.BaseURL = baseURL
		o.ProviderName = "groq"
	})
}

// Factory adapts New to the provider.Factory signature.
func Factory(cfg provider.Config) (provider.Provider, error) {
	return New(cfg.APIKey)
}
