// Package config loads runtime settings from a YAML file with environment
// overrides. The file carries everything non-secret (provider selection,
// conversation limits, plugin toggles, system prompt); credentials come
// from the environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/deepthought-ai/deepthought/provider"
)

// Environment variable names recognized by the override pass.
const (
	EnvProvider = "DEEPTHOUGHT_PROVIDER"
	EnvHost     = "DEEPTHOUGHT_HOST"
	EnvModel    = "DEEPTHOUGHT_MODEL"
	EnvAPIKey   = "DEEPTHOUGHT_API_KEY"
	EnvLogLevel = "DEEPTHOUGHT_LOG_LEVEL"
)

// providerKeyEnv maps a provider name to its conventional credential
// variable, consulted when DEEPTHOUGHT_API_KEY is unset.
var providerKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"groq":      "GROQ_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Duration decodes human-readable YAML durations such as "30s" or "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Provider selects and addresses the generation backend.
type Provider struct {
	// Name selects the backend factory ("ollama", "openai", "groq",
	// "anthropic").
	Name string `yaml:"name"`

	// Host is the endpoint of a self-hosted backend. Ignored by hosted
	// providers.
	Host string `yaml:"host"`

	// Model is the default model identifier.
	Model string `yaml:"model"`

	// Timeout bounds each individual backend request.
	Timeout Duration `yaml:"timeout"`

	// RetryCount is the total number of generate attempts on timeout.
	RetryCount int `yaml:"retry_count"`

	// APIKey is the hosted-backend credential. Prefer the environment;
	// this field exists for development setups only.
	APIKey string `yaml:"api_key"`
}

// Conversation bounds history retention and context rendering.
type Conversation struct {
	// MaxMessages caps messages kept per conversation.
	MaxMessages int `yaml:"max_messages"`

	// MaxAge prunes messages older than this on every mutation.
	MaxAge Duration `yaml:"max_age"`

	// ContextBudget caps the rendered prompt in bytes.
	ContextBudget int `yaml:"context_budget"`
}

// Plugin carries one plugin's enablement flag and opaque configuration.
// Interpretation of Config keys is entirely the plugin's concern.
type Plugin struct {
	Enabled bool           `yaml:"enabled"`
	Config  map[string]any `yaml:"config"`
}

// Settings is the full runtime configuration.
type Settings struct {
	Provider     Provider          `yaml:"provider"`
	Conversation Conversation      `yaml:"conversation"`
	SystemPrompt string            `yaml:"system_prompt"`
	Plugins      map[string]Plugin `yaml:"plugins"`
	LogLevel     string            `yaml:"log_level"`
}

// Default returns the settings used when no file or environment override
// is present: a local Ollama backend with the standard retention limits.
func Default() Settings {
	return Settings{
		Provider: Provider{
			Name:       "ollama",
			Host:       "http://localhost:11434",
			Model:      "llama3.2",
			Timeout:    Duration(30 * time.Second),
			RetryCount: 3,
		},
		Conversation: Conversation{
			MaxMessages:   50,
			MaxAge:        Duration(24 * time.Hour),
			ContextBudget: 4096,
		},
		SystemPrompt: "You are a helpful assistant.",
		Plugins:      map[string]Plugin{},
		LogLevel:     "info",
	}
}

// Load reads settings from path, layered over Default and finished with
// environment overrides. A missing file is not an error; the defaults
// plus environment apply. Environment always wins over the file.
func Load(path string, envFiles ...string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return Settings{}, fmt.Errorf("parse settings file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Settings{}, fmt.Errorf("read settings file %s: %w", path, err)
		}
	}

	// Seed the process environment from .env files when present. Existing
	// variables are never overwritten.
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Settings{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// applyEnv overlays recognized environment variables onto s.
func (s *Settings) applyEnv() {
	if v := os.Getenv(EnvProvider); v != "" {
		s.Provider.Name = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		s.Provider.Host = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		s.Provider.Model = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		s.Provider.APIKey = v
	} else if envName, ok := providerKeyEnv[s.Provider.Name]; ok {
		if v := os.Getenv(envName); v != "" {
			s.Provider.APIKey = v
		}
	}
}

// Validate checks structural sanity. Credential presence for hosted
// providers is enforced later by the provider factory, which knows which
// backends require one.
func (s *Settings) Validate() error {
	if s.Provider.Name == "" {
		return fmt.Errorf("provider name must not be empty")
	}
	if s.Provider.RetryCount < 1 {
		return fmt.Errorf("provider retry_count must be at least 1, got %d", s.Provider.RetryCount)
	}
	if s.Provider.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive, got %s", s.Provider.Timeout.Std())
	}
	if s.Conversation.MaxMessages < 1 {
		return fmt.Errorf("conversation max_messages must be at least 1, got %d", s.Conversation.MaxMessages)
	}
	if s.Conversation.MaxAge <= 0 {
		return fmt.Errorf("conversation max_age must be positive, got %s", s.Conversation.MaxAge.Std())
	}
	if s.Conversation.ContextBudget < 1 {
		return fmt.Errorf("conversation context_budget must be at least 1, got %d", s.Conversation.ContextBudget)
	}
	return nil
}

// ProviderConfig converts the file-level provider section into the
// client's configuration value.
func (s *Settings) ProviderConfig() provider.Config {
	return provider.Config{
		Provider:   s.Provider.Name,
		Host:       s.Provider.Host,
		APIKey:     s.Provider.APIKey,
		Model:      s.Provider.Model,
		Timeout:    s.Provider.Timeout.Std(),
		RetryCount: s.Provider.RetryCount,
	}
}

// EnabledPlugins returns the names of plugins flagged enabled, for
// feeding the registry's Enable loop.
func (s *Settings) EnabledPlugins() []string {
	names := make([]string, 0, len(s.Plugins))
	for name, p := range s.Plugins {
		if p.Enabled {
			names = append(names, name)
		}
	}
	return names
}
