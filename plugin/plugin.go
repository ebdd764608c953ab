// Package plugin implements the capability module registry: named plugins
// with declared dependencies, a load → enable → initialize → shutdown
// lifecycle, and dependency-ordered batch initialization. Initialized plugins
// contribute the tool catalog and dispatcher the turn orchestrator uses.
package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepthought-ai/deepthought/toolcall"
)

// State is a plugin's lifecycle position. The machine is
// Loaded -> Enabled -> Initialized; disable or shutdown returns a plugin to
// Loaded. Enabled without Initialized is a valid, observable transient state.
type State int

const (
	// StateLoaded means the plugin is registered but not part of the active set.
	StateLoaded State = iota
	// StateEnabled means the plugin is in the active set awaiting initialization.
	StateEnabled
	// StateInitialized means the plugin is running and contributing tools.
	StateInitialized
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateEnabled:
		return "enabled"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Plugin is a named capability module. Implementations usually embed Base and
// override the hooks they need.
type Plugin interface {
	// Name returns the unique plugin name.
	Name() string

	// Version returns the plugin version string.
	Version() string

	// Dependencies returns the names of plugins that must initialize first.
	Dependencies() []string

	// ValidateConfig checks the configuration supplied at load time.
	// Interpretation of the keys is entirely the plugin's responsibility.
	ValidateConfig() error

	// Initialize is called once the plugin's dependencies are initialized.
	Initialize(ctx context.Context) error

	// Shutdown releases resources. Called on disable and on batch shutdown.
	Shutdown() error

	// Tools returns the executable tools this plugin contributes while
	// initialized.
	Tools() []toolcall.Tool
}

// Constructor builds a Plugin from its name and configuration mapping.
type Constructor func(name string, config map[string]any) (Plugin, error)

// Base provides default no-op hook implementations plus name/config storage.
// Embed it and override what the plugin actually needs.
type Base struct {
	name   string
	config map[string]any
}

// NewBase constructs a Base with the given name and config.
func NewBase(name string, config map[string]any) Base {
	if config == nil {
		config = map[string]any{}
	}
	return Base{name: name, config: config}
}

// Name implements Plugin.
func (b *Base) Name() string { return b.name }

// Config returns the configuration mapping supplied at load time.
func (b *Base) Config() map[string]any { return b.config }

// Version implements Plugin.
func (b *Base) Version() string { return "0.0.1" }

// Dependencies implements Plugin.
func (b *Base) Dependencies() []string { return nil }

// ValidateConfig implements Plugin.
func (b *Base) ValidateConfig() error { return nil }

// Initialize implements Plugin.
func (b *Base) Initialize(context.Context) error { return nil }

// Shutdown implements Plugin.
func (b *Base) Shutdown() error { return nil }

// Tools implements Plugin.
func (b *Base) Tools() []toolcall.Tool { return nil }

// Descriptor is a read-only snapshot of one registry entry.
type Descriptor struct {
	Name         string
	Version      string
	Dependencies []string
	State        State
}

// DuplicateNameError signals a Load with a name that is already registered.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("plugin %s already loaded", e.Name)
}

// NotLoadedError signals an operation on a name the registry does not know.
type NotLoadedError struct {
	Name string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("plugin %s not loaded", e.Name)
}

// DependencyCycleError reports a dependency cycle among the given plugins.
// Members holds every plugin whose initialization is blocked by the cycle;
// none are silently dropped from the report.
type DependencyCycleError struct {
	Members []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle among plugins: %s", strings.Join(e.Members, ", "))
}

// InitError wraps a per-plugin initialization failure. Caught and logged by
// the batch; never fatal to other plugins.
type InitError struct {
	Name string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("plugin %s: initialization failed: %v", e.Name, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ConfigError wraps a per-plugin configuration validation failure.
type ConfigError struct {
	Name string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("plugin %s: invalid configuration: %v", e.Name, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
