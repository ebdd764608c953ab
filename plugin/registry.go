package plugin

import (
	"context"
	"sort"
	"sync"

	"github.com/deepthought-ai/deepthought/logging"
	"github.com/deepthought-ai/deepthought/toolcall"
)

// Options configure a Registry.
type Options struct {
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Registry holds named plugins and drives their lifecycle. Lifecycle
// operations (Enable, Disable, InitializeAll, ShutdownAll) are serialized
// registry-wide via a write lock since they mutate shared state; catalog and
// dispatch reads take the read lock so concurrent turns never contend with
// each other.
type Registry struct {
	logger logging.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	tools   map[string]toolcall.Tool // explicit dispatch table, rebuilt on lifecycle changes
}

type entry struct {
	plugin Plugin
	state  State
}

// NewRegistry constructs an empty plugin registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		logger:  opts.Logger,
		entries: make(map[string]*entry),
		tools:   make(map[string]toolcall.Tool),
	}
}

// Load constructs the plugin via its constructor and registers it in state
// Loaded. A name that is already registered fails with *DuplicateNameError.
func (r *Registry) Load(name string, ctor Constructor, config map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return &DuplicateNameError{Name: name}
	}

	p, err := ctor(name, config)
	if err != nil {
		return &InitError{Name: name, Err: err}
	}

	r.entries[name] = &entry{plugin: p, state: StateLoaded}
	r.logger.Debug("plugin loaded", "plugin", name, "version", p.Version())
	return nil
}

// Enable adds the plugin to the active set. Enabling an already enabled or
// initialized plugin is a no-op.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return &NotLoadedError{Name: name}
	}
	if e.state == StateLoaded {
		e.state = StateEnabled
		logging.LogPluginLifecycle(r.logger, name, "enable", true, nil)
	}
	return nil
}

// Disable removes the plugin from the active set. An initialized plugin is
// shut down first; a shutdown failure is logged but the plugin still leaves
// the initialized set.
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return &NotLoadedError{Name: name}
	}

	if e.state == StateInitialized {
		if err := e.plugin.Shutdown(); err != nil {
			logging.LogPluginLifecycle(r.logger, name, "shutdown", false, err)
		}
	}
	e.state = StateLoaded
	r.rebuildDispatchLocked()
	logging.LogPluginLifecycle(r.logger, name, "disable", true, nil)
	return nil
}

// Descriptors returns a snapshot of every registered plugin, sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, Descriptor{
			Name:         name,
			Version:      e.plugin.Version(),
			Dependencies: append([]string(nil), e.plugin.Dependencies()...),
			State:        e.state,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveOrder topologically sorts the given plugin names by their declared
// dependencies, restricted to the set: a dependency always precedes its
// dependents; dependencies outside the set impose no ordering. On a cycle
// the acyclic prefix is returned together with a *DependencyCycleError whose
// Members list every plugin blocked by the cycle.
func (r *Registry) ResolveOrder(names []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveOrderLocked(names)
}

func (r *Registry) resolveOrderLocked(names []string) ([]string, error) {
	inSet := make(map[string]bool, len(names))
	for _, name := range names {
		inSet[name] = true
	}

	// Kahn's algorithm with a sorted ready list for deterministic output.
	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, name := range names {
		indegree[name] = 0
	}
	for _, name := range names {
		e, ok := r.entries[name]
		if !ok {
			return nil, &NotLoadedError{Name: name}
		}
		for _, dep := range e.plugin.Dependencies() {
			if !inSet[dep] || dep == name {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(names))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var unblocked []string
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				unblocked = append(unblocked, dependent)
			}
		}
		if len(unblocked) > 0 {
			ready = append(ready, unblocked...)
			sort.Strings(ready)
		}
	}

	if len(order) < len(names) {
		blocked := make([]string, 0, len(names)-len(order))
		for name, deg := range indegree {
			if deg > 0 {
				blocked = append(blocked, name)
			}
		}
		sort.Strings(blocked)
		return order, &DependencyCycleError{Members: blocked}
	}

	return order, nil
}

// InitializeAll initializes every currently enabled plugin in dependency
// order. A plugin whose configuration fails validation is logged and skipped;
// a per-plugin initialization failure is logged and does not abort the rest
// of the batch. A dependency cycle is returned as an error while plugins
// outside the cycle still initialize.
func (r *Registry) InitializeAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var enabled []string
	for name, e := range r.entries {
		if e.state == StateEnabled {
			enabled = append(enabled, name)
		}
	}
	sort.Strings(enabled)

	order, cycleErr := r.resolveOrderLocked(enabled)
	if cycleErr != nil {
		if _, isCycle := cycleErr.(*DependencyCycleError); !isCycle {
			return cycleErr
		}
		r.logger.Error("plugin dependency cycle detected", "error", cycleErr)
	}

	for _, name := range order {
		e := r.entries[name]

		if err := e.plugin.ValidateConfig(); err != nil {
			r.logger.Warn("plugin config validation failed, skipping",
				"plugin", name, "error", &ConfigError{Name: name, Err: err})
			continue
		}

		if missing := r.missingDependencyLocked(e.plugin); missing != "" {
			r.logger.Warn("plugin dependency not initialized, skipping",
				"plugin", name, "dependency", missing)
			continue
		}

		if err := e.plugin.Initialize(ctx); err != nil {
			logging.LogPluginLifecycle(r.logger, name, "initialize", false, &InitError{Name: name, Err: err})
			continue
		}
		e.state = StateInitialized
		logging.LogPluginLifecycle(r.logger, name, "initialize", true, nil)
	}

	r.rebuildDispatchLocked()
	return cycleErr
}

// missingDependencyLocked returns the first declared dependency that is not
// initialized, or "" when all are satisfied.
func (r *Registry) missingDependencyLocked(p Plugin) string {
	for _, dep := range p.Dependencies() {
		e, ok := r.entries[dep]
		if !ok || e.state != StateInitialized {
			return dep
		}
	}
	return ""
}

// ShutdownAll shuts down every initialized plugin in reverse dependency
// order (dependents before their dependencies). A failing shutdown is logged
// and does not prevent the attempt on the others. All affected plugins
// return to Loaded.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var initialized []string
	for name, e := range r.entries {
		if e.state == StateInitialized {
			initialized = append(initialized, name)
		}
	}
	sort.Strings(initialized)

	order, err := r.resolveOrderLocked(initialized)
	if err != nil {
		// Fall back to name order for anything the sort could not place.
		order = initialized
	}

	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		e := r.entries[name]
		err := e.plugin.Shutdown()
		logging.LogPluginLifecycle(r.logger, name, "shutdown", err == nil, err)
		e.state = StateLoaded
	}

	r.rebuildDispatchLocked()
}

// rebuildDispatchLocked regenerates the tool dispatch table from initialized
// plugins. Built once per lifecycle change rather than looked up by name at
// call time. Caller holds the write lock.
func (r *Registry) rebuildDispatchLocked() {
	r.tools = make(map[string]toolcall.Tool)
	for name, e := range r.entries {
		if e.state != StateInitialized {
			continue
		}
		for _, tool := range e.plugin.Tools() {
			spec := tool.Spec()
			if _, taken := r.tools[spec.Name]; taken {
				r.logger.Warn("duplicate tool name, keeping first registration",
					"tool", spec.Name, "plugin", name)
				continue
			}
			r.tools[spec.Name] = tool
		}
	}
}

// Catalog returns the specs of every tool contributed by initialized
// plugins, sorted by tool name.
func (r *Registry) Catalog() []toolcall.Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]toolcall.Spec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Dispatch executes the named tool with the given arguments. Unknown names
// fail with a *toolcall.ToolError.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return "", toolcall.NewToolError(name, "unknown tool")
	}
	return tool.Call(ctx, args)
}
