// Package registry wires chain adapters, capability providers, and
// tool-exposing plugins together. Registration happens in a bounded window
// at startup; Freeze ends the window and from then on the registry is
// read-only, so the query path needs no locking discipline beyond what the
// registration mutex already provides.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// ToolNamePrefix is the namespace every exposed tool name must carry.
const ToolNamePrefix = "defi_"

// Registry is the single source of truth for which adapter handles which
// chain, which scanners and yield sources exist, and which tool names are
// claimed.
type Registry struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	cfg    types.StaticConfig
	frozen bool

	adapters     map[types.Ecosystem]types.ChainAdapter
	chainIndex   map[string]types.Ecosystem
	plugins      map[string]types.Plugin
	tools        map[string]types.ToolDefinition
	scanners     []types.ProtocolScanner
	yieldSources []types.YieldSource
}

// New creates an empty registry in its registration phase.
func New(cfg types.StaticConfig, logger zerolog.Logger) *Registry {
	return &Registry{
		logger:     logger.With().Str("component", "registry").Logger(),
		cfg:        cfg,
		adapters:   make(map[types.Ecosystem]types.ChainAdapter),
		chainIndex: make(map[string]types.Ecosystem),
		plugins:    make(map[string]types.Plugin),
		tools:      make(map[string]types.ToolDefinition),
	}
}

// RegisterChainAdapter records the adapter under its ecosystem key and
// indexes every chain id it reports. The last registration for an
// ecosystem wins; its predecessor's chain ids are unindexed first. A chain
// id already claimed by a different ecosystem is a configuration error.
func (r *Registry) RegisterChainAdapter(adapter types.ChainAdapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return types.ErrRegistryFrozen
	}
	eco := adapter.Ecosystem()
	if !eco.Valid() {
		return fmt.Errorf("adapter reports unknown ecosystem %q", eco)
	}

	if _, replaced := r.adapters[eco]; replaced {
		for id, owner := range r.chainIndex {
			if owner == eco {
				delete(r.chainIndex, id)
			}
		}
		r.logger.Warn().Str("ecosystem", string(eco)).Msg("replacing previously registered adapter")
	}

	chains := adapter.GetSupportedChains()
	for _, c := range chains {
		if owner, taken := r.chainIndex[c.ID]; taken && owner != eco {
			return fmt.Errorf("chain %q already indexed for ecosystem %q", c.ID, owner)
		}
	}

	r.adapters[eco] = adapter
	for _, c := range chains {
		r.chainIndex[c.ID] = eco
	}

	r.logger.Info().
		Str("ecosystem", string(eco)).
		Int("chains", len(chains)).
		Msg("chain adapter registered")
	return nil
}

// RegisterPlugin initializes the plugin against the registry's context view
// and claims its tool names. A duplicate plugin name, a missing namespace
// prefix, or a tool-name collision fails the registration synchronously and
// leaves every previously registered plugin intact.
func (r *Registry) RegisterPlugin(ctx context.Context, plugin types.Plugin) error {
	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("plugin has empty name")
	}

	r.mu.Lock()
	if r.frozen {
		r.mu.Unlock()
		return types.ErrRegistryFrozen
	}
	if _, dup := r.plugins[name]; dup {
		r.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", name, types.ErrPluginExists)
	}
	r.mu.Unlock()

	// Initialize runs against the context view, which takes read locks of
	// its own; it must not run under the registration lock.
	if err := plugin.Initialize(ctx, r.contextView()); err != nil {
		return fmt.Errorf("plugin %q initialize: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return types.ErrRegistryFrozen
	}
	if _, dup := r.plugins[name]; dup {
		return fmt.Errorf("plugin %q: %w", name, types.ErrPluginExists)
	}

	defs := plugin.Tools()
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if !strings.HasPrefix(def.Name, ToolNamePrefix) {
			return fmt.Errorf("plugin %q tool %q: %w %q", name, def.Name, types.ErrToolNamePrefix, ToolNamePrefix)
		}
		if _, taken := r.tools[def.Name]; taken {
			return fmt.Errorf("plugin %q tool %q: %w", name, def.Name, types.ErrToolNameTaken)
		}
		if _, dup := seen[def.Name]; dup {
			return fmt.Errorf("plugin %q tool %q: %w", name, def.Name, types.ErrToolNameTaken)
		}
		if def.Handler == nil {
			return fmt.Errorf("plugin %q tool %q has no handler", name, def.Name)
		}
		seen[def.Name] = struct{}{}
	}

	r.plugins[name] = plugin
	for _, def := range defs {
		r.tools[def.Name] = def
	}

	r.logger.Info().Str("plugin", name).Int("tools", len(defs)).Msg("plugin registered")
	return nil
}

// RegisterScanner appends a protocol scanner. Two scanners may claim the
// same protocol name; they scan different aspects.
func (r *Registry) RegisterScanner(s types.ProtocolScanner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return types.ErrRegistryFrozen
	}
	r.scanners = append(r.scanners, s)
	r.logger.Debug().Str("protocol", s.ProtocolName()).Msg("scanner registered")
	return nil
}

// RegisterYieldSource appends a yield source.
func (r *Registry) RegisterYieldSource(y types.YieldSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return types.ErrRegistryFrozen
	}
	r.yieldSources = append(r.yieldSources, y)
	r.logger.Debug().Str("protocol", y.ProtocolName()).Msg("yield source registered")
	return nil
}

// Freeze ends the registration window and returns the read-only context
// view. Any registration after Freeze fails with ErrRegistryFrozen, which
// is what makes lock-free reads on the hot path sound.
func (r *Registry) Freeze() types.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
	r.logger.Info().
		Int("adapters", len(r.adapters)).
		Int("chains", len(r.chainIndex)).
		Int("plugins", len(r.plugins)).
		Int("scanners", len(r.scanners)).
		Int("yield_sources", len(r.yieldSources)).
		Msg("registry frozen")
	return r.contextView()
}

// Context returns the read-only view without freezing. Plugins registered
// later will still become visible through it.
func (r *Registry) Context() types.Context {
	return r.contextView()
}

// IsFrozen reports whether the registration window has ended.
func (r *Registry) IsFrozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Tool looks up a registered tool definition by name.
func (r *Registry) Tool(name string) (types.ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	return def, ok
}

// Tools returns every registered tool definition, sorted by name.
func (r *Registry) Tools() []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) contextView() types.Context {
	return &registryContext{reg: r}
}
