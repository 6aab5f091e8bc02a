package registry

import (
	"fmt"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// registryContext is the read-only view handed to plugins, scanners, yield
// sources, and the aggregation engines. Holding it grants lookups only;
// registration stays with the Registry.
type registryContext struct {
	reg *Registry
}

var _ types.Context = (*registryContext)(nil)

func (c *registryContext) GetChainAdapter(eco types.Ecosystem) (types.ChainAdapter, bool) {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()

	adapter, ok := c.reg.adapters[eco]
	return adapter, ok
}

func (c *registryContext) GetChainAdapterForChain(chainID string) (types.ChainAdapter, error) {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()

	eco, ok := c.reg.chainIndex[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %q: %w", chainID, types.ErrChainNotSupported)
	}
	adapter, ok := c.reg.adapters[eco]
	if !ok {
		// The index is derived from the adapter map, so this can only
		// happen if an adapter was replaced mid-registration.
		return nil, fmt.Errorf("chain %q: %w", chainID, types.ErrChainNotSupported)
	}
	return adapter, nil
}

func (c *registryContext) GetAllChains() []types.ChainInfo {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()

	var chains []types.ChainInfo
	for _, adapter := range c.reg.adapters {
		chains = append(chains, adapter.GetSupportedChains()...)
	}
	return chains
}

func (c *registryContext) GetScanners() []types.ProtocolScanner {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()

	out := make([]types.ProtocolScanner, len(c.reg.scanners))
	copy(out, c.reg.scanners)
	return out
}

func (c *registryContext) GetYieldSources() []types.YieldSource {
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()

	out := make([]types.YieldSource, len(c.reg.yieldSources))
	copy(out, c.reg.yieldSources)
	return out
}

func (c *registryContext) Config() types.StaticConfig {
	return c.reg.cfg
}
