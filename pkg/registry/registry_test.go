package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// mockAdapter implements types.ChainAdapter over a static chain list.
type mockAdapter struct {
	eco    types.Ecosystem
	chains []types.ChainInfo
}

func newMockAdapter(eco types.Ecosystem, chainIDs ...string) *mockAdapter {
	chains := make([]types.ChainInfo, len(chainIDs))
	for i, id := range chainIDs {
		chains[i] = types.ChainInfo{ID: id, Ecosystem: eco}
	}
	return &mockAdapter{eco: eco, chains: chains}
}

func (m *mockAdapter) Ecosystem() types.Ecosystem            { return m.eco }
func (m *mockAdapter) GetSupportedChains() []types.ChainInfo { return m.chains }

func (m *mockAdapter) GetChain(chainID string) (types.ChainInfo, bool) {
	for _, c := range m.chains {
		if c.ID == chainID {
			return c, true
		}
	}
	return types.ChainInfo{}, false
}

func (m *mockAdapter) IsValidAddress(chainID, address string) bool { return true }

func (m *mockAdapter) GetNativeBalance(ctx context.Context, chainID, address string) (*types.TokenBalance, error) {
	return nil, types.ErrChainNotSupported
}

func (m *mockAdapter) GetTokenBalance(ctx context.Context, chainID, address, token string) (*types.TokenBalance, error) {
	return nil, types.ErrChainNotSupported
}

func (m *mockAdapter) GetTokenBalances(ctx context.Context, chainID, address string, tokens []string) ([]types.TokenBalance, error) {
	return nil, types.ErrChainNotSupported
}

func (m *mockAdapter) ResolveToken(ctx context.Context, chainID, symbolOrAddress string) (*types.TokenInfo, error) {
	return nil, types.ErrTokenNotFound
}

// mockPlugin exposes a fixed set of tool names.
type mockPlugin struct {
	name      string
	toolNames []string
	initErr   error
	initCalls int
}

func (p *mockPlugin) Name() string { return p.name }

func (p *mockPlugin) Initialize(ctx context.Context, rctx types.Context) error {
	p.initCalls++
	return p.initErr
}

func (p *mockPlugin) Tools() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, len(p.toolNames))
	for i, name := range p.toolNames {
		defs[i] = types.ToolDefinition{
			Name: name,
			Handler: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
				return nil, nil
			},
		}
	}
	return defs
}

type mockScanner struct{ protocol string }

func (s *mockScanner) ProtocolName() string      { return s.protocol }
func (s *mockScanner) SupportedChains() []string { return nil }
func (s *mockScanner) ScanPositions(ctx context.Context, chainID, wallet string, rctx types.Context) ([]types.ProtocolPosition, error) {
	return nil, nil
}

func newTestRegistry() *Registry {
	return New(types.StaticConfig{}, zerolog.Nop())
}

func TestRegisterChainAdapter_IndexesChains(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterChainAdapter(newMockAdapter(types.EcosystemEVM, "ethereum", "base")))
	require.NoError(t, r.RegisterChainAdapter(newMockAdapter(types.EcosystemSolana, "solana")))

	rctx := r.Context()

	adapter, err := rctx.GetChainAdapterForChain("base")
	require.NoError(t, err)
	assert.Equal(t, types.EcosystemEVM, adapter.Ecosystem())

	adapter, err = rctx.GetChainAdapterForChain("solana")
	require.NoError(t, err)
	assert.Equal(t, types.EcosystemSolana, adapter.Ecosystem())

	_, err = rctx.GetChainAdapterForChain("near")
	assert.ErrorIs(t, err, types.ErrChainNotSupported)

	assert.Len(t, rctx.GetAllChains(), 3)
}

func TestRegisterChainAdapter_LastWins(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterChainAdapter(newMockAdapter(types.EcosystemEVM, "ethereum", "polygon")))

	replacement := newMockAdapter(types.EcosystemEVM, "ethereum", "base")
	require.NoError(t, r.RegisterChainAdapter(replacement))

	rctx := r.Context()

	// The replaced adapter's chains are unindexed.
	_, err := rctx.GetChainAdapterForChain("polygon")
	assert.ErrorIs(t, err, types.ErrChainNotSupported)

	adapter, err := rctx.GetChainAdapterForChain("base")
	require.NoError(t, err)
	assert.Same(t, replacement, adapter)
}

func TestRegisterChainAdapter_CrossEcosystemCollision(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterChainAdapter(newMockAdapter(types.EcosystemEVM, "ethereum")))

	err := r.RegisterChainAdapter(newMockAdapter(types.EcosystemSolana, "ethereum"))
	assert.Error(t, err)
}

func TestRegisterPlugin_Initializes(t *testing.T) {
	r := newTestRegistry()
	p := &mockPlugin{name: "balances", toolNames: []string{"defi_balance"}}

	require.NoError(t, r.RegisterPlugin(context.Background(), p))
	assert.Equal(t, 1, p.initCalls)

	def, ok := r.Tool("defi_balance")
	require.True(t, ok)
	assert.Equal(t, "defi_balance", def.Name)
}

func TestRegisterPlugin_DuplicateName(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterPlugin(context.Background(), &mockPlugin{name: "balances", toolNames: []string{"defi_balance"}}))

	err := r.RegisterPlugin(context.Background(), &mockPlugin{name: "balances", toolNames: []string{"defi_other"}})
	assert.ErrorIs(t, err, types.ErrPluginExists)
}

func TestRegisterPlugin_ToolNameCollision(t *testing.T) {
	r := newTestRegistry()
	first := &mockPlugin{name: "balances", toolNames: []string{"defi_balance"}}
	require.NoError(t, r.RegisterPlugin(context.Background(), first))

	second := &mockPlugin{name: "portfolio", toolNames: []string{"defi_scan_wallet", "defi_balance"}}
	err := r.RegisterPlugin(context.Background(), second)
	require.ErrorIs(t, err, types.ErrToolNameTaken)

	// The first plugin's tools stay intact and queryable; none of the
	// failed plugin's tools leak in.
	_, ok := r.Tool("defi_balance")
	assert.True(t, ok)
	_, ok = r.Tool("defi_scan_wallet")
	assert.False(t, ok)
	assert.Len(t, r.Tools(), 1)
}

func TestRegisterPlugin_MissingPrefix(t *testing.T) {
	r := newTestRegistry()
	err := r.RegisterPlugin(context.Background(), &mockPlugin{name: "bad", toolNames: []string{"balance"}})
	assert.ErrorIs(t, err, types.ErrToolNamePrefix)
}

func TestRegisterPlugin_InitializeFailureAborts(t *testing.T) {
	r := newTestRegistry()
	p := &mockPlugin{name: "broken", toolNames: []string{"defi_broken"}, initErr: errors.New("boom")}

	err := r.RegisterPlugin(context.Background(), p)
	require.Error(t, err)
	_, ok := r.Tool("defi_broken")
	assert.False(t, ok)
}

func TestFreeze_RejectsLateRegistration(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterScanner(&mockScanner{protocol: "aave"}))

	rctx := r.Freeze()
	assert.Len(t, rctx.GetScanners(), 1)

	assert.ErrorIs(t, r.RegisterChainAdapter(newMockAdapter(types.EcosystemEVM, "ethereum")), types.ErrRegistryFrozen)
	assert.ErrorIs(t, r.RegisterScanner(&mockScanner{protocol: "late"}), types.ErrRegistryFrozen)
	assert.ErrorIs(t, r.RegisterPlugin(context.Background(), &mockPlugin{name: "late", toolNames: []string{"defi_late"}}), types.ErrRegistryFrozen)
}

func TestRegisterScanner_DuplicateProtocolAllowed(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterScanner(&mockScanner{protocol: "aave"}))
	require.NoError(t, r.RegisterScanner(&mockScanner{protocol: "aave"}))

	assert.Len(t, r.Context().GetScanners(), 2)
}
