package service

import (
	"context"
	"errors"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

type mockAdapter struct {
	eco        types.Ecosystem
	chains     []types.ChainInfo
	validAddrs map[string]bool // "chainID|address" -> valid
}

func (m *mockAdapter) Ecosystem() types.Ecosystem              { return m.eco }
func (m *mockAdapter) GetSupportedChains() []types.ChainInfo   { return m.chains }
func (m *mockAdapter) GetChain(chainID string) (types.ChainInfo, bool) {
	for _, c := range m.chains {
		if c.ID == chainID {
			return c, true
		}
	}
	return types.ChainInfo{}, false
}
func (m *mockAdapter) IsValidAddress(chainID, address string) bool {
	return m.validAddrs[chainID+"|"+address]
}
func (m *mockAdapter) GetNativeBalance(context.Context, string, string) (*types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (m *mockAdapter) GetTokenBalance(context.Context, string, string, string) (*types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (m *mockAdapter) GetTokenBalances(context.Context, string, string, []string) ([]types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (m *mockAdapter) ResolveToken(context.Context, string, string) (*types.TokenInfo, error) {
	return nil, types.ErrTokenNotFound
}

type mockContext struct {
	adapters map[string]types.ChainAdapter // by chain id
	chains   []types.ChainInfo
	scanners []types.ProtocolScanner
	sources  []types.YieldSource
}

func (m *mockContext) GetChainAdapter(eco types.Ecosystem) (types.ChainAdapter, bool) {
	for _, a := range m.adapters {
		if a.Ecosystem() == eco {
			return a, true
		}
	}
	return nil, false
}
func (m *mockContext) GetChainAdapterForChain(chainID string) (types.ChainAdapter, error) {
	a, ok := m.adapters[chainID]
	if !ok {
		return nil, types.ErrChainNotSupported
	}
	return a, nil
}
func (m *mockContext) GetAllChains() []types.ChainInfo      { return m.chains }
func (m *mockContext) GetScanners() []types.ProtocolScanner { return m.scanners }
func (m *mockContext) GetYieldSources() []types.YieldSource { return m.sources }
func (m *mockContext) Config() types.StaticConfig           { return types.StaticConfig{} }

type mockScanner struct {
	name      string
	supported []string
	scan      func(ctx context.Context, chainID, wallet string) ([]types.ProtocolPosition, error)
}

func (m *mockScanner) ProtocolName() string      { return m.name }
func (m *mockScanner) SupportedChains() []string { return m.supported }
func (m *mockScanner) ScanPositions(ctx context.Context, chainID, wallet string, _ types.Context) ([]types.ProtocolPosition, error) {
	return m.scan(ctx, chainID, wallet)
}

type mockYieldSource struct {
	name      string
	supported []string
	query     func(ctx context.Context, symbol string) ([]types.YieldOpportunity, error)
}

func (m *mockYieldSource) ProtocolName() string      { return m.name }
func (m *mockYieldSource) SupportedChains() []string { return m.supported }
func (m *mockYieldSource) GetYieldOpportunities(ctx context.Context, symbol string, _ types.Context) ([]types.YieldOpportunity, error) {
	return m.query(ctx, symbol)
}

// staticCosts is a deterministic cost estimator for yield tests.
type staticCosts struct {
	gas    map[string]float64 // per chain, per operation
	bridge float64
}

func (s *staticCosts) GasCostUSD(_ context.Context, chainID, operation string) float64 {
	return s.gas[chainID+"|"+operation]
}
func (s *staticCosts) BridgeCostUSD(_ context.Context, from, to, _ string, _ float64) float64 {
	if from == to {
		return 0
	}
	return s.bridge
}

func simplePosition(protocol, chainID string, valueUSD float64) types.ProtocolPosition {
	return types.ProtocolPosition{
		Protocol:      protocol,
		Kind:          types.PositionSupply,
		ChainID:       chainID,
		TotalValueUSD: valueUSD,
		Assets: []types.PositionAsset{
			{Symbol: "X", Balance: "1", ValueUSD: valueUSD},
		},
	}
}
