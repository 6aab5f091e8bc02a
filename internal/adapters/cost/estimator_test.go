package cost

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

type stubAdapter struct {
	eco      types.Ecosystem
	chains   map[string]types.ChainInfo
	gasPrice *big.Int
	gasErr   error
}

func (s *stubAdapter) Ecosystem() types.Ecosystem { return s.eco }
func (s *stubAdapter) GetSupportedChains() []types.ChainInfo {
	out := make([]types.ChainInfo, 0, len(s.chains))
	for _, c := range s.chains {
		out = append(out, c)
	}
	return out
}
func (s *stubAdapter) GetChain(chainID string) (types.ChainInfo, bool) {
	c, ok := s.chains[chainID]
	return c, ok
}
func (s *stubAdapter) IsValidAddress(string, string) bool { return true }
func (s *stubAdapter) GetNativeBalance(context.Context, string, string) (*types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) GetTokenBalance(context.Context, string, string, string) (*types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) GetTokenBalances(context.Context, string, string, []string) ([]types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) ResolveToken(context.Context, string, string) (*types.TokenInfo, error) {
	return nil, types.ErrTokenNotFound
}
func (s *stubAdapter) SuggestGasPrice(context.Context, string) (*big.Int, error) {
	return s.gasPrice, s.gasErr
}

type stubContext struct {
	adapters map[string]types.ChainAdapter
}

func (s *stubContext) GetChainAdapter(types.Ecosystem) (types.ChainAdapter, bool) { return nil, false }
func (s *stubContext) GetChainAdapterForChain(chainID string) (types.ChainAdapter, error) {
	a, ok := s.adapters[chainID]
	if !ok {
		return nil, types.ErrChainNotSupported
	}
	return a, nil
}
func (s *stubContext) GetAllChains() []types.ChainInfo          { return nil }
func (s *stubContext) GetScanners() []types.ProtocolScanner     { return nil }
func (s *stubContext) GetYieldSources() []types.YieldSource     { return nil }
func (s *stubContext) Config() types.StaticConfig               { return types.StaticConfig{} }

type stubFeed struct {
	prices map[string]float64
	err    error
}

func (s *stubFeed) GetPrice(_ context.Context, token types.TokenInfo) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.prices[token.Symbol], nil
}

func evmTestContext(gasPriceWei int64) *stubContext {
	adapter := &stubAdapter{
		eco: types.EcosystemEVM,
		chains: map[string]types.ChainInfo{
			"ethereum": {ID: "ethereum", Ecosystem: types.EcosystemEVM,
				NativeToken: types.TokenInfo{Symbol: "ETH", Decimals: 18}},
			"base": {ID: "base", Ecosystem: types.EcosystemEVM,
				NativeToken: types.TokenInfo{Symbol: "ETH", Decimals: 18}},
		},
		gasPrice: big.NewInt(gasPriceWei),
	}
	return &stubContext{adapters: map[string]types.ChainAdapter{"ethereum": adapter, "base": adapter}}
}

func TestEstimator_GasCostUSD_EVM(t *testing.T) {
	// 20 gwei * 55k gas = 0.0011 ETH; at $3000 that's $3.30.
	e := NewEstimator(evmTestContext(20_000_000_000), &stubFeed{prices: map[string]float64{"ETH": 3000}}, zerolog.Nop())
	got := e.GasCostUSD(context.Background(), "ethereum", types.OpApprove)
	assert.InDelta(t, 3.30, got, 1e-9)
}

func TestEstimator_GasCostUSD_UnknownChainIsZero(t *testing.T) {
	e := NewEstimator(evmTestContext(1), &stubFeed{prices: map[string]float64{"ETH": 3000}}, zerolog.Nop())
	assert.Zero(t, e.GasCostUSD(context.Background(), "fantom", types.OpDeposit))
}

func TestEstimator_GasCostUSD_PriceFailureIsZero(t *testing.T) {
	e := NewEstimator(evmTestContext(20_000_000_000), &stubFeed{err: errors.New("feed down")}, zerolog.Nop())
	assert.Zero(t, e.GasCostUSD(context.Background(), "ethereum", types.OpDeposit))
}

func TestEstimator_GasCostUSD_GasPriceFailureIsZero(t *testing.T) {
	rctx := evmTestContext(0)
	rctx.adapters["ethereum"].(*stubAdapter).gasErr = errors.New("rpc down")
	e := NewEstimator(rctx, &stubFeed{prices: map[string]float64{"ETH": 3000}}, zerolog.Nop())
	assert.Zero(t, e.GasCostUSD(context.Background(), "ethereum", types.OpDeposit))
}

func TestEstimator_GasCostUSD_Solana(t *testing.T) {
	adapter := &stubAdapter{
		eco: types.EcosystemSolana,
		chains: map[string]types.ChainInfo{
			"solana": {ID: "solana", Ecosystem: types.EcosystemSolana,
				NativeToken: types.TokenInfo{Symbol: "SOL", Decimals: 9}},
		},
	}
	rctx := &stubContext{adapters: map[string]types.ChainAdapter{"solana": adapter}}
	e := NewEstimator(rctx, &stubFeed{prices: map[string]float64{"SOL": 200}}, zerolog.Nop())
	// 10k lamports at $200/SOL = $0.002.
	assert.InDelta(t, 0.002, e.GasCostUSD(context.Background(), "solana", types.OpDeposit), 1e-9)
}

func TestEstimator_BridgeCostUSD(t *testing.T) {
	e := NewEstimator(evmTestContext(1), &stubFeed{}, zerolog.Nop())
	ctx := context.Background()

	assert.Zero(t, e.BridgeCostUSD(ctx, "ethereum", "ethereum", "USDC", 1000))
	// $0.50 base + 5bps of $1000 = $1.00.
	assert.InDelta(t, 1.0, e.BridgeCostUSD(ctx, "ethereum", "base", "USDC", 1000), 1e-9)
	assert.Zero(t, e.BridgeCostUSD(ctx, "ethereum", "fantom", "USDC", 1000))
	assert.Zero(t, e.BridgeCostUSD(ctx, "ethereum", "base", "USDC", 0))
}
