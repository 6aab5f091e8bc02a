package yieldsource

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

func TestDefiLlamaSource_FiltersAndTiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pools", r.URL.Path)
		fmt.Fprint(w, `{"status":"success","data":[
			{"pool":"1","chain":"Ethereum","project":"aave-v3","symbol":"USDC","tvlUsd":400000000,"apy":4.1,"stablecoin":true},
			{"pool":"2","chain":"Arbitrum","project":"compound-v3","symbol":"USDC.E","tvlUsd":20000000,"apy":5.5,"stablecoin":true},
			{"pool":"3","chain":"Ethereum","project":"tiny-farm","symbol":"USDC","tvlUsd":500000,"apy":40,"stablecoin":true},
			{"pool":"4","chain":"Ethereum","project":"uniswap-v3","symbol":"USDC-WETH","tvlUsd":90000000,"apy":12},
			{"pool":"5","chain":"Fantom","project":"aave-v3","symbol":"USDC","tvlUsd":90000000,"apy":3},
			{"pool":"6","chain":"Ethereum","project":"dust","symbol":"USDC","tvlUsd":50000,"apy":90},
			{"pool":"7","chain":"Base","project":"moonwell","symbol":"WETH","tvlUsd":60000000,"apy":2.2}
		]}`)
	}))
	defer srv.Close()

	source := NewDefiLlamaSource(zerolog.Nop())
	source.SetBaseURL(srv.URL)

	opps, err := source.GetYieldOpportunities(context.Background(), "usdc", nil)
	require.NoError(t, err)
	require.Len(t, opps, 3)

	byProject := map[string]types.YieldOpportunity{}
	for _, opp := range opps {
		byProject[opp.Protocol] = opp
	}
	// Deep stablecoin pool: low risk.
	assert.Equal(t, types.RiskLow, byProject["aave-v3"].Risk)
	assert.Equal(t, "ethereum", byProject["aave-v3"].ChainID)
	// Bridged-variant symbol matches; mid TVL: medium risk.
	assert.Equal(t, types.RiskMedium, byProject["compound-v3"].Risk)
	assert.Equal(t, "arbitrum", byProject["compound-v3"].ChainID)
	// Shallow pool above the floor: high risk.
	assert.Equal(t, types.RiskHigh, byProject["tiny-farm"].Risk)
	// LP pairs, unmapped chains, and sub-floor TVL are dropped.
	assert.NotContains(t, byProject, "uniswap-v3")
	assert.NotContains(t, byProject, "dust")
}

func TestDefiLlamaSource_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	source := NewDefiLlamaSource(zerolog.Nop())
	source.SetBaseURL(srv.URL)

	_, err := source.GetYieldOpportunities(context.Background(), "USDC", nil)
	assert.ErrorIs(t, err, types.ErrProviderFailure)
}

type fakeEVMAdapter struct {
	chains  map[string]types.TokenInfo // chainID -> resolved token
	ethCall func(ctx context.Context, chainID, to string, data []byte) ([]byte, error)
}

func (f *fakeEVMAdapter) Ecosystem() types.Ecosystem            { return types.EcosystemEVM }
func (f *fakeEVMAdapter) GetSupportedChains() []types.ChainInfo { return nil }
func (f *fakeEVMAdapter) GetChain(string) (types.ChainInfo, bool) {
	return types.ChainInfo{}, false
}
func (f *fakeEVMAdapter) IsValidAddress(string, string) bool { return true }
func (f *fakeEVMAdapter) GetNativeBalance(context.Context, string, string) (*types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeEVMAdapter) GetTokenBalance(context.Context, string, string, string) (*types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeEVMAdapter) GetTokenBalances(context.Context, string, string, []string) ([]types.TokenBalance, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeEVMAdapter) ResolveToken(_ context.Context, chainID, _ string) (*types.TokenInfo, error) {
	token, ok := f.chains[chainID]
	if !ok {
		return nil, types.ErrTokenNotFound
	}
	return &token, nil
}
func (f *fakeEVMAdapter) EthCall(ctx context.Context, chainID, to string, data []byte) ([]byte, error) {
	return f.ethCall(ctx, chainID, to, data)
}

type fakeContext struct {
	adapter types.ChainAdapter
}

func (f *fakeContext) GetChainAdapter(types.Ecosystem) (types.ChainAdapter, bool) {
	return f.adapter, true
}
func (f *fakeContext) GetChainAdapterForChain(string) (types.ChainAdapter, error) {
	return f.adapter, nil
}
func (f *fakeContext) GetAllChains() []types.ChainInfo      { return nil }
func (f *fakeContext) GetScanners() []types.ProtocolScanner { return nil }
func (f *fakeContext) GetYieldSources() []types.YieldSource { return nil }
func (f *fakeContext) Config() types.StaticConfig           { return types.StaticConfig{} }

// reserveDataResponse builds a getReserveData return blob with the
// liquidity rate in the third slot.
func reserveDataResponse(rate *big.Int) []byte {
	out := make([]byte, 15*32)
	rate.FillBytes(out[liquidityRateOffset : liquidityRateOffset+32])
	return out
}

func TestAaveV3Source(t *testing.T) {
	// 3.8% APR in RAY; per-second compounding gives 3.87% APY.
	apr := new(big.Int).Mul(big.NewInt(38), exp10(24))

	adapter := &fakeEVMAdapter{
		chains: map[string]types.TokenInfo{
			"ethereum": {Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", ChainID: "ethereum"},
		},
	}
	adapter.ethCall = func(_ context.Context, chainID, to string, data []byte) ([]byte, error) {
		assert.Equal(t, "ethereum", chainID)
		assert.Equal(t, aavePools["ethereum"], to)
		return reserveDataResponse(apr), nil
	}

	source, err := NewAaveV3Source(zerolog.Nop())
	require.NoError(t, err)

	opps, err := source.GetYieldOpportunities(context.Background(), "USDC", &fakeContext{adapter: adapter})
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "aave-v3", opps[0].Protocol)
	assert.Equal(t, "ethereum", opps[0].ChainID)
	assert.Equal(t, types.RiskLow, opps[0].Risk)
	assert.InDelta(t, 3.87, opps[0].APY, 0.001)
}

func TestAaveV3Source_AllReservesFail(t *testing.T) {
	adapter := &fakeEVMAdapter{
		chains: map[string]types.TokenInfo{
			"ethereum": {Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
		},
	}
	adapter.ethCall = func(context.Context, string, string, []byte) ([]byte, error) {
		return nil, types.ErrProviderFailure
	}

	source, err := NewAaveV3Source(zerolog.Nop())
	require.NoError(t, err)

	_, err = source.GetYieldOpportunities(context.Background(), "USDC", &fakeContext{adapter: adapter})
	assert.ErrorIs(t, err, types.ErrProviderFailure)
}

func TestAaveV3Source_UnlistedAssetSkipped(t *testing.T) {
	adapter := &fakeEVMAdapter{chains: map[string]types.TokenInfo{}}
	source, err := NewAaveV3Source(zerolog.Nop())
	require.NoError(t, err)

	opps, err := source.GetYieldOpportunities(context.Background(), "SHIB", &fakeContext{adapter: adapter})
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestRayToAPY(t *testing.T) {
	assert.Zero(t, rayToAPY(big.NewInt(0)))
	// 10% APR compounds to ~10.52% APY.
	apr := new(big.Int).Mul(big.NewInt(1), exp10(26))
	assert.InDelta(t, 10.52, rayToAPY(apr), 0.001)
}

func exp10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}
