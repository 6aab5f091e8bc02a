// Package yieldsource ships the reference YieldSource implementations:
// the DefiLlama yields API and on-chain Aave V3 reserve rates.
package yieldsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

const defiLlamaYieldsURL = "https://yields.llama.fi"

// Risk tiering by pool depth: deep stablecoin pools are low risk, deep
// volatile pools medium, shallow pools high.
const (
	lowRiskMinTVL    = 50_000_000
	mediumRiskMinTVL = 10_000_000
)

// defiLlamaChainIDs maps DefiLlama chain labels to internal chain ids.
// Pools on unmapped chains are dropped.
var defiLlamaChainIDs = map[string]string{
	"Ethereum": "ethereum",
	"Base":     "base",
	"Arbitrum": "arbitrum",
	"Polygon":  "polygon",
	"Solana":   "solana",
	"Osmosis":  "osmosis",
}

// DefiLlamaSource serves yield opportunities from the DefiLlama yields
// aggregator, spanning every protocol DefiLlama tracks.
type DefiLlamaSource struct {
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	minTVL  float64
}

func NewDefiLlamaSource(logger zerolog.Logger) *DefiLlamaSource {
	return &DefiLlamaSource{
		logger:  logger.With().Str("source", "defillama").Logger(),
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: defiLlamaYieldsURL,
		minTVL:  100_000,
	}
}

// SetBaseURL points the source at a different API host. Test hook.
func (s *DefiLlamaSource) SetBaseURL(u string) { s.baseURL = strings.TrimSuffix(u, "/") }

func (s *DefiLlamaSource) ProtocolName() string      { return "defillama" }
func (s *DefiLlamaSource) SupportedChains() []string { return nil }

type llamaPool struct {
	Pool       string  `json:"pool"`
	Chain      string  `json:"chain"`
	Project    string  `json:"project"`
	Symbol     string  `json:"symbol"`
	TVLUsd     float64 `json:"tvlUsd"`
	APY        float64 `json:"apy"`
	APYBase    float64 `json:"apyBase"`
	APYReward  float64 `json:"apyReward"`
	StableCoin bool    `json:"stablecoin"`
}

func (s *DefiLlamaSource) GetYieldOpportunities(ctx context.Context, tokenSymbol string, _ types.Context) ([]types.YieldOpportunity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/pools", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: defillama: %v", types.ErrProviderFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: defillama returned status %d", types.ErrProviderFailure, resp.StatusCode)
	}

	var payload struct {
		Status string      `json:"status"`
		Data   []llamaPool `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding defillama response: %v", types.ErrProviderFailure, err)
	}

	symbol := strings.ToUpper(tokenSymbol)
	var opps []types.YieldOpportunity
	for _, pool := range payload.Data {
		chainID, ok := defiLlamaChainIDs[pool.Chain]
		if !ok {
			continue
		}
		// Single-asset pools only; "USDC" matches "USDC" and bridged
		// variants like "USDC.E", never LP symbols like "USDC-WETH".
		poolSymbol := strings.ToUpper(pool.Symbol)
		if poolSymbol != symbol && !strings.HasPrefix(poolSymbol, symbol+".") {
			continue
		}
		if pool.TVLUsd < s.minTVL || pool.APY <= 0 {
			continue
		}
		opps = append(opps, types.YieldOpportunity{
			Protocol:    pool.Project,
			ChainID:     chainID,
			AssetSymbol: symbol,
			APY:         pool.APY,
			APYKind:     types.APYVariable,
			TVLUSD:      pool.TVLUsd,
			Risk:        tierFor(pool),
			Category:    "lending",
		})
	}
	s.logger.Debug().Str("token", symbol).Int("opportunities", len(opps)).Msg("defillama pools filtered")
	return opps, nil
}

func tierFor(pool llamaPool) types.RiskTier {
	switch {
	case pool.StableCoin && pool.TVLUsd >= lowRiskMinTVL:
		return types.RiskLow
	case pool.TVLUsd >= mediumRiskMinTVL:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}
