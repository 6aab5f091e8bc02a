// Package price resolves USD spot prices for tokens via the DexScreener
// public API.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

const defaultBaseURL = "https://api.dexscreener.com"

// priceTTL bounds cache staleness. Spot prices drift fast; a minute is
// plenty for portfolio valuation.
const priceTTL = time.Minute

// Feed is the read surface consumed by scanners and the cost estimator.
type Feed interface {
	GetPrice(ctx context.Context, token types.TokenInfo) (float64, error)
}

// stablecoins are pinned to $1 and never hit the network.
var stablecoins = map[string]bool{
	"USDC": true, "USDT": true, "DAI": true, "USDE": true, "FDUSD": true,
}

// queryAddresses redirects price lookups for tokens whose own address is
// not a DEX-traded asset (native sentinels, staked wrappers).
var queryAddresses = map[string]string{
	"ethereum:ETH": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	"base:ETH":     "0x4200000000000000000000000000000000000006",
	"arbitrum:ETH": "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
	"polygon:POL":  "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
	"solana:SOL":   "So11111111111111111111111111111111111111112",
}

// dexScreenerChainIDs translates internal chain ids to DexScreener's.
var dexScreenerChainIDs = map[string]string{
	"ethereum":  "ethereum",
	"base":      "base",
	"arbitrum":  "arbitrum",
	"polygon":   "polygon",
	"solana":    "solana",
	"osmosis":   "osmosis",
	"cosmoshub": "osmosis", // hub assets trade on osmosis DEXes
}

type DexScreenerFeed struct {
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	cache   *ristretto.Cache
}

func NewDexScreenerFeed(logger zerolog.Logger) (*DexScreenerFeed, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating price cache: %w", err)
	}
	return &DexScreenerFeed{
		logger:  logger.With().Str("component", "price_feed").Logger(),
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
		cache:   cache,
	}, nil
}

// SetBaseURL points the feed at a different API host. Test hook.
func (f *DexScreenerFeed) SetBaseURL(u string) { f.baseURL = strings.TrimSuffix(u, "/") }

func (f *DexScreenerFeed) GetPrice(ctx context.Context, token types.TokenInfo) (float64, error) {
	symbol := strings.ToUpper(token.Symbol)
	if stablecoins[symbol] {
		return 1.0, nil
	}

	address := token.Address
	if redirect, ok := queryAddresses[token.ChainID+":"+symbol]; ok {
		address = redirect
	}
	cacheKey := token.ChainID + ":" + strings.ToLower(address)
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached.(float64), nil
	}

	price, err := f.fetchPrice(ctx, token.ChainID, address)
	if err != nil {
		return 0, err
	}
	f.cache.SetWithTTL(cacheKey, price, 1, priceTTL)
	return price, nil
}

func (f *DexScreenerFeed) fetchPrice(ctx context.Context, chainID, address string) (float64, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", f.baseURL, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: dexscreener: %v", types.ErrProviderFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: dexscreener returned status %d", types.ErrProviderFailure, resp.StatusCode)
	}

	var result struct {
		Pairs []struct {
			PriceUsd     string `json:"priceUsd"`
			ChainID      string `json:"chainId"`
			LiquidityUSD struct {
				USD float64 `json:"usd"`
			} `json:"liquidity"`
		} `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("%w: decoding dexscreener response: %v", types.ErrProviderFailure, err)
	}

	// Prefer the deepest pair on the token's own chain; fall back to the
	// deepest pair anywhere.
	wantChain := dexScreenerChainIDs[chainID]
	best := ""
	bestLiquidity := -1.0
	for _, pair := range result.Pairs {
		onChain := pair.ChainID == wantChain
		liq := pair.LiquidityUSD.USD
		if onChain {
			liq += 1e12 // on-chain pairs always outrank off-chain ones
		}
		if liq > bestLiquidity {
			bestLiquidity = liq
			best = pair.PriceUsd
		}
	}
	if best == "" {
		return 0, fmt.Errorf("%w: no dexscreener pairs for %s", types.ErrProviderFailure, address)
	}
	price, err := strconv.ParseFloat(best, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad priceUsd %q", types.ErrProviderFailure, best)
	}
	f.logger.Debug().Str("chain", chainID).Str("token", address).Float64("price", price).Msg("price resolved")
	return price, nil
}
