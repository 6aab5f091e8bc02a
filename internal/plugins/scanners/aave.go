package scanners

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/price"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// aTokens maps chain id -> underlying symbol -> aToken contract. aToken
// balances track the underlying 1:1 plus accrued interest, so the
// underlying price values them.
var aTokens = map[string]map[string]string{
	"ethereum": {
		"USDC": "0x98C23E9d8f34FEFb1B7BD6a91B7FF122F4e16F5c",
		"WETH": "0x4d5F47FA6A74757f35C14fD3a6Ef8E3C9BC514E8",
		"DAI":  "0x018008bfb33d285247A21d44E50697654f754e63",
	},
	"arbitrum": {
		"USDC": "0x724dc807b04555b71ed48a6896b6F41593b8C637",
		"WETH": "0xe50fA9b3c56FfB159cB0FCA61F5c9D750e8128c8",
	},
	"base": {
		"USDC": "0x4e65fE4DbA92790696d040ac24Aa414708F5c0AB",
		"WETH": "0xD4a0e0b9149BCee3C920d2E00b5dE09138fd8bb7",
	},
}

// AaveSupplyScanner reports Aave V3 supply positions via aToken balances.
type AaveSupplyScanner struct {
	logger zerolog.Logger
	feed   price.Feed
}

func NewAaveSupplyScanner(feed price.Feed, logger zerolog.Logger) *AaveSupplyScanner {
	return &AaveSupplyScanner{
		logger: logger.With().Str("scanner", "aave-v3").Logger(),
		feed:   feed,
	}
}

func (s *AaveSupplyScanner) ProtocolName() string { return "aave-v3" }

func (s *AaveSupplyScanner) SupportedChains() []string {
	chains := make([]string, 0, len(aTokens))
	for chainID := range aTokens {
		chains = append(chains, chainID)
	}
	sort.Strings(chains)
	return chains
}

func (s *AaveSupplyScanner) ScanPositions(ctx context.Context, chainID, wallet string, rctx types.Context) ([]types.ProtocolPosition, error) {
	adapter, err := rctx.GetChainAdapterForChain(chainID)
	if err != nil {
		return nil, err
	}

	var assets []types.PositionAsset
	total := 0.0
	for underlying, aToken := range aTokens[chainID] {
		bal, err := adapter.GetTokenBalance(ctx, chainID, wallet, aToken)
		if err != nil {
			if errors.Is(err, types.ErrTokenNotFound) {
				continue // aToken metadata unreadable, reserve likely retired
			}
			return nil, err
		}
		if bal.BalanceRaw == "0" {
			continue
		}
		amount, err := strconv.ParseFloat(bal.BalanceFormatted, 64)
		if err != nil {
			continue
		}

		valueUSD := 0.0
		token, err := adapter.ResolveToken(ctx, chainID, underlying)
		if err == nil {
			if p, err := s.feed.GetPrice(ctx, *token); err == nil {
				valueUSD = amount * p
			}
		}
		assets = append(assets, types.PositionAsset{
			Symbol:   "a" + underlying,
			Address:  aToken,
			Balance:  bal.BalanceFormatted,
			ValueUSD: valueUSD,
			APY:      0,
		})
		total += valueUSD
	}
	if len(assets) == 0 {
		return nil, nil
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Symbol < assets[j].Symbol })
	return []types.ProtocolPosition{{
		Protocol:      s.ProtocolName(),
		Kind:          types.PositionSupply,
		ChainID:       chainID,
		TotalValueUSD: total,
		Assets:        assets,
	}}, nil
}
