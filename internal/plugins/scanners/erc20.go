package scanners

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/price"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// watchlist is the set of symbols the ERC-20 scanner probes on every EVM
// chain. Symbols a chain's adapter cannot resolve are skipped.
var watchlist = []string{"USDC", "USDT", "DAI", "WETH"}

// ERC20Scanner reports plain token holdings for a fixed watchlist on EVM
// chains.
type ERC20Scanner struct {
	logger zerolog.Logger
	feed   price.Feed
	chains []string
}

func NewERC20Scanner(feed price.Feed, chains []string, logger zerolog.Logger) *ERC20Scanner {
	return &ERC20Scanner{
		logger: logger.With().Str("scanner", "erc20").Logger(),
		feed:   feed,
		chains: chains,
	}
}

func (s *ERC20Scanner) ProtocolName() string      { return "erc20" }
func (s *ERC20Scanner) SupportedChains() []string { return s.chains }

func (s *ERC20Scanner) ScanPositions(ctx context.Context, chainID, wallet string, rctx types.Context) ([]types.ProtocolPosition, error) {
	adapter, err := rctx.GetChainAdapterForChain(chainID)
	if err != nil {
		return nil, err
	}

	var assets []types.PositionAsset
	total := 0.0
	for _, symbol := range watchlist {
		token, err := adapter.ResolveToken(ctx, chainID, symbol)
		if err != nil {
			if errors.Is(err, types.ErrTokenNotFound) {
				continue // not listed on this chain
			}
			return nil, err
		}
		bal, err := adapter.GetTokenBalance(ctx, chainID, wallet, symbol)
		if err != nil {
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
		if p, err := s.feed.GetPrice(ctx, *token); err == nil {
			valueUSD = amount * p
		} else {
			s.logger.Warn().Err(err).Str("chain", chainID).Str("token", symbol).Msg("price unavailable, reporting zero value")
		}
		assets = append(assets, types.PositionAsset{
			Symbol:   token.Symbol,
			Address:  token.Address,
			Balance:  bal.BalanceFormatted,
			ValueUSD: valueUSD,
		})
		total += valueUSD
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return []types.ProtocolPosition{{
		Protocol:      s.ProtocolName(),
		Kind:          types.PositionToken,
		ChainID:       chainID,
		TotalValueUSD: total,
		Assets:        assets,
	}}, nil
}
