// Package scanners ships the reference ProtocolScanner implementations
// registered by default: native balances, ERC-20 watchlist holdings, and
// Aave V3 supply positions.
package scanners

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/price"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// NativeBalanceScanner reports the wallet's native-asset balance on any
// chain. Its empty supported-chain list means it runs on every candidate
// chain regardless of ecosystem.
type NativeBalanceScanner struct {
	logger zerolog.Logger
	feed   price.Feed
}

func NewNativeBalanceScanner(feed price.Feed, logger zerolog.Logger) *NativeBalanceScanner {
	return &NativeBalanceScanner{
		logger: logger.With().Str("scanner", "native").Logger(),
		feed:   feed,
	}
}

func (s *NativeBalanceScanner) ProtocolName() string      { return "native" }
func (s *NativeBalanceScanner) SupportedChains() []string { return nil }

func (s *NativeBalanceScanner) ScanPositions(ctx context.Context, chainID, wallet string, rctx types.Context) ([]types.ProtocolPosition, error) {
	adapter, err := rctx.GetChainAdapterForChain(chainID)
	if err != nil {
		return nil, err
	}
	bal, err := adapter.GetNativeBalance(ctx, chainID, wallet)
	if err != nil {
		return nil, err
	}
	if bal.BalanceRaw == "0" {
		return nil, nil
	}

	valueUSD := s.valueUSD(ctx, chainID, bal)
	return []types.ProtocolPosition{{
		Protocol:      s.ProtocolName(),
		Kind:          types.PositionNative,
		ChainID:       chainID,
		TotalValueUSD: valueUSD,
		Assets: []types.PositionAsset{{
			Symbol:   bal.Token.Symbol,
			Address:  bal.Token.Address,
			Balance:  bal.BalanceFormatted,
			ValueUSD: valueUSD,
		}},
	}}, nil
}

// valueUSD prices a balance, degrading to zero when the feed is down so
// the position itself still surfaces.
func (s *NativeBalanceScanner) valueUSD(ctx context.Context, chainID string, bal *types.TokenBalance) float64 {
	amount, err := strconv.ParseFloat(bal.BalanceFormatted, 64)
	if err != nil {
		return 0
	}
	p, err := s.feed.GetPrice(ctx, bal.Token)
	if err != nil {
		s.logger.Warn().Err(err).Str("chain", chainID).Str("token", bal.Token.Symbol).Msg("price unavailable, reporting zero value")
		return 0
	}
	return amount * p
}
