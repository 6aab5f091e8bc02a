// Package cost estimates gas and bridge costs in USD for yield routing.
// Estimates are best-effort: any failure yields zero rather than an
// error, so rankings degrade toward optimistic instead of breaking.
package cost

import (
	"context"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/price"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// gasUnits is the typical gas usage per operation on EVM chains.
var gasUnits = map[string]uint64{
	types.OpApprove: 55_000,
	types.OpDeposit: 220_000,
	"withdraw":      240_000,
	"transfer":      65_000,
}

// solanaFeeLamports approximates base fee plus priority fee per
// transaction; Solana fees do not scale with the operation.
const solanaFeeLamports = 10_000

// cosmosFeeNative is the typical native-denom fee per transaction, in
// display units (ATOM, OSMO).
const cosmosFeeNative = 0.005

// Bridge pricing: flat base plus basis points of the bridged amount,
// modeled on typical fast-bridge fees.
const (
	bridgeBaseUSD = 0.50
	bridgeFeeBps  = 5
)

// gasPricer is satisfied by the EVM adapter.
type gasPricer interface {
	SuggestGasPrice(ctx context.Context, chainID string) (*big.Int, error)
}

type Estimator struct {
	logger zerolog.Logger
	rctx   types.Context
	feed   price.Feed
}

func NewEstimator(rctx types.Context, feed price.Feed, logger zerolog.Logger) *Estimator {
	return &Estimator{
		logger: logger.With().Str("component", "cost_estimator").Logger(),
		rctx:   rctx,
		feed:   feed,
	}
}

// GasCostUSD estimates the USD cost of one operation on the chain.
// Returns 0 when the chain is unknown or any provider lookup fails.
func (e *Estimator) GasCostUSD(ctx context.Context, chainID, operation string) float64 {
	adapter, err := e.rctx.GetChainAdapterForChain(chainID)
	if err != nil {
		e.logger.Warn().Str("chain", chainID).Msg("gas estimate for unknown chain")
		return 0
	}
	info, _ := adapter.GetChain(chainID)
	nativePrice, err := e.feed.GetPrice(ctx, info.NativeToken)
	if err != nil {
		e.logger.Warn().Err(err).Str("chain", chainID).Msg("native price unavailable, assuming zero gas cost")
		return 0
	}

	switch adapter.Ecosystem() {
	case types.EcosystemEVM:
		return e.evmGasCost(ctx, adapter, chainID, operation, nativePrice)
	case types.EcosystemSolana:
		return float64(solanaFeeLamports) / 1e9 * nativePrice
	case types.EcosystemCosmos:
		return cosmosFeeNative * nativePrice
	}
	return 0
}

func (e *Estimator) evmGasCost(ctx context.Context, adapter types.ChainAdapter, chainID, operation string, nativePrice float64) float64 {
	units, ok := gasUnits[operation]
	if !ok {
		units = gasUnits["transfer"]
	}
	pricer, ok := adapter.(gasPricer)
	if !ok {
		return 0
	}
	gasPrice, err := pricer.SuggestGasPrice(ctx, chainID)
	if err != nil {
		e.logger.Warn().Err(err).Str("chain", chainID).Msg("gas price unavailable, assuming zero gas cost")
		return 0
	}
	wei := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(units))
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
	return eth * nativePrice
}

// BridgeCostUSD estimates moving amountUSD of a token between chains.
// Same-chain moves are free.
func (e *Estimator) BridgeCostUSD(ctx context.Context, fromChainID, toChainID, tokenSymbol string, amountUSD float64) float64 {
	if fromChainID == toChainID {
		return 0
	}
	if _, err := e.rctx.GetChainAdapterForChain(fromChainID); err != nil {
		return 0
	}
	if _, err := e.rctx.GetChainAdapterForChain(toChainID); err != nil {
		return 0
	}
	if amountUSD <= 0 {
		return 0
	}
	return bridgeBaseUSD + amountUSD*float64(bridgeFeeBps)/10_000
}
