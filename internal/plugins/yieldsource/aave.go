package yieldsource

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// aavePools maps chain id -> Aave V3 Pool contract.
var aavePools = map[string]string{
	"ethereum": "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2",
	"arbitrum": "0x794a61358D6845594F94dc1DB02A252b5b4814aD",
	"base":     "0xA238Dd80C259a72e81d7e4664a9801593F98d1c5",
}

const getReserveDataABI = `[{"inputs":[{"name":"asset","type":"address"}],"name":"getReserveData","outputs":[],"stateMutability":"view","type":"function"}]`

// currentLiquidityRate sits in the third 32-byte slot of the
// getReserveData return struct, expressed per second in RAY (1e27).
const liquidityRateOffset = 64

const secondsPerYear = 31_536_000

// ethCaller is satisfied by the EVM adapter.
type ethCaller interface {
	EthCall(ctx context.Context, chainID, to string, data []byte) ([]byte, error)
}

// AaveV3Source reads supply APYs straight from Aave V3 pool contracts.
type AaveV3Source struct {
	logger  zerolog.Logger
	reserve abi.ABI
}

func NewAaveV3Source(logger zerolog.Logger) (*AaveV3Source, error) {
	parsed, err := abi.JSON(strings.NewReader(getReserveDataABI))
	if err != nil {
		return nil, fmt.Errorf("parsing reserve abi: %w", err)
	}
	return &AaveV3Source{
		logger:  logger.With().Str("source", "aave-v3").Logger(),
		reserve: parsed,
	}, nil
}

func (s *AaveV3Source) ProtocolName() string { return "aave-v3" }

func (s *AaveV3Source) SupportedChains() []string {
	chains := make([]string, 0, len(aavePools))
	for chainID := range aavePools {
		chains = append(chains, chainID)
	}
	sort.Strings(chains)
	return chains
}

func (s *AaveV3Source) GetYieldOpportunities(ctx context.Context, tokenSymbol string, rctx types.Context) ([]types.YieldOpportunity, error) {
	adapter, ok := rctx.GetChainAdapter(types.EcosystemEVM)
	if !ok {
		return nil, nil
	}
	caller, ok := adapter.(ethCaller)
	if !ok {
		return nil, nil
	}

	symbol := strings.ToUpper(tokenSymbol)
	var opps []types.YieldOpportunity
	var lastErr error
	for _, chainID := range s.SupportedChains() {
		token, err := adapter.ResolveToken(ctx, chainID, symbol)
		if err != nil {
			if errors.Is(err, types.ErrTokenNotFound) {
				continue // asset not listed on this chain
			}
			lastErr = err
			continue
		}
		apy, err := s.supplyAPY(ctx, caller, chainID, token.Address)
		if err != nil {
			s.logger.Warn().Err(err).Str("chain", chainID).Msg("reserve read failed")
			lastErr = err
			continue
		}
		if apy <= 0 {
			continue
		}
		opps = append(opps, types.YieldOpportunity{
			Protocol:    "aave-v3",
			ChainID:     chainID,
			AssetSymbol: symbol,
			APY:         apy,
			APYKind:     types.APYVariable,
			Risk:        types.RiskLow,
			Category:    "lending",
		})
	}
	if len(opps) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return opps, nil
}

func (s *AaveV3Source) supplyAPY(ctx context.Context, caller ethCaller, chainID, asset string) (float64, error) {
	data, err := s.reserve.Pack("getReserveData", common.HexToAddress(asset))
	if err != nil {
		return 0, fmt.Errorf("packing getReserveData: %w", err)
	}
	result, err := caller.EthCall(ctx, chainID, aavePools[chainID], data)
	if err != nil {
		return 0, err
	}
	if len(result) < liquidityRateOffset+32 {
		return 0, fmt.Errorf("%w: short getReserveData response (%d bytes)", types.ErrProviderFailure, len(result))
	}
	rate := new(big.Int).SetBytes(result[liquidityRateOffset : liquidityRateOffset+32])
	return rayToAPY(rate), nil
}

// rayToAPY converts an annualized RAY (1e27) liquidity rate to a
// percentage APY using per-second compounding, rounded to two decimals.
func rayToAPY(rayRate *big.Int) float64 {
	apr, _ := new(big.Float).Quo(
		new(big.Float).SetInt(rayRate),
		big.NewFloat(1e27),
	).Float64()
	apy := (math.Pow(1+apr/secondsPerYear, secondsPerYear) - 1) * 100
	return math.Round(apy*100) / 100
}
