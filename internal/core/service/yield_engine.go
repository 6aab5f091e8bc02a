package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

const defaultHorizonDays = 365

// YieldEngine merges opportunities from every registered yield source,
// filters by risk tolerance, prices the entry cost of each survivor, and
// ranks by net APY.
type YieldEngine struct {
	logger zerolog.Logger
	rctx   types.Context
	costs  types.CostEstimator
}

func NewYieldEngine(rctx types.Context, costs types.CostEstimator, logger zerolog.Logger) *YieldEngine {
	return &YieldEngine{
		logger: logger.With().Str("component", "yield_engine").Logger(),
		rctx:   rctx,
		costs:  costs,
	}
}

// FindBestYield ranks yield opportunities for the token by cost-adjusted
// APY over the requested horizon.
func (e *YieldEngine) FindBestYield(ctx context.Context, req types.YieldRequest) (*types.YieldRankingResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %v", types.ErrInvalidAmount, req.Amount)
	}
	if req.TokenSymbol == "" {
		return nil, fmt.Errorf("%w: token symbol required", types.ErrInvalidAmount)
	}
	if req.CurrentChainID != "" {
		if _, err := e.rctx.GetChainAdapterForChain(req.CurrentChainID); err != nil {
			return nil, fmt.Errorf("yield request: %w", err)
		}
	}
	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = defaultHorizonDays
	}
	tolerance := req.RiskTolerance
	if tolerance == "" {
		tolerance = types.RiskHigh
	}
	symbol := strings.ToUpper(req.TokenSymbol)

	merged := e.collectOpportunities(ctx, symbol)

	var survivors []types.YieldOpportunity
	for _, opp := range merged {
		if opp.Risk.Within(tolerance) {
			survivors = append(survivors, opp)
		}
	}

	ranked := make([]types.RankedOpportunity, len(survivors))
	var wg sync.WaitGroup
	for i, opp := range survivors {
		wg.Add(1)
		go func(slot int, opp types.YieldOpportunity) {
			defer wg.Done()
			ranked[slot] = e.rank(ctx, req, opp, symbol, horizon)
		}(i, opp)
	}
	wg.Wait()

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].NetAPY != ranked[j].NetAPY {
			return ranked[i].NetAPY > ranked[j].NetAPY
		}
		if ranked[i].Protocol != ranked[j].Protocol {
			return ranked[i].Protocol < ranked[j].Protocol
		}
		return ranked[i].ChainID < ranked[j].ChainID
	})

	result := &types.YieldRankingResult{
		TokenSymbol:   symbol,
		Amount:        req.Amount,
		HorizonDays:   horizon,
		Opportunities: ranked,
	}
	if len(ranked) > 0 {
		result.Best = &ranked[0]
	}
	return result, nil
}

// collectOpportunities queries every yield source concurrently. A source
// that fails, panics, or times out contributes an empty list.
func (e *YieldEngine) collectOpportunities(ctx context.Context, symbol string) []types.YieldOpportunity {
	sources := e.rctx.GetYieldSources()
	results := make([][]types.YieldOpportunity, len(sources))
	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(slot int, source types.YieldSource) {
			defer wg.Done()
			results[slot] = e.querySource(ctx, source, symbol)
		}(i, source)
	}
	wg.Wait()

	var merged []types.YieldOpportunity
	for _, contribution := range results {
		merged = append(merged, contribution...)
	}
	return merged
}

func (e *YieldEngine) querySource(ctx context.Context, source types.YieldSource, symbol string) (opps []types.YieldOpportunity) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().
				Str("source", source.ProtocolName()).
				Interface("panic", r).
				Msg("yield source panicked, dropping its contribution")
			opps = nil
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	found, err := source.GetYieldOpportunities(taskCtx, symbol, e.rctx)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("source", source.ProtocolName()).
			Msg("yield source failed, dropping its contribution")
		return nil
	}
	return found
}

// rank prices the entry cost of one opportunity and derives its
// cost-adjusted yield numbers and execution steps.
func (e *YieldEngine) rank(ctx context.Context, req types.YieldRequest, opp types.YieldOpportunity, symbol string, horizon int) types.RankedOpportunity {
	gasCost := e.costs.GasCostUSD(ctx, opp.ChainID, types.OpApprove) +
		e.costs.GasCostUSD(ctx, opp.ChainID, types.OpDeposit)

	bridgeCost := 0.0
	needsBridge := req.CurrentChainID != "" && req.CurrentChainID != opp.ChainID
	if needsBridge {
		bridgeCost = e.costs.BridgeCostUSD(ctx, req.CurrentChainID, opp.ChainID, symbol, req.Amount)
	}

	days := float64(horizon)
	grossYield := req.Amount * (opp.APY / 100) * (days / 365)
	netYield := grossYield - (gasCost + bridgeCost)
	netAPY := (netYield / req.Amount) * 100 * (365 / days)

	// Step order is contractual: bridge before approve before deposit.
	var steps []string
	if needsBridge {
		steps = append(steps, fmt.Sprintf("bridge %s from %s to %s", symbol, req.CurrentChainID, opp.ChainID))
	}
	steps = append(steps,
		fmt.Sprintf("approve %s for %s on %s", symbol, opp.Protocol, opp.ChainID),
		fmt.Sprintf("deposit %s into %s on %s", symbol, opp.Protocol, opp.ChainID),
	)

	return types.RankedOpportunity{
		YieldOpportunity: opp,
		GasCostUSD:       gasCost,
		BridgeCostUSD:    bridgeCost,
		GrossYieldUSD:    grossYield,
		NetYieldUSD:      netYield,
		NetAPY:           netAPY,
		Steps:            steps,
	}
}
