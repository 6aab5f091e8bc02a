// Package yield exposes the yield ranking engine as an agent tool.
package yield

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/cost"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/price"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/core/service"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/tools"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

type Plugin struct {
	logger zerolog.Logger
	feed   price.Feed
	engine *service.YieldEngine
}

func New(feed price.Feed, logger zerolog.Logger) *Plugin {
	return &Plugin{
		logger: logger.With().Str("plugin", "yield").Logger(),
		feed:   feed,
	}
}

func (p *Plugin) Name() string { return "yield" }

func (p *Plugin) Initialize(_ context.Context, rctx types.Context) error {
	estimator := cost.NewEstimator(rctx, p.feed, p.logger)
	p.engine = service.NewYieldEngine(rctx, estimator, p.logger)
	return nil
}

func (p *Plugin) Tools() []types.ToolDefinition {
	return []types.ToolDefinition{{
		Name: "defi_find_yield",
		Description: "Rank yield opportunities for a token by net APY after gas and " +
			"bridge costs, and return the best one with its execution steps.",
		InputSchema: tools.ObjectSchema(map[string]interface{}{
			"token":          tools.StringProperty("Token symbol, e.g. USDC"),
			"amount":         tools.NumberProperty("Amount to deploy, in token units"),
			"current_chain":  tools.StringProperty("Chain the funds currently sit on, for bridge-cost estimation"),
			"risk_tolerance": tools.StringEnumProperty("Maximum acceptable risk tier", "low", "medium", "high"),
			"horizon_days":   tools.IntegerProperty("Holding horizon in days, default 365"),
		}, "token", "amount"),
		Handler: p.findYield,
	}}
}

func (p *Plugin) findYield(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var in struct {
		Token         string  `json:"token"`
		Amount        float64 `json:"amount"`
		CurrentChain  string  `json:"current_chain,omitempty"`
		RiskTolerance string  `json:"risk_tolerance,omitempty"`
		HorizonDays   int     `json:"horizon_days,omitempty"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	return p.engine.FindBestYield(ctx, types.YieldRequest{
		TokenSymbol:    in.Token,
		Amount:         in.Amount,
		CurrentChainID: in.CurrentChain,
		RiskTolerance:  types.RiskTier(in.RiskTolerance),
		HorizonDays:    in.HorizonDays,
	})
}
