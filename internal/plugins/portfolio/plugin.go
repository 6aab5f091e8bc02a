// Package portfolio exposes the wallet scan engine as an agent tool.
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/core/service"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/tools"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

type Plugin struct {
	logger zerolog.Logger
	engine *service.ScanEngine
}

func New(logger zerolog.Logger) *Plugin {
	return &Plugin{logger: logger.With().Str("plugin", "portfolio").Logger()}
}

func (p *Plugin) Name() string { return "portfolio" }

func (p *Plugin) Initialize(_ context.Context, rctx types.Context) error {
	p.engine = service.NewScanEngine(rctx, p.logger)
	return nil
}

func (p *Plugin) Tools() []types.ToolDefinition {
	return []types.ToolDefinition{{
		Name: "defi_scan_wallet",
		Description: "Scan a wallet across chains and protocols and return aggregated " +
			"positions with USD totals grouped by protocol and by chain.",
		InputSchema: tools.ObjectSchema(map[string]interface{}{
			"address":   tools.StringProperty("Wallet address; chains are auto-detected from its format unless chain_ids is set"),
			"chain_ids": tools.ArrayProperty("Optional explicit chain ids to scan", tools.StringProperty("Chain id")),
			"protocols": tools.ArrayProperty("Optional protocol names to restrict the scan to", tools.StringProperty("Protocol name")),
		}, "address"),
		Handler: p.scanWallet,
	}}
}

func (p *Plugin) scanWallet(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var in struct {
		Address   string   `json:"address"`
		ChainIDs  []string `json:"chain_ids,omitempty"`
		Protocols []string `json:"protocols,omitempty"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	return p.engine.ScanWallet(ctx, types.WalletScanRequest{
		Address:   in.Address,
		ChainIDs:  in.ChainIDs,
		Protocols: in.Protocols,
	})
}
