// Package balances exposes chain and balance lookups as agent tools.
package balances

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/tools"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

type Plugin struct {
	logger zerolog.Logger
	rctx   types.Context
}

func New(logger zerolog.Logger) *Plugin {
	return &Plugin{logger: logger.With().Str("plugin", "balances").Logger()}
}

func (p *Plugin) Name() string { return "balances" }

func (p *Plugin) Initialize(_ context.Context, rctx types.Context) error {
	p.rctx = rctx
	return nil
}

type balanceInput struct {
	ChainID string `json:"chain_id"`
	Address string `json:"address"`
	Token   string `json:"token,omitempty"`
}

func (p *Plugin) Tools() []types.ToolDefinition {
	return []types.ToolDefinition{
		{
			Name:        "defi_balance",
			Description: "Get the native asset balance of a wallet on a chain.",
			InputSchema: tools.ObjectSchema(map[string]interface{}{
				"chain_id": tools.StringProperty("Chain id, e.g. ethereum, solana, cosmoshub"),
				"address":  tools.StringProperty("Wallet address in the chain's native format"),
			}, "chain_id", "address"),
			Handler: p.nativeBalance,
		},
		{
			Name:        "defi_token_balance",
			Description: "Get a wallet's balance of a specific token on a chain.",
			InputSchema: tools.ObjectSchema(map[string]interface{}{
				"chain_id": tools.StringProperty("Chain id"),
				"address":  tools.StringProperty("Wallet address"),
				"token":    tools.StringProperty("Token symbol or on-chain address"),
			}, "chain_id", "address", "token"),
			Handler: p.tokenBalance,
		},
		{
			Name:        "defi_resolve_token",
			Description: "Resolve a token symbol or address to full token metadata.",
			InputSchema: tools.ObjectSchema(map[string]interface{}{
				"chain_id": tools.StringProperty("Chain id"),
				"token":    tools.StringProperty("Token symbol or on-chain address"),
			}, "chain_id", "token"),
			Handler: p.resolveToken,
		},
		{
			Name:        "defi_list_chains",
			Description: "List every chain known to the registry with its ecosystem and native token.",
			InputSchema: tools.ObjectSchema(map[string]interface{}{}),
			Handler:     p.listChains,
		},
	}
}

func (p *Plugin) nativeBalance(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var in balanceInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	adapter, err := p.rctx.GetChainAdapterForChain(in.ChainID)
	if err != nil {
		return nil, err
	}
	return adapter.GetNativeBalance(ctx, in.ChainID, in.Address)
}

func (p *Plugin) tokenBalance(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var in balanceInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	adapter, err := p.rctx.GetChainAdapterForChain(in.ChainID)
	if err != nil {
		return nil, err
	}
	return adapter.GetTokenBalance(ctx, in.ChainID, in.Address, in.Token)
}

func (p *Plugin) resolveToken(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var in balanceInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	adapter, err := p.rctx.GetChainAdapterForChain(in.ChainID)
	if err != nil {
		return nil, err
	}
	return adapter.ResolveToken(ctx, in.ChainID, in.Token)
}

func (p *Plugin) listChains(_ context.Context, _ json.RawMessage) (interface{}, error) {
	return p.rctx.GetAllChains(), nil
}
