package types

import (
	"context"
	"encoding/json"
)

// ChainAdapter normalizes balance, address, and token operations for one
// ecosystem. Implementations construct their per-chain network clients once
// at registration time and are safe for concurrent use afterwards.
type ChainAdapter interface {
	// Ecosystem returns the family of chains this adapter serves.
	Ecosystem() Ecosystem

	// GetSupportedChains returns the fixed, static list of chains served.
	GetSupportedChains() []ChainInfo

	// GetChain looks a chain up by id. An absent id is a normal miss,
	// not an error.
	GetChain(chainID string) (ChainInfo, bool)

	// IsValidAddress performs ecosystem-specific syntactic validation.
	// It never touches the network and returns false on malformed input.
	IsValidAddress(chainID, address string) bool

	// GetNativeBalance fetches the chain's native-asset balance.
	// Returns ErrChainNotSupported when the chain id is unknown to this
	// adapter, or a transport error when the RPC call fails.
	GetNativeBalance(ctx context.Context, chainID, address string) (*TokenBalance, error)

	// GetTokenBalance fetches a fungible asset's balance. The ecosystem's
	// native sentinel (reserved EVM pseudo-address, reserved Solana mint,
	// the chain's native denom) redirects to native-balance logic.
	GetTokenBalance(ctx context.Context, chainID, address, tokenIdentifier string) (*TokenBalance, error)

	// GetTokenBalances batches GetTokenBalance. The whole batch fails on
	// the first failing identifier; partial results are never returned
	// silently as zeros.
	GetTokenBalances(ctx context.Context, chainID, address string, tokenIdentifiers []string) ([]TokenBalance, error)

	// ResolveToken resolves a symbol or raw address to token metadata.
	// Resolution order: native token, static known-token table, on-chain
	// metadata read for syntactically valid addresses. Exhausting every
	// strategy yields ErrTokenNotFound, including when the on-chain read
	// fails because the address is not actually a token.
	ResolveToken(ctx context.Context, chainID, symbolOrAddress string) (*TokenInfo, error)
}

// ProtocolScanner inspects one protocol's on-chain state for one wallet on
// one chain. An empty SupportedChains list means the scanner runs on every
// candidate chain.
type ProtocolScanner interface {
	ProtocolName() string
	SupportedChains() []string
	// ScanPositions returns zero or more positions. Ordinary absence of a
	// position is (nil, nil); genuine infrastructure failure may return an
	// error, which the scan engine treats as an empty contribution.
	ScanPositions(ctx context.Context, chainID, walletAddress string, rctx Context) ([]ProtocolPosition, error)
}

// YieldSource reports yield opportunities for a token across the chains it
// supports. Failure contract matches ProtocolScanner.
type YieldSource interface {
	ProtocolName() string
	SupportedChains() []string
	GetYieldOpportunities(ctx context.Context, tokenSymbol string, rctx Context) ([]YieldOpportunity, error)
}

// Operation names used for gas cost lookups.
const (
	OpApprove = "approve"
	OpDeposit = "deposit"
)

// CostEstimator supplies best-effort entry-cost estimates. Both methods
// return zero on failure rather than an error: a missing estimate should
// bias a ranking toward "free", not remove the opportunity.
type CostEstimator interface {
	GasCostUSD(ctx context.Context, chainID, operation string) float64
	BridgeCostUSD(ctx context.Context, fromChainID, toChainID, tokenSymbol string, amount float64) float64
}

// StaticConfig is the read-only configuration plugins can see.
type StaticConfig struct {
	RPCOverrides       map[string]string `json:"rpc_overrides,omitempty"`
	APIKeys            map[string]string `json:"api_keys,omitempty"`
	DefaultSlippageBps int               `json:"default_slippage_bps,omitempty"`
}

// Context is the read-only registry view handed to plugins, scanners, and
// yield sources. It is the only channel through which they reach chain
// data; they never hold the registry itself.
type Context interface {
	GetChainAdapter(eco Ecosystem) (ChainAdapter, bool)
	GetChainAdapterForChain(chainID string) (ChainAdapter, error)
	GetAllChains() []ChainInfo
	GetScanners() []ProtocolScanner
	GetYieldSources() []YieldSource
	Config() StaticConfig
}

// ToolHandler executes one tool invocation.
type ToolHandler func(ctx context.Context, input json.RawMessage) (interface{}, error)

// ToolDefinition describes one tool a plugin exposes on the agent channel.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
	Handler     ToolHandler            `json:"-"`
}

// Plugin bundles tools behind a unique name. Initialize runs once during
// the registration window, before any of the plugin's tool names are
// claimed; returning an error aborts registration.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, rctx Context) error
	Tools() []ToolDefinition
}
