// Package chain provides the per-ecosystem adapters that normalize
// address validation, balance lookups, and token resolution across EVM,
// Solana, and Cosmos chains.
package chain

import "github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"

// Native-asset sentinels. Each ecosystem spells "the native token" its own
// way; the owning adapter maps its sentinel onto native-balance logic.
const (
	// NativeTokenEVM is the conventional pseudo-address for the chain's
	// gas token on EVM chains.
	NativeTokenEVM = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

	// NativeTokenSolana is the wrapped SOL mint, used as the native
	// sentinel on Solana.
	NativeTokenSolana = "So11111111111111111111111111111111111111112"

	// Cosmos chains use the chain's native denom string (e.g. "uatom");
	// there is no single sentinel constant.
)

// evmChains is the static list of EVM chains served out of the box.
// NativeChainID carries the numeric EVM chain id.
var evmChains = []types.ChainInfo{
	{
		ID:            "ethereum",
		Name:          "Ethereum",
		Ecosystem:     types.EcosystemEVM,
		NativeChainID: "1",
		NativeToken:   types.TokenInfo{Symbol: "ETH", Name: "Ether", Decimals: 18, Address: NativeTokenEVM, ChainID: "ethereum", PriceFeedID: "ethereum"},
		RPCEndpoint:   "https://eth.llamarpc.com",
		ExplorerURL:   "https://etherscan.io",
	},
	{
		ID:            "base",
		Name:          "Base",
		Ecosystem:     types.EcosystemEVM,
		NativeChainID: "8453",
		NativeToken:   types.TokenInfo{Symbol: "ETH", Name: "Ether", Decimals: 18, Address: NativeTokenEVM, ChainID: "base", PriceFeedID: "ethereum"},
		RPCEndpoint:   "https://mainnet.base.org",
		ExplorerURL:   "https://basescan.org",
	},
	{
		ID:            "arbitrum",
		Name:          "Arbitrum One",
		Ecosystem:     types.EcosystemEVM,
		NativeChainID: "42161",
		NativeToken:   types.TokenInfo{Symbol: "ETH", Name: "Ether", Decimals: 18, Address: NativeTokenEVM, ChainID: "arbitrum", PriceFeedID: "ethereum"},
		RPCEndpoint:   "https://arb1.arbitrum.io/rpc",
		ExplorerURL:   "https://arbiscan.io",
	},
	{
		ID:            "polygon",
		Name:          "Polygon PoS",
		Ecosystem:     types.EcosystemEVM,
		NativeChainID: "137",
		NativeToken:   types.TokenInfo{Symbol: "POL", Name: "Polygon", Decimals: 18, Address: NativeTokenEVM, ChainID: "polygon", PriceFeedID: "polygon-ecosystem-token"},
		RPCEndpoint:   "https://polygon-rpc.com",
		ExplorerURL:   "https://polygonscan.com",
	},
}

var solanaChains = []types.ChainInfo{
	{
		ID:            "solana",
		Name:          "Solana",
		Ecosystem:     types.EcosystemSolana,
		NativeChainID: "mainnet-beta",
		NativeToken:   types.TokenInfo{Symbol: "SOL", Name: "Solana", Decimals: 9, Address: NativeTokenSolana, ChainID: "solana", PriceFeedID: "solana"},
		RPCEndpoint:   "https://api.mainnet-beta.solana.com",
		ExplorerURL:   "https://solscan.io",
	},
}

// cosmosChains additionally need a bech32 prefix per chain, kept in
// cosmosPrefixes below.
var cosmosChains = []types.ChainInfo{
	{
		ID:            "cosmoshub",
		Name:          "Cosmos Hub",
		Ecosystem:     types.EcosystemCosmos,
		NativeChainID: "cosmoshub-4",
		NativeToken:   types.TokenInfo{Symbol: "ATOM", Name: "Cosmos Hub Atom", Decimals: 6, Address: "uatom", ChainID: "cosmoshub", PriceFeedID: "cosmos"},
		RPCEndpoint:   "https://cosmos-rest.publicnode.com",
		ExplorerURL:   "https://www.mintscan.io/cosmos",
	},
	{
		ID:            "osmosis",
		Name:          "Osmosis",
		Ecosystem:     types.EcosystemCosmos,
		NativeChainID: "osmosis-1",
		NativeToken:   types.TokenInfo{Symbol: "OSMO", Name: "Osmosis", Decimals: 6, Address: "uosmo", ChainID: "osmosis", PriceFeedID: "osmosis"},
		RPCEndpoint:   "https://osmosis-rest.publicnode.com",
		ExplorerURL:   "https://www.mintscan.io/osmosis",
	},
}

var cosmosPrefixes = map[string]string{
	"cosmoshub": "cosmos",
	"osmosis":   "osmo",
}

// knownTokens is the static symbol table used by ResolveToken before any
// on-chain metadata read. Keyed by chain id, then by upper-case symbol.
var knownTokens = map[string]map[string]types.TokenInfo{
	"ethereum": {
		"USDC": {Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", ChainID: "ethereum", PriceFeedID: "usd-coin"},
		"USDT": {Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", ChainID: "ethereum", PriceFeedID: "tether"},
		"DAI":  {Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18, Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", ChainID: "ethereum", PriceFeedID: "dai"},
		"WETH": {Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", ChainID: "ethereum", PriceFeedID: "weth"},
	},
	"base": {
		"USDC": {Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", ChainID: "base", PriceFeedID: "usd-coin"},
		"WETH": {Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, Address: "0x4200000000000000000000000000000000000006", ChainID: "base", PriceFeedID: "weth"},
	},
	"arbitrum": {
		"USDC": {Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", ChainID: "arbitrum", PriceFeedID: "usd-coin"},
		"USDT": {Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", ChainID: "arbitrum", PriceFeedID: "tether"},
		"WETH": {Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", ChainID: "arbitrum", PriceFeedID: "weth"},
	},
	"polygon": {
		"USDC": {Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", ChainID: "polygon", PriceFeedID: "usd-coin"},
	},
	"solana": {
		"USDC": {Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", ChainID: "solana", PriceFeedID: "usd-coin"},
		"WSOL": {Symbol: "WSOL", Name: "Wrapped SOL", Decimals: 9, Address: NativeTokenSolana, ChainID: "solana", PriceFeedID: "solana"},
	},
	"osmosis": {
		"ATOM": {Symbol: "ATOM", Name: "Cosmos Hub Atom", Decimals: 6, Address: "ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2", ChainID: "osmosis", PriceFeedID: "cosmos"},
	},
}

func lookupKnownToken(chainID, symbol string) (types.TokenInfo, bool) {
	table, ok := knownTokens[chainID]
	if !ok {
		return types.TokenInfo{}, false
	}
	info, ok := table[symbol]
	return info, ok
}
