package types

// Ecosystem identifies a family of chains sharing an address format and
// execution model.
type Ecosystem string

const (
	EcosystemEVM    Ecosystem = "evm"
	EcosystemSolana Ecosystem = "solana"
	EcosystemCosmos Ecosystem = "cosmos"
)

// Valid reports whether the ecosystem tag is one of the known families.
func (e Ecosystem) Valid() bool {
	switch e {
	case EcosystemEVM, EcosystemSolana, EcosystemCosmos:
		return true
	}
	return false
}

// ChainInfo is an immutable descriptor for a single chain. Instances are
// created once from static tables at process start and never mutated.
type ChainInfo struct {
	ID            string    `json:"id"`             // canonical id, e.g. "ethereum", "solana", "osmosis"
	Name          string    `json:"name"`           // display name
	Ecosystem     Ecosystem `json:"ecosystem"`      // evm | solana | cosmos
	NativeChainID string    `json:"native_chain_id"`// ecosystem-native identifier: EVM chain id, Solana cluster, Cosmos chain-id
	NativeToken   TokenInfo `json:"native_token"`
	RPCEndpoint   string    `json:"rpc_endpoint"`
	ExplorerURL   string    `json:"explorer_url,omitempty"`
}

// TokenInfo holds immutable token metadata. The Address field carries the
// ecosystem-specific representation: a contract address on EVM chains, a
// mint address on Solana, a denom string on Cosmos chains.
type TokenInfo struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name,omitempty"`
	Decimals    int    `json:"decimals"`
	Address     string `json:"address"`
	ChainID     string `json:"chain_id"`
	PriceFeedID string `json:"price_feed_id,omitempty"` // e.g. a coingecko id
}

// TokenBalance couples token metadata with a balance. BalanceRaw is the
// integer amount in the token's smallest unit, as a decimal string so that
// values beyond 64 bits survive JSON round trips. BalanceFormatted is the
// exact decimal expansion of BalanceRaw scaled by 10^-Decimals with
// trailing zeros stripped.
type TokenBalance struct {
	Token            TokenInfo `json:"token"`
	BalanceRaw       string    `json:"balance_raw"`
	BalanceFormatted string    `json:"balance_formatted"`
}
