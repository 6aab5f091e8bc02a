package types

// PositionKind classifies a wallet's exposure within a protocol.
type PositionKind string

const (
	PositionSupply     PositionKind = "supply"
	PositionBorrow     PositionKind = "borrow"
	PositionLiquidity  PositionKind = "liquidity"
	PositionStaking    PositionKind = "staking"
	PositionNative     PositionKind = "native"
	PositionPrediction PositionKind = "prediction"
	PositionToken      PositionKind = "token"
)

// PositionAsset is one constituent asset of a protocol position.
type PositionAsset struct {
	Symbol   string  `json:"symbol"`
	Address  string  `json:"address,omitempty"`
	Balance  string  `json:"balance"`
	ValueUSD float64 `json:"value_usd"`
	APY      float64 `json:"apy,omitempty"`
	IsDebt   bool    `json:"is_debt,omitempty"`
}

// ProtocolPosition is one logical exposure a wallet has in one protocol on
// one chain. Debt positions carry a negative TotalValueUSD so that
// summation across positions nets supply against borrow.
type ProtocolPosition struct {
	Protocol      string          `json:"protocol"`
	Kind          PositionKind    `json:"kind"`
	ChainID       string          `json:"chain_id"`
	Assets        []PositionAsset `json:"assets"`
	TotalValueUSD float64         `json:"total_value_usd"`
}

// WalletScanRequest asks the scan engine to inspect a wallet. Empty
// ChainIDs means "auto-detect by address format across all registered
// chains"; empty Protocols means "every registered scanner".
type WalletScanRequest struct {
	Address   string   `json:"address"`
	ChainIDs  []string `json:"chain_ids,omitempty"`
	Protocols []string `json:"protocols,omitempty"`
}

// GroupSummary aggregates positions grouped by protocol or by chain.
// TotalUSD is net exposure (debt negative); GrossUSD sums only the
// supply-side (positive) values so callers can distinguish a flat book
// from an empty one.
type GroupSummary struct {
	TotalUSD          float64 `json:"total_usd"`
	TotalUSDFormatted string  `json:"total_usd_formatted"`
	GrossUSD          float64 `json:"gross_usd"`
	Positions         int     `json:"positions"`
}

// WalletScanResult is the aggregated outcome of one scan invocation.
type WalletScanResult struct {
	WalletAddress     string                  `json:"wallet_address"`
	TotalValueUSD     float64                 `json:"total_value_usd"`
	TotalUSDFormatted string                  `json:"total_usd_formatted"`
	ChainsScanned     []string                `json:"chains_scanned"`
	ProtocolsScanned  []string                `json:"protocols_scanned"`
	ByProtocol        map[string]GroupSummary `json:"by_protocol"`
	ByChain           map[string]GroupSummary `json:"by_chain"`
	Positions         []ProtocolPosition      `json:"positions"`
}
