package types

// APYKind describes how an opportunity's rate behaves over time.
type APYKind string

const (
	APYVariable APYKind = "variable"
	APYStable   APYKind = "stable"
	APYFixed    APYKind = "fixed"
)

// RiskTier is the coarse risk classification of a yield opportunity.
// Ordering is fixed: low < medium < high.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

var riskRank = map[RiskTier]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// Rank returns the tier's position in the low < medium < high ordering.
// Unknown tiers rank above high so they never pass a tolerance filter.
func (r RiskTier) Rank() int {
	if rank, ok := riskRank[r]; ok {
		return rank
	}
	return len(riskRank)
}

// Within reports whether r is at or below the given tolerance.
func (r RiskTier) Within(tolerance RiskTier) bool {
	return r.Rank() <= tolerance.Rank()
}

// YieldOpportunity is one place a token can be put to work. Produced per
// yield-finder invocation; never persisted.
type YieldOpportunity struct {
	Protocol    string   `json:"protocol"`
	ChainID     string   `json:"chain_id"`
	AssetSymbol string   `json:"asset_symbol"`
	APY         float64  `json:"apy"` // percent, e.g. 4.25
	APYKind     APYKind  `json:"apy_kind"`
	TVLUSD      float64  `json:"tvl_usd,omitempty"`
	Risk        RiskTier `json:"risk"`
	Category    string   `json:"category,omitempty"` // e.g. "lending", "lp", "staking"
}

// YieldRequest asks the ranking engine for cost-adjusted opportunities.
// CurrentChainID, when set, enables bridge-cost estimation for
// opportunities on other chains.
type YieldRequest struct {
	TokenSymbol    string   `json:"token_symbol"`
	Amount         float64  `json:"amount"`
	CurrentChainID string   `json:"current_chain_id,omitempty"`
	RiskTolerance  RiskTier `json:"risk_tolerance,omitempty"`
	HorizonDays    int      `json:"horizon_days,omitempty"`
}

// RankedOpportunity is a yield opportunity with its entry costs and the
// derived net figures that make opportunities comparable on one axis.
type RankedOpportunity struct {
	YieldOpportunity

	GasCostUSD    float64  `json:"gas_cost_usd"`
	BridgeCostUSD float64  `json:"bridge_cost_usd"`
	GrossYieldUSD float64  `json:"gross_yield_usd"`
	NetYieldUSD   float64  `json:"net_yield_usd"`
	NetAPY        float64  `json:"net_apy"`
	Steps         []string `json:"steps"`
}

// YieldRankingResult is the full ranked list plus the top entry.
type YieldRankingResult struct {
	TokenSymbol   string              `json:"token_symbol"`
	Amount        float64             `json:"amount"`
	HorizonDays   int                 `json:"horizon_days"`
	Opportunities []RankedOpportunity `json:"opportunities"`
	Best          *RankedOpportunity  `json:"best,omitempty"`
}
