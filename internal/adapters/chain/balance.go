package chain

import (
	"fmt"
	"math/big"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/format"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// newBalance builds a TokenBalance from a raw integer amount. The raw
// string is the exact integer; the formatted string is its base-10
// expansion at the token's decimals.
func newBalance(token types.TokenInfo, raw *big.Int) (*types.TokenBalance, error) {
	rawStr := raw.String()
	formatted, err := format.TokenAmount(rawStr, token.Decimals)
	if err != nil {
		return nil, fmt.Errorf("formatting %s balance: %w", token.Symbol, err)
	}
	return &types.TokenBalance{
		Token:            token,
		BalanceRaw:       rawStr,
		BalanceFormatted: formatted,
	}, nil
}
