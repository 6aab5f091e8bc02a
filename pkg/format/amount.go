// Package format converts between raw smallest-unit token amounts and
// human-readable decimal strings without precision loss.
package format

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenAmount converts a raw integer-string balance (smallest unit) to its
// decimal expansion scaled by 10^-decimals, trailing zeros stripped.
// The conversion is exact for values of any magnitude.
func TokenAmount(raw string, decimals int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty raw amount")
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", fmt.Errorf("invalid raw amount %q", raw)
	}
	if decimals < 0 {
		return "", fmt.Errorf("negative decimals %d", decimals)
	}
	d := decimal.NewFromBigInt(n, -int32(decimals))
	return d.String(), nil
}

// ParseTokenAmount is the inverse of TokenAmount: it scales a formatted
// decimal string back to the raw smallest-unit integer string. Amounts
// with more fractional digits than the token carries are rejected rather
// than truncated.
func ParseTokenAmount(formatted string, decimals int) (string, error) {
	formatted = strings.TrimSpace(formatted)
	d, err := decimal.NewFromString(formatted)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", formatted, err)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return "", fmt.Errorf("amount %q has more than %d decimal places", formatted, decimals)
	}
	return scaled.BigInt().String(), nil
}

// USD renders a float dollar value as "$X.XX". Negative values keep the
// sign ahead of the dollar sign so summaries read naturally.
func USD(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}
