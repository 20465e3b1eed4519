// internal/models/amount.go
package models

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the number of base units per whole coin, as lamports are to SOL.
const DefaultDecimals = 9

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ParseAmount converts a human decimal string ("1.25") into base units.
// Fractions finer than the given scale are rejected rather than rounded.
func ParseAmount(s string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid amount %q: negative", s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than %d decimal places", s, decimals)
	}
	if scaled.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}
	return scaled.BigInt().Uint64(), nil
}

// FormatAmount renders base units as a decimal string with the given scale.
func FormatAmount(v uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -decimals).StringFixed(decimals)
}
