package market

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human-decimal price string into an integer amount of
// base token units (price × 10^decimals). The price must not carry more
// fractional digits than the token supports and must not be negative.
func ToBaseUnits(price string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", price, err)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("price %q: negative", price)
	}
	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("price %q: more than %d decimal places", price, decimals)
	}
	return shifted.BigInt(), nil
}

// FromBaseUnits renders a base-unit amount as a human-decimal string. Display
// only: the result is never written back into a model field.
func FromBaseUnits(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}
