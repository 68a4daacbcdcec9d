package payline

import (
	"fmt"
	"math/big"
)

// FormatAmount renders an amount the way the gateway expects: two decimals.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// ParseAmount parses a gateway amount string exactly.
func ParseAmount(raw string) (*big.Rat, error) {
	amount, ok := new(big.Rat).SetString(raw)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

// AmountsEqual compares two parsed amounts.
func AmountsEqual(expected, actual *big.Rat) bool {
	return expected.Cmp(actual) == 0
}
