// Package money converts between user-facing decimal amount strings and
// the int64 minor units (cents) used everywhere inside the ledger.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrPrecision = errors.New("amounts may have at most two decimal places")
	ErrRange     = errors.New("amount out of range")
)

// Parse converts a decimal string such as "125.50" into cents. It rejects
// more than two fractional digits rather than rounding silently.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("money.Parse: %w", err)
	}

	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("money.Parse: %q: %w", s, ErrPrecision)
	}

	bi := cents.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("money.Parse: %q: %w", s, ErrRange)
	}
	return bi.Int64(), nil
}

// Format renders cents as a fixed two-decimal string, e.g. 12550 -> "125.50".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
