package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var cent = decimal.New(1, -2)

// SplitProRata divides total across holders in proportion to their share
// counts, rounding to cents with the largest-remainder method so the pieces
// always sum to total exactly. Leftover cents go to the largest fractional
// remainders first, ties broken by position for determinism.
func SplitProRata(total decimal.Decimal, shares []int64) ([]decimal.Decimal, error) {
	if len(shares) == 0 {
		return nil, ErrNoActiveHoldings
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("cannot split negative total %s", total)
	}
	var totalShares int64
	for i, s := range shares {
		if s <= 0 {
			return nil, fmt.Errorf("holder %d has non-positive share count %d", i, s)
		}
		totalShares += s
	}

	type slice struct {
		index     int
		remainder decimal.Decimal
	}

	amounts := make([]decimal.Decimal, len(shares))
	remainders := make([]slice, len(shares))
	allocated := decimal.Zero

	divisor := decimal.NewFromInt(totalShares)
	for i, s := range shares {
		exact := total.Mul(decimal.NewFromInt(s)).Div(divisor)
		floored := exact.Div(cent).Floor().Mul(cent)
		amounts[i] = floored
		remainders[i] = slice{index: i, remainder: exact.Sub(floored)}
		allocated = allocated.Add(floored)
	}

	leftoverCents := total.Sub(allocated).Div(cent).Round(0).IntPart()

	sort.SliceStable(remainders, func(a, b int) bool {
		return remainders[a].remainder.GreaterThan(remainders[b].remainder)
	})
	for i := int64(0); i < leftoverCents; i++ {
		idx := remainders[i%int64(len(remainders))].index
		amounts[idx] = amounts[idx].Add(cent)
	}
	return amounts, nil
}
