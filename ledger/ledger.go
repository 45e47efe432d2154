/*
Package ledger implements the exact fractional arithmetic of the genesis
audit: ratios of token amounts and the reconciliation of the declared
allocation categories against the total supply.
*/
package ledger

import (
	"fmt"

	"github.com/namada-utils/stakeaudit/types"
)

// Ratio returns num/den with types.DecPrecision fractional digits.
func Ratio(num, den types.Amount) (types.Dec, error) {
	return types.QuoAmounts(num, den)
}

// Percentage returns the ratio multiplied by 100.
func Percentage(ratio types.Dec) (types.Dec, error) {
	return ratio.MulUint64(100)
}

/*
Reconcile returns the part of the total supply not covered by the five
allocated categories. The categories summing to more than the supply is a
reconciliation error.
*/
func Reconcile(categories [5]types.Amount, totalSupply types.Amount) (types.Amount, error) {
	sum, err := types.SumAmounts(categories[:]...)
	if err != nil {
		return types.Amount{}, fmt.Errorf("%w: summing categories: %w", types.ErrReconciliation, err)
	}
	remainder, err := totalSupply.Sub(sum)
	if err != nil {
		return types.Amount{}, fmt.Errorf("%w: categories sum %s exceeds total supply %s: %w", types.ErrReconciliation, sum, totalSupply, types.ErrUnderflow)
	}
	return remainder, nil
}

// RemainderShare returns whole - sum(parts), used to derive the share of a
// category from the shares of all the others.
func RemainderShare(whole types.Dec, parts ...types.Dec) (types.Dec, error) {
	var sum types.Dec
	for _, p := range parts {
		var err error
		if sum, err = sum.Add(p); err != nil {
			return types.Dec{}, fmt.Errorf("%w: summing shares: %w", types.ErrReconciliation, err)
		}
	}
	rem, err := whole.Sub(sum)
	if err != nil {
		return types.Dec{}, fmt.Errorf("%w: shares sum %s exceeds %s: %w", types.ErrReconciliation, sum, whole, types.ErrUnderflow)
	}
	return rem, nil
}
