package stake

import (
	"fmt"

	"github.com/namada-utils/stakeaudit/types"
)

// CategoryTotals sums the active stake of the results. The sum doesn't
// depend on the order of the results.
func CategoryTotals(results []*AddressStake) (types.Amount, error) {
	var total types.Amount
	for _, r := range results {
		var err error
		if total, err = total.Add(r.Active); err != nil {
			return types.Amount{}, fmt.Errorf("summing stake of %s: %w", r.Address, err)
		}
	}
	return total, nil
}

// RosterTotals sums the results per roster validator, every roster name
// is present in the returned map.
func RosterTotals(roster *Roster, results []*AddressStake) (map[string]types.Amount, error) {
	totals := make(map[string]types.Amount, roster.Len())
	for _, name := range roster.Names() {
		var total types.Amount
		for _, r := range results {
			var err error
			if total, err = total.Add(r.ByValidator[name]); err != nil {
				return nil, fmt.Errorf("summing stake to %s: %w", name, err)
			}
		}
		totals[name] = total
	}
	return totals, nil
}

// RosterSum is the stake delegated to the roster as a whole.
func RosterSum(totals map[string]types.Amount) (types.Amount, error) {
	var sum types.Amount
	for _, v := range totals {
		var err error
		if sum, err = sum.Add(v); err != nil {
			return types.Amount{}, err
		}
	}
	return sum, nil
}

// RosterFractions returns, in roster order, the fraction of the address's
// own active stake bonded to each roster validator. All zero when the
// address has no active stake.
func (s *AddressStake) RosterFractions(roster *Roster) ([]types.Dec, error) {
	fractions := make([]types.Dec, roster.Len())
	if s.Active.IsZero() {
		return fractions, nil
	}
	for i, name := range roster.Names() {
		f, err := types.QuoAmounts(s.ByValidator[name], s.Active)
		if err != nil {
			return nil, fmt.Errorf("fraction of %s bonded to %s: %w", s.Address, name, err)
		}
		fractions[i] = f
	}
	return fractions, nil
}

// ByAddress indexes the category results by address.
func (cs *CategoryStake) ByAddress() map[types.Address]*AddressStake {
	m := make(map[types.Address]*AddressStake, len(cs.Addresses))
	for _, a := range cs.Addresses {
		m[a.Address] = a
	}
	return m
}

// SkippedAddresses lists the addresses left out of a partial result.
func (cs *CategoryStake) SkippedAddresses() []types.Address {
	addrs := make([]types.Address, len(cs.Skipped))
	for i, s := range cs.Skipped {
		addrs[i] = s.Address
	}
	return addrs
}
