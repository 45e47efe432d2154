package types

import (
	"fmt"
	"strconv"
)

type Epoch uint64

func (e Epoch) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// BondID identifies delegation of the Source to the Validator.
type BondID struct {
	Source    Address
	Validator Address
}

type BondSlice struct {
	Amount  Amount `json:"amount"`
	Slashed Amount `json:"slashed"`
	Start   Epoch  `json:"start"`
}

type UnbondSlice struct {
	Amount   Amount `json:"amount"`
	Slashed  Amount `json:"slashed"`
	Start    Epoch  `json:"start"`
	Withdraw Epoch  `json:"withdraw"`
}

type BondEntry struct {
	Bonds   []BondSlice   `json:"bonds"`
	Unbonds []UnbondSlice `json:"unbonds,omitempty"`
}

// Active returns the bonded amount of the entry less slashes at "epoch".
// Bond slices starting after the epoch are still pending and unbonds are
// not counted.
func (e BondEntry) Active(epoch Epoch) (Amount, error) {
	var total Amount
	for i, b := range e.Bonds {
		if b.Start > epoch {
			continue
		}
		active, err := b.Amount.Sub(b.Slashed)
		if err != nil {
			return Amount{}, fmt.Errorf("bond slice %d: slashed more than bonded: %w", i, err)
		}
		if total, err = total.Add(active); err != nil {
			return Amount{}, fmt.Errorf("bond slice %d: %w", i, err)
		}
	}
	return total, nil
}

// BondDetail is bond and unbond information of a delegator at some epoch.
type BondDetail map[BondID]BondEntry

// TotalActive sums the bonds of all entries active at "epoch".
func (bd BondDetail) TotalActive(epoch Epoch) (Amount, error) {
	var total Amount
	for id, entry := range bd {
		active, err := entry.Active(epoch)
		if err != nil {
			return Amount{}, fmt.Errorf("bond %s -> %s: %w", id.Source, id.Validator, err)
		}
		if total, err = total.Add(active); err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}
