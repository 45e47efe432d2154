package audit

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/namada-utils/stakeaudit/stake"
	"github.com/namada-utils/stakeaudit/types"
)

/*
WriteRosterCSV writes one row per address: the active stake in native tokens
followed by the fraction of that stake bonded to each roster validator.
*/
func WriteRosterCSV(w io.Writer, roster *stake.Roster, stakes []*stake.AddressStake) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Address", "Total Stake"}, roster.Names()...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range stakes {
		fractions, err := s.RosterFractions(roster)
		if err != nil {
			return err
		}
		row := make([]string, 0, len(header))
		row = append(row, s.Address.String(), s.Active.Format(types.NativeDecimals))
		for _, f := range fractions {
			row = append(row, f.String())
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row of %s: %w", s.Address, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
