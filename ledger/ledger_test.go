package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namada-utils/stakeaudit/types"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		num, den uint64
		want     string
	}{
		{num: 1, den: 2, want: "0.5"},
		{num: 0, den: 7, want: "0"},
		{num: 7, den: 7, want: "1"},
		{num: 1, den: 3, want: "0.333333333333"},
		{num: 3, den: 2, want: "1.5"},
	}
	for _, tt := range tests {
		r, err := Ratio(types.NewAmount(tt.num), types.NewAmount(tt.den))
		require.NoError(t, err)
		require.Equal(t, tt.want, r.String(), "%d/%d", tt.num, tt.den)
	}
}

func TestRatio_DivisionByZero(t *testing.T) {
	_, err := Ratio(types.NewAmount(5), types.Amount{})
	require.ErrorIs(t, err, types.ErrDivisionByZero)
	require.ErrorIs(t, err, types.ErrArithmetic)
}

func TestRatio_ScaleInvariant(t *testing.T) {
	pairs := [][2]uint64{{1, 3}, {2, 7}, {320_364_605, 1_000_000_000}, {999, 1000}}
	for _, p := range pairs {
		want, err := Ratio(types.NewAmount(p[0]), types.NewAmount(p[1]))
		require.NoError(t, err)
		for _, k := range []uint64{2, 10, 1_000_000, 1_000_000_000_000} {
			num, err := types.NewAmount(p[0]).MulUint64(k)
			require.NoError(t, err)
			den, err := types.NewAmount(p[1]).MulUint64(k)
			require.NoError(t, err)
			got, err := Ratio(num, den)
			require.NoError(t, err)
			require.Equal(t, want, got, "%d/%d scaled by %d", p[0], p[1], k)
		}
	}
}

func TestPercentage(t *testing.T) {
	p, err := Percentage(types.MustParseDec("0.320364605"))
	require.NoError(t, err)
	require.Equal(t, "32.0364605", p.String())
}

func TestReconcile_Genesis(t *testing.T) {
	c := DefaultGenesisConstants()
	remainder, err := Reconcile([5]types.Amount{c.Backer, c.CoreTeam, c.RnD, c.FutureAlloc, c.PublicAlloc}, c.TotalSupply)
	require.NoError(t, err)
	require.Equal(t, types.NativeWhole(205), remainder)
	require.Equal(t, "205000000", remainder.String())
}

func TestReconcile_Underflow(t *testing.T) {
	c := DefaultGenesisConstants()
	backer, err := c.Backer.Add(types.NativeWhole(206))
	require.NoError(t, err)
	_, err = Reconcile([5]types.Amount{backer, c.CoreTeam, c.RnD, c.FutureAlloc, c.PublicAlloc}, c.TotalSupply)
	require.ErrorIs(t, err, types.ErrReconciliation)
	require.ErrorIs(t, err, types.ErrUnderflow)
}

func TestRemainderShare(t *testing.T) {
	rem, err := RemainderShare(types.DecOne(), types.MustParseDec("0.25"), types.MustParseDec("0.5"))
	require.NoError(t, err)
	require.Equal(t, "0.25", rem.String())

	_, err = RemainderShare(types.DecOne(), types.MustParseDec("0.75"), types.MustParseDec("0.5"))
	require.ErrorIs(t, err, types.ErrReconciliation)
	require.ErrorIs(t, err, types.ErrUnderflow)
}
