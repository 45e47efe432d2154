package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuoAmounts(t *testing.T) {
	r, err := QuoAmounts(NewAmount(1), NewAmount(4))
	require.NoError(t, err)
	require.Equal(t, "0.25", r.String())

	r, err = QuoAmounts(NewAmount(1), NewAmount(3))
	require.NoError(t, err)
	require.Equal(t, "0.333333333333", r.String())

	r, err = QuoAmounts(NewAmount(0), NewAmount(3))
	require.NoError(t, err)
	require.True(t, r.IsZero())
	require.Equal(t, "0", r.String())

	_, err = QuoAmounts(NewAmount(5), NewAmount(0))
	require.ErrorIs(t, err, ErrDivisionByZero)
	require.ErrorIs(t, err, ErrArithmetic)
}

func TestDec_arithmetic(t *testing.T) {
	half := MustParseDec("0.5")
	quarter := MustParseDec("0.25")

	d, err := half.Add(quarter)
	require.NoError(t, err)
	require.Equal(t, MustParseDec("0.75"), d)

	d, err = half.Sub(quarter)
	require.NoError(t, err)
	require.Equal(t, quarter, d)

	_, err = quarter.Sub(half)
	require.ErrorIs(t, err, ErrUnderflow)

	d, err = half.Mul(quarter)
	require.NoError(t, err)
	require.Equal(t, "0.125", d.String())

	d, err = quarter.Quo(half)
	require.NoError(t, err)
	require.Equal(t, half, d)

	_, err = quarter.Quo(Dec{})
	require.ErrorIs(t, err, ErrDivisionByZero)

	d, err = MustParseDec("0.123456789012").MulUint64(100)
	require.NoError(t, err)
	require.Equal(t, "12.3456789012", d.String())
}

func TestDec_String(t *testing.T) {
	require.Equal(t, "1", DecOne().String())
	require.Equal(t, "100", NewDec(100).String())
	require.Equal(t, "0", Dec{}.String())
	require.Equal(t, "0.000000000001", MustParseDec("0.000000000001").String())

	d := MustParseDec("12.345678")
	require.Equal(t, "12.34", d.StringFixed(2))
	require.Equal(t, "12", d.StringFixed(0))
	require.Equal(t, "12.345678000000", d.StringFixed(12))
	require.Equal(t, "12.345678000000", d.StringFixed(20))
}

func TestDecFromAmount(t *testing.T) {
	d, err := DecFromAmount(NewAmount(42))
	require.NoError(t, err)
	require.Equal(t, NewDec(42), d)

	_, err = DecFromAmount(maxAmount(t))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestParseDec(t *testing.T) {
	_, err := ParseDec("0.0000000000001")
	require.ErrorIs(t, err, ErrParse)

	var d Dec
	require.NoError(t, d.UnmarshalText([]byte("3.14")))
	b, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "3.14", string(b))
}
