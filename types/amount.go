package types

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/namada-utils/stakeaudit/util"
)

// NativeDecimals is the number of fractional digits of the native token.
const NativeDecimals = 6

var nativeScale = uint256.NewInt(1_000_000)

/*
Amount is a non-negative token amount in the smallest indivisible unit.

All arithmetic is checked, operations which would overflow or go below zero
return error (ErrOverflow, ErrUnderflow) and never wrap around.
*/
type Amount struct {
	v uint256.Int
}

func NewAmount(v uint64) Amount {
	a := Amount{}
	a.v.SetUint64(v)
	return a
}

// NativeWhole returns amount of "whole" whole native tokens.
func NativeWhole(whole uint64) Amount {
	a := NewAmount(whole)
	a.v.Mul(&a.v, nativeScale)
	return a
}

func amountFromInt(v *uint256.Int) Amount {
	a := Amount{}
	a.v.Set(v)
	return a
}

// ParseAmount parses integer amount of smallest units.
func ParseAmount(s string) (Amount, error) {
	return ParseDenominated(s, 0)
}

// ParseDenominated parses decimal string with at most "decimals" fraction
// digits into amount of smallest units, ie "1.5" with decimals 6 is 1500000.
func ParseDenominated(s string, decimals uint32) (Amount, error) {
	v, err := util.StringToAmount(s, decimals)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: invalid amount %q: %w", ErrParse, s, err)
	}
	return amountFromInt(v), nil
}

func (a Amount) Add(b Amount) (Amount, error) {
	r := Amount{}
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return r, nil
}

func (a Amount) Sub(b Amount) (Amount, error) {
	r := Amount{}
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	return r, nil
}

func (a Amount) MulUint64(k uint64) (Amount, error) {
	r := Amount{}
	if _, overflow := r.v.MulOverflow(&a.v, uint256.NewInt(k)); overflow {
		return Amount{}, fmt.Errorf("%w: %s * %d", ErrOverflow, a, k)
	}
	return r, nil
}

// SumAmounts returns checked sum of the amounts, zero for empty input.
func SumAmounts(amounts ...Amount) (Amount, error) {
	var sum Amount
	for _, a := range amounts {
		var err error
		if sum, err = sum.Add(a); err != nil {
			return Amount{}, err
		}
	}
	return sum, nil
}

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) Equal(b Amount) bool {
	return a.v.Eq(&b.v)
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Uint64 returns the amount as uint64, second return value is false when
// the amount doesn't fit.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// Int returns copy of the underlying integer.
func (a Amount) Int() *uint256.Int {
	return new(uint256.Int).Set(&a.v)
}

// String returns amount of smallest units as decimal integer.
func (a Amount) String() string {
	return a.v.Dec()
}

// Format returns the amount in token denomination, ie with "decimals"
// fractional digits.
func (a Amount) Format(decimals uint32) string {
	return util.FormatDecimalString(a.v.Dec(), decimals, false)
}

// StringNative returns the amount as native tokens.
func (a Amount) StringNative() string {
	return a.Format(NativeDecimals)
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	v, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalBinary returns minimal big-endian encoding of the amount.
func (a Amount) MarshalBinary() ([]byte, error) {
	return a.v.Bytes(), nil
}

func (a *Amount) UnmarshalBinary(data []byte) error {
	if len(data) > 32 {
		return fmt.Errorf("%w: amount encoding is %d bytes, max 32", ErrParse, len(data))
	}
	a.v.SetBytes(data)
	return nil
}
