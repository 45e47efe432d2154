package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/namada-utils/stakeaudit/util"
)

// DecPrecision is the number of fractional digits carried by Dec.
const DecPrecision = 12

var decScale = uint256.NewInt(1_000_000_000_000)

/*
Dec is an exact unsigned fixed point number with DecPrecision fractional
digits. Results of division are truncated towards zero, there are no
special values (NaN, Inf), invalid operations return error.
*/
type Dec struct {
	v uint256.Int
}

func DecOne() Dec {
	return decFromInt(decScale)
}

func NewDec(whole uint64) Dec {
	d := Dec{}
	d.v.Mul(uint256.NewInt(whole), decScale)
	return d
}

func decFromInt(v *uint256.Int) Dec {
	d := Dec{}
	d.v.Set(v)
	return d
}

// ParseDec parses decimal string with at most DecPrecision fraction digits.
func ParseDec(s string) (Dec, error) {
	v, err := util.StringToAmount(s, DecPrecision)
	if err != nil {
		return Dec{}, fmt.Errorf("%w: invalid decimal %q: %w", ErrParse, s, err)
	}
	return decFromInt(v), nil
}

func MustParseDec(s string) Dec {
	d, err := ParseDec(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecFromAmount converts amount of smallest units into Dec of the same value.
func DecFromAmount(a Amount) (Dec, error) {
	d := Dec{}
	if _, overflow := d.v.MulOverflow(&a.v, decScale); overflow {
		return Dec{}, fmt.Errorf("%w: amount %s doesn't fit into decimal", ErrOverflow, a)
	}
	return d, nil
}

// QuoAmounts returns num/den as Dec.
func QuoAmounts(num, den Amount) (Dec, error) {
	if den.IsZero() {
		return Dec{}, fmt.Errorf("%w: %s / 0", ErrDivisionByZero, num)
	}
	d := Dec{}
	if _, overflow := d.v.MulDivOverflow(&num.v, decScale, &den.v); overflow {
		return Dec{}, fmt.Errorf("%w: %s / %s", ErrOverflow, num, den)
	}
	return d, nil
}

func (d Dec) Add(o Dec) (Dec, error) {
	r := Dec{}
	if _, overflow := r.v.AddOverflow(&d.v, &o.v); overflow {
		return Dec{}, fmt.Errorf("%w: %s + %s", ErrOverflow, d, o)
	}
	return r, nil
}

func (d Dec) Sub(o Dec) (Dec, error) {
	r := Dec{}
	if _, underflow := r.v.SubOverflow(&d.v, &o.v); underflow {
		return Dec{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, d, o)
	}
	return r, nil
}

func (d Dec) Mul(o Dec) (Dec, error) {
	r := Dec{}
	if _, overflow := r.v.MulDivOverflow(&d.v, &o.v, decScale); overflow {
		return Dec{}, fmt.Errorf("%w: %s * %s", ErrOverflow, d, o)
	}
	return r, nil
}

func (d Dec) MulUint64(k uint64) (Dec, error) {
	r := Dec{}
	if _, overflow := r.v.MulOverflow(&d.v, uint256.NewInt(k)); overflow {
		return Dec{}, fmt.Errorf("%w: %s * %d", ErrOverflow, d, k)
	}
	return r, nil
}

func (d Dec) Quo(o Dec) (Dec, error) {
	if o.v.IsZero() {
		return Dec{}, fmt.Errorf("%w: %s / 0", ErrDivisionByZero, d)
	}
	r := Dec{}
	if _, overflow := r.v.MulDivOverflow(&d.v, decScale, &o.v); overflow {
		return Dec{}, fmt.Errorf("%w: %s / %s", ErrOverflow, d, o)
	}
	return r, nil
}

func (d Dec) Cmp(o Dec) int {
	return d.v.Cmp(&o.v)
}

func (d Dec) Equal(o Dec) bool {
	return d.v.Eq(&o.v)
}

func (d Dec) IsZero() bool {
	return d.v.IsZero()
}

// String returns the value with trailing zeros of the fraction part removed.
func (d Dec) String() string {
	s := util.FormatDecimalString(d.v.Dec(), DecPrecision, false)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// StringFixed returns the value truncated to "places" fractional digits.
func (d Dec) StringFixed(places uint32) string {
	if places >= DecPrecision {
		return util.FormatDecimalString(d.v.Dec(), DecPrecision, false)
	}
	s := util.FormatDecimalString(d.v.Dec(), DecPrecision, false)
	return s[:len(s)-int(DecPrecision-places)-btoi(places == 0)]
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (d Dec) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dec) UnmarshalText(text []byte) error {
	v, err := ParseDec(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
