package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const thousandsSeparator = '\''

var (
	errEmptyAmount    = errors.New("invalid empty amount string")
	errConversion     = errors.New("error conversion to integer failed")
	errOutOfRange     = errors.New("value out of range")
	errTooManyCommas  = errors.New("more than one comma")
	errMissingInteger = errors.New("missing integer part")
	errMissingFrac    = errors.New("missing fraction part")
	errPrecision      = errors.New("invalid precision")
)

/*
StringToAmount converts decimal string "amount" with (at most) "decimals"
fractional digits into the integer amount of smallest units. Thousands
separators (') are ignored wherever they are.
*/
func StringToAmount(amount string, decimals uint32) (*uint256.Int, error) {
	if amount == "" {
		return nil, errEmptyAmount
	}
	amount = strings.ReplaceAll(amount, string(thousandsSeparator), "")
	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, errTooManyCommas
	}
	integerPart := parts[0]
	if integerPart == "" {
		return nil, errMissingInteger
	}
	fractionPart := ""
	if len(parts) == 2 {
		fractionPart = parts[1]
		if fractionPart == "" {
			return nil, errMissingFrac
		}
		if uint32(len(fractionPart)) > decimals {
			return nil, errPrecision
		}
	}
	digits := integerPart + fractionPart + strings.Repeat("0", int(decimals)-len(fractionPart))
	for _, c := range digits {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("invalid amount string %q: %w", amount, errConversion)
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid amount string %q: %w", amount, errOutOfRange)
	}
	return v, nil
}

/*
AmountToString formats amount of smallest units as decimal string with
"decPlaces" fractional digits, digit groups separated with apostrophe.
*/
func AmountToString(amount *uint256.Int, decPlaces uint32) string {
	return FormatDecimalString(amount.Dec(), decPlaces, true)
}

/*
FormatDecimalString inserts decimal point into string of decimal digits so
that "decPlaces" digits remain in the fraction part. When "group" is set the
digits are grouped by three with the thousands separator.
*/
func FormatDecimalString(digits string, decPlaces uint32, group bool) string {
	if n := int(decPlaces) + 1 - len(digits); n > 0 {
		digits = strings.Repeat("0", n) + digits
	}
	split := len(digits) - int(decPlaces)
	integerPart, fractionPart := digits[:split], digits[split:]
	if !group {
		if fractionPart == "" {
			return integerPart
		}
		return integerPart + "." + fractionPart
	}

	var sb strings.Builder
	for i, c := range integerPart {
		if i > 0 && (len(integerPart)-i)%3 == 0 {
			sb.WriteRune(thousandsSeparator)
		}
		sb.WriteRune(c)
	}
	if fractionPart != "" {
		sb.WriteRune('.')
		for i, c := range fractionPart {
			if i > 0 && i%3 == 0 {
				sb.WriteRune(thousandsSeparator)
			}
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
