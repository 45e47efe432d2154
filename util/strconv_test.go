package util

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const maxUint256 = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

func Test_stringToAmount(t *testing.T) {
	type args struct {
		amount   string
		decimals uint32
	}
	tests := []struct {
		name       string
		args       args
		want       string
		wantErrStr string
	}{
		{
			name:       "empty",
			args:       args{amount: "", decimals: 2},
			wantErrStr: "invalid empty amount string",
		},
		{
			name: "100.23, decimals 2 - ok",
			args: args{amount: "100.23", decimals: 2},
			want: "10023",
		},
		{
			name:       "100.2.3 error - too many commas",
			args:       args{amount: "100.2.3", decimals: 2},
			wantErrStr: "more than one comma",
		},
		{
			name:       ".30 error - no whole number",
			args:       args{amount: ".3", decimals: 2},
			wantErrStr: "missing integer part",
		},
		{
			name:       "30. error - no fraction",
			args:       args{amount: "30.", decimals: 2},
			wantErrStr: "missing fraction part",
		},
		{
			name:       "1.000, decimals 2 - error invalid precision",
			args:       args{amount: "1.000", decimals: 2},
			wantErrStr: "invalid precision",
		},
		{
			name:       "in.300, decimals 3 - error not number",
			args:       args{amount: "in.300", decimals: 3},
			wantErrStr: "invalid amount string \"in.300\": error conversion to integer failed",
		},
		{
			name:       "12.3c0, decimals 3 - error not number",
			args:       args{amount: "12.3c0", decimals: 3},
			wantErrStr: "invalid amount string \"12.3c0\": error conversion to integer failed",
		},
		{
			name:       "-5, decimals 0 - error negative",
			args:       args{amount: "-5", decimals: 0},
			wantErrStr: "error conversion to integer failed",
		},
		{
			name: "2.30, decimals 2 - ok",
			args: args{amount: "2.30", decimals: 2},
			want: "230",
		},
		{
			name: "0000000.3, decimals 2 - ok",
			args: args{amount: "0000000.3", decimals: 2},
			want: "30",
		},
		{
			name: "0.000, decimals 3 - zero",
			args: args{amount: "0.000", decimals: 3},
			want: "0",
		},
		{
			name: "100.23, decimals 6 - ok",
			args: args{amount: "100.23", decimals: 6},
			want: "100230000",
		},
		{
			name:       "max uint256 with extra decimal out of range - error",
			args:       args{amount: maxUint256, decimals: 1},
			wantErrStr: "value out of range",
		},
		{
			name: "max uint256 - ok",
			args: args{amount: maxUint256, decimals: 0},
			want: maxUint256,
		},
		{
			name: "18446744073709551616 beyond uint64 - ok",
			args: args{amount: "18446744073709551616", decimals: 0},
			want: "18446744073709551616",
		},
		{
			name: "10'000.234'5, decimals 4 - ok",
			args: args{amount: "10'000.234'5", decimals: 4},
			want: "100002345",
		},
		{
			name: "1'00'00.2'34'5, misplaced separators ignored - ok",
			args: args{amount: "1'00'00.2'34'5", decimals: 4},
			want: "100002345",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StringToAmount(tt.args.amount, tt.args.decimals)
			if len(tt.wantErrStr) > 0 {
				require.ErrorContains(t, err, tt.wantErrStr)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Dec())
		})
	}
}

func Test_amountToString(t *testing.T) {
	type args struct {
		amount    uint64
		decPlaces uint32
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "Conversion ok - decimals 2",
			args: args{amount: 12345, decPlaces: 2},
			want: "123.45",
		},
		{
			name: "Conversion ok - decimals 1",
			args: args{amount: 12345, decPlaces: 1},
			want: "1'234.5",
		},
		{
			name: "Conversion ok - decimals 0",
			args: args{amount: 12345, decPlaces: 0},
			want: "12'345",
		},
		{
			name: "Conversion ok - decimals 5",
			args: args{amount: 12345, decPlaces: 5},
			want: "0.123'45",
		},
		{
			name: "Conversion ok - decimals 9",
			args: args{amount: 12345, decPlaces: 9},
			want: "0.000'012'345",
		},
		{
			name: "Conversion ok - 9000 ",
			args: args{amount: 9000, decPlaces: 5},
			want: "0.090'00",
		},
		{
			name: "Conversion ok - 3 ",
			args: args{amount: 3, decPlaces: 2},
			want: "0.03",
		},
		{
			name: "Conversion ok - zero",
			args: args{amount: 0, decPlaces: 6},
			want: "0.000'000",
		},
		{
			name: "Conversion of max uint64",
			args: args{amount: 18446744073709551615, decPlaces: 8},
			want: "184'467'440'737.095'516'15",
		},
		{
			name: "Conversion ok - 205 NAM",
			args: args{amount: 205_000_000, decPlaces: 6},
			want: "205.000'000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountToString(uint256.NewInt(tt.args.amount), tt.args.decPlaces)
			if got != tt.want {
				t.Errorf("amountToString() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_formatDecimalString(t *testing.T) {
	require.Equal(t, "0.5", FormatDecimalString("5", 1, false))
	require.Equal(t, "12", FormatDecimalString("12", 0, false))
	require.Equal(t, "1234.000001", FormatDecimalString("1234000001", 6, false))
	require.Equal(t, "1'234.000'001", FormatDecimalString("1234000001", 6, true))
}
