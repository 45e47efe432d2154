package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	chorusOne   = "tnam1qxsx2ezu89gx252kwwluqp7hadyp285tkczhaqg0"
	implicitOne = "tnam1qqqszqgpqyqszqgpqyqszqgpqyqszqgpqyr40qkp"
)

func TestParseAddress(t *testing.T) {
	t.Run("established", func(t *testing.T) {
		a, err := ParseAddress(chorusOne)
		require.NoError(t, err)
		require.Equal(t, chorusOne, a.String())
		require.True(t, a.IsEstablished())
		require.False(t, a.IsImplicit())
		require.Len(t, a.Bytes(), 21)
	})

	t.Run("implicit", func(t *testing.T) {
		a, err := ParseAddress(implicitOne)
		require.NoError(t, err)
		require.True(t, a.IsImplicit())
		var hash [20]byte
		for i := range hash {
			hash[i] = 1
		}
		require.Equal(t, a, NewImplicitAddress(hash))
	})

	t.Run("internal", func(t *testing.T) {
		for s, kind := range map[string]AddressKind{
			"tnam1q5qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqrw33g6": KindGovernance,
			"tnam1pgqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqkhgajr": KindPGF,
			"tnam1pcqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqzmefah": KindMASP,
			"tnam1qgqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqc8j2fp": KindPoS,
		} {
			a, err := ParseAddress(s)
			require.NoError(t, err, s)
			require.Equal(t, s, a.String())
			require.Equal(t, kind, a.Kind())
			require.True(t, a.IsInternal(), s)
			require.False(t, a.IsImplicit())
			require.False(t, a.IsEstablished())
		}
		require.Equal(t, "tnam1q5qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqrw33g6", GovernanceAddress.String())
		require.Equal(t, "tnam1pgqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqkhgajr", PGFAddress.String())
		require.Equal(t, "tnam1pcqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqzmefah", MASPAddress.String())
		require.False(t, MustParseAddress(chorusOne).IsInternal())
	})

	t.Run("upper case is canonicalized", func(t *testing.T) {
		a, err := ParseAddress(strings.ToUpper(chorusOne))
		require.NoError(t, err)
		require.Equal(t, MustParseAddress(chorusOne), a)
	})

	t.Run("invalid input", func(t *testing.T) {
		inputs := map[string]string{
			"empty":          "",
			"bad checksum":   "tnam1qxsx2ezu89gx252kwwluqp7hadyp285tkczhaqg1",
			"wrong prefix":   "tnamx1qqqszqgpqyqszqgpqyqszqgpqyqszqgpqysmlgef",
			"short payload":  "tnam1qyqszqgpqyqszqgpqyqszqgpqyqszqgpk6pdyw",
			"mixed case":     "tnam1QXSX2ezu89gx252kwwluqp7hadyp285tkczhaqg0",
			"not an address": "my-alias",
		}
		for name, s := range inputs {
			_, err := ParseAddress(s)
			require.ErrorIs(t, err, ErrParse, name)
		}
	})
}

func TestIBCTokenAddress(t *testing.T) {
	osmo := IBCTokenAddress("transfer/channel-1/uosmo")
	require.Equal(t, "tnam1p5z8ruwyu7ha8urhq2l0dhpk2f5dv3ts7uyf2n75", osmo.String())
	require.Equal(t, KindIBCToken, osmo.Kind())
	require.Equal(t, osmo, MustParseAddress(osmo.String()))
	require.NotEqual(t, osmo, IBCTokenAddress("transfer/channel-2/uatom"))
}

func TestAddress_mapKey(t *testing.T) {
	m := map[Address]int{}
	m[MustParseAddress(chorusOne)] = 1
	m[MustParseAddress(strings.ToUpper(chorusOne))]++
	require.Len(t, m, 1)
	require.Equal(t, 2, m[MustParseAddress(chorusOne)])
}

func TestAddress_Text(t *testing.T) {
	a := MustParseAddress(chorusOne)
	b, err := a.MarshalText()
	require.NoError(t, err)

	var a2 Address
	require.NoError(t, a2.UnmarshalText(b))
	require.Equal(t, a, a2)
	require.ErrorIs(t, a2.UnmarshalText([]byte("foo")), ErrParse)
}

func TestNewAddressRef(t *testing.T) {
	ref, err := NewAddressRef(chorusOne)
	require.NoError(t, err)
	require.Equal(t, LiteralRef(chorusOne), ref)

	// malformed literal is still literal, resolving it must fail rather than fall back to alias lookup
	ref, err = NewAddressRef("tnam1broken")
	require.NoError(t, err)
	require.Equal(t, RefLiteral, ref.Kind)

	ref, err = NewAddressRef("  faucet ")
	require.NoError(t, err)
	require.Equal(t, AliasRef("faucet"), ref)
	require.Equal(t, "alias:faucet", ref.String())

	_, err = NewAddressRef(" ")
	require.ErrorIs(t, err, ErrParse)
}
