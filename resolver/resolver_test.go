package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namada-utils/stakeaudit/types"
)

type mapKeyring map[string]types.Address

func (m mapKeyring) FindAddress(alias string) (types.Address, bool) {
	a, ok := m[alias]
	return a, ok
}

const (
	chorusOne = "tnam1qxsx2ezu89gx252kwwluqp7hadyp285tkczhaqg0"
	informal  = "tnam1q9vrp45qtphed4q2vc382qrtf2gfykf50vssfe2h"
)

func TestResolve(t *testing.T) {
	kr := mapKeyring{"faucet": types.MustParseAddress(informal)}
	r := New(kr)

	t.Run("literal", func(t *testing.T) {
		addr, err := r.Resolve(types.LiteralRef(chorusOne))
		require.NoError(t, err)
		require.Equal(t, chorusOne, addr.String())
	})

	t.Run("malformed literal", func(t *testing.T) {
		_, err := r.Resolve(types.LiteralRef("tnam1qxsx2ezu89gx252kwwluqp7hadyp285tkczhaqg1"))
		require.ErrorIs(t, err, types.ErrParse)
		require.NotErrorIs(t, err, types.ErrLookup)
	})

	t.Run("literal is never looked up from keyring", func(t *testing.T) {
		r := New(mapKeyring{"tnam1xyz": types.MustParseAddress(informal)})
		_, err := r.Resolve(types.LiteralRef("tnam1xyz"))
		require.ErrorIs(t, err, types.ErrParse)
	})

	t.Run("alias", func(t *testing.T) {
		addr, err := r.Resolve(types.AliasRef("faucet"))
		require.NoError(t, err)
		require.Equal(t, types.MustParseAddress(informal), addr)
	})

	t.Run("unknown alias", func(t *testing.T) {
		_, err := r.Resolve(types.AliasRef("albert"))
		require.ErrorIs(t, err, types.ErrAliasNotFound)
		require.ErrorIs(t, err, types.ErrLookup)
		require.ErrorContains(t, err, `"albert"`)
	})

	t.Run("nil keyring", func(t *testing.T) {
		_, err := New(nil).Resolve(types.AliasRef("faucet"))
		require.ErrorIs(t, err, types.ErrAliasNotFound)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := r.Resolve(types.AddressRef{Value: chorusOne})
		require.ErrorIs(t, err, types.ErrParse)
	})
}

func TestResolveAll(t *testing.T) {
	r := New(mapKeyring{"faucet": types.MustParseAddress(informal)})

	addrs, err := r.ResolveAll([]types.AddressRef{types.LiteralRef(chorusOne), types.AliasRef("faucet")})
	require.NoError(t, err)
	require.Equal(t, []types.Address{types.MustParseAddress(chorusOne), types.MustParseAddress(informal)}, addrs)

	addrs, err = r.ResolveAll([]types.AddressRef{types.LiteralRef(chorusOne), types.AliasRef("bertha")})
	require.ErrorIs(t, err, types.ErrAliasNotFound)
	require.ErrorContains(t, err, "resolving reference [1] alias:bertha")
	require.Nil(t, addrs)
}

func TestResolveString(t *testing.T) {
	r := New(mapKeyring{"faucet": types.MustParseAddress(informal)})

	addr, err := r.ResolveString("faucet")
	require.NoError(t, err)
	require.Equal(t, informal, addr.String())

	addr, err = r.ResolveString(chorusOne)
	require.NoError(t, err)
	require.Equal(t, chorusOne, addr.String())

	_, err = r.ResolveString("")
	require.ErrorIs(t, err, types.ErrParse)
}
