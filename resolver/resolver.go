/*
Package resolver turns address references found in manifests and command
line arguments into chain addresses.
*/
package resolver

import (
	"fmt"

	"github.com/namada-utils/stakeaudit/types"
)

// Keyring is the capability to look up addresses by alias.
type Keyring interface {
	FindAddress(alias string) (types.Address, bool)
}

type Resolver struct {
	keyring Keyring
	hrp     string
}

// New returns resolver using "keyring" to resolve aliases. Keyring may be
// nil in which case every alias lookup fails.
func New(keyring Keyring) *Resolver {
	return &Resolver{keyring: keyring, hrp: types.DefaultHRP}
}

/*
Resolve returns the address "ref" refers to. Literal references are parsed
(ErrParse when malformed), alias references are looked up from the keyring
(ErrAliasNotFound when the keyring doesn't know the alias).
*/
func (r *Resolver) Resolve(ref types.AddressRef) (types.Address, error) {
	switch ref.Kind {
	case types.RefLiteral:
		return types.ParseAddressWithHRP(ref.Value, r.hrp)
	case types.RefAlias:
		if r.keyring != nil {
			if addr, ok := r.keyring.FindAddress(ref.Value); ok {
				return addr, nil
			}
		}
		return types.Address{}, fmt.Errorf("%w: %q", types.ErrAliasNotFound, ref.Value)
	default:
		return types.Address{}, fmt.Errorf("%w: unknown reference kind %s of %q", types.ErrParse, ref.Kind, ref.Value)
	}
}

// ResolveAll resolves references in order, stopping on the first failure.
func (r *Resolver) ResolveAll(refs []types.AddressRef) ([]types.Address, error) {
	addrs := make([]types.Address, len(refs))
	for i, ref := range refs {
		addr, err := r.Resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("resolving reference [%d] %s: %w", i, ref, err)
		}
		addrs[i] = addr
	}
	return addrs, nil
}

// ResolveString classifies raw input and resolves it.
func (r *Resolver) ResolveString(s string) (types.Address, error) {
	ref, err := types.NewAddressRef(s)
	if err != nil {
		return types.Address{}, err
	}
	return r.Resolve(ref)
}
