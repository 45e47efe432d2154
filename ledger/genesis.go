package ledger

import (
	"fmt"

	"github.com/namada-utils/stakeaudit/types"
)

// GenesisConstants are the declared genesis balances in native micro units.
type GenesisConstants struct {
	Backer         types.Amount `mapstructure:"backer"`
	CoreTeam       types.Amount `mapstructure:"core_team"`
	RnD            types.Amount `mapstructure:"rnd"`
	FutureAlloc    types.Amount `mapstructure:"future_alloc"`
	PublicAlloc    types.Amount `mapstructure:"public_alloc"`
	ValidatorGrant types.Amount `mapstructure:"validator_grant"`
	TotalSupply    types.Amount `mapstructure:"total_supply"`
}

func mustAmount(s string) types.Amount {
	a, err := types.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// DefaultGenesisConstants returns the mainnet genesis allocation.
func DefaultGenesisConstants() GenesisConstants {
	return GenesisConstants{
		Backer:         types.NativeWhole(320_364_605),
		CoreTeam:       mustAmount("187986994166096"),
		RnD:            types.NativeWhole(170_000_000),
		FutureAlloc:    mustAmount("160539918535390"),
		PublicAlloc:    mustAmount("161108277298514"),
		ValidatorGrant: types.NativeWhole(205),
		TotalSupply:    types.NativeWhole(1_000_000_000),
	}
}

// GenesisAllocation is a validated, immutable set of genesis constants: the
// total supply minus the allocated categories equals the validator grant.
type GenesisAllocation struct {
	c GenesisConstants
}

func NewGenesisAllocation(c GenesisConstants) (*GenesisAllocation, error) {
	g := &GenesisAllocation{c: c}
	remainder, err := Reconcile(g.allocated(), c.TotalSupply)
	if err != nil {
		return nil, err
	}
	if !remainder.Equal(c.ValidatorGrant) {
		return nil, fmt.Errorf("%w: total supply %s leaves %s for the validator grant, expected %s",
			types.ErrReconciliation, c.TotalSupply.StringNative(), remainder.StringNative(), c.ValidatorGrant.StringNative())
	}
	return g, nil
}

func DefaultGenesisAllocation() *GenesisAllocation {
	g, err := NewGenesisAllocation(DefaultGenesisConstants())
	if err != nil {
		panic(err)
	}
	return g
}

func (g *GenesisAllocation) allocated() [5]types.Amount {
	return [5]types.Amount{g.c.Backer, g.c.CoreTeam, g.c.RnD, g.c.FutureAlloc, g.c.PublicAlloc}
}

func (g *GenesisAllocation) Constants() GenesisConstants { return g.c }

func (g *GenesisAllocation) TotalSupply() types.Amount { return g.c.TotalSupply }

// Balance returns the genesis balance of the category.
func (g *GenesisAllocation) Balance(c types.Category) (types.Amount, bool) {
	switch c {
	case types.CategoryBacker:
		return g.c.Backer, true
	case types.CategoryCoreTeam:
		return g.c.CoreTeam, true
	case types.CategoryRnD:
		return g.c.RnD, true
	case types.CategoryFutureAlloc:
		return g.c.FutureAlloc, true
	case types.CategoryPublicAlloc:
		return g.c.PublicAlloc, true
	case types.CategoryValidatorGrant:
		return g.c.ValidatorGrant, true
	default:
		return types.Amount{}, false
	}
}

// Share returns the category's share of the total supply.
func (g *GenesisAllocation) Share(c types.Category) (types.Dec, error) {
	b, ok := g.Balance(c)
	if !ok {
		return types.Dec{}, fmt.Errorf("%w: no genesis balance for category %d", types.ErrLookup, c)
	}
	return Ratio(b, g.c.TotalSupply)
}
