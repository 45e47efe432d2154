package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	test "github.com/namada-utils/stakeaudit/internal/testutils"
	testchain "github.com/namada-utils/stakeaudit/internal/testutils/chain"
	"github.com/namada-utils/stakeaudit/types"
)

func TestGetChainInfo(t *testing.T) {
	pgf, gov := test.RandomValidator(), test.RandomValidator()
	c := testchain.New().SetEpoch(12).
		AddBond(test.RandomAddress(), test.RandomValidator(), 3000).
		SetTotalSupply(nam, types.NewAmount(12000)).
		SetBalance(nam, pgf, 77).
		SetBalance(nam, gov, 5)

	info, err := GetChainInfo(context.Background(), c, nam, []NamedAddress{{Name: "pgf", Address: pgf}, {Name: "gov", Address: gov}})
	require.NoError(t, err)
	require.EqualValues(t, 12, info.Epoch)
	require.Equal(t, types.NewAmount(3000), info.TotalStaked)
	require.Equal(t, types.NewAmount(3000), info.PipelineStake)
	require.Equal(t, types.NewAmount(12000), info.NativeSupply)
	require.Equal(t, "0.25", info.StakedRatio.String())
	require.Equal(t, []AccountBalance{
		{Name: "pgf", Address: pgf, Balance: types.NewAmount(77)},
		{Name: "gov", Address: gov, Balance: types.NewAmount(5)},
	}, info.Accounts)
	// no blocks and no rates in the chain
	require.Nil(t, info.LastBlock)
	require.Nil(t, info.Rates)
	require.Len(t, info.Warnings, 2)

	blockTime := time.Date(2024, 12, 3, 14, 0, 0, 0, time.UTC)
	c.SetLastBlock(123456, blockTime).SetRewardsRates(types.MustParseDec("0.0834"), types.MustParseDec("0.0505"))
	info, err = GetChainInfo(context.Background(), c, nam, nil)
	require.NoError(t, err)
	require.Empty(t, info.Warnings)
	require.Empty(t, info.Accounts)
	require.Equal(t, &types.BlockInfo{Height: 123456, Time: blockTime}, info.LastBlock)
	require.Equal(t, "0.0834", info.Rates.StakingRewardsRate.String())
	require.Equal(t, "0.0505", info.Rates.InflationRate.String())
}

func TestGetChainInfo_NoSupply(t *testing.T) {
	_, err := GetChainInfo(context.Background(), testchain.New(), nam, nil)
	require.ErrorIs(t, err, types.ErrDivisionByZero)
}

func TestGetBalances(t *testing.T) {
	addrs := test.RandomAddresses(2)
	validator := test.RandomValidator()
	c := testchain.New().
		SetBalance(nam, addrs[0], 100).
		SetBalance(nam, addrs[1], 50).
		AddBond(addrs[1], validator, 25).
		SetRewards(addrs[1], validator, 3)

	res, err := GetBalances(context.Background(), c, nam, addrs)
	require.NoError(t, err)
	require.Equal(t, []BalanceReport{
		{Address: addrs[0], Balance: types.NewAmount(100)},
		{
			Address: addrs[1], Balance: types.NewAmount(50), Bonded: types.NewAmount(25), Rewards: types.NewAmount(3),
			Bonds: []BondRewards{{Validator: validator, Rewards: types.NewAmount(3)}},
		},
	}, res.Accounts)
	require.Equal(t, types.NewAmount(150), res.TotalBalance)
	require.Equal(t, types.NewAmount(25), res.TotalBonded)
	require.Equal(t, types.NewAmount(3), res.TotalRewards)
	require.Equal(t, types.NewAmount(178), res.Total)

	c.FailQueriesOf(addrs[0], errors.New("boom"))
	_, err = GetBalances(context.Background(), c, nam, addrs)
	require.ErrorIs(t, err, types.ErrQuery)
}

func TestGetSupplies(t *testing.T) {
	osmo := test.RandomValidator()
	c := testchain.New().SetTotalSupply(nam, types.NativeWhole(1_000_000_000)).SetBalance(osmo, test.RandomAddress(), 9)
	res, err := GetSupplies(context.Background(), c, []NamedAddress{{Name: "nam", Address: nam}, {Name: "osmo", Address: osmo}})
	require.NoError(t, err)
	require.Equal(t, []TokenSupply{
		{Name: "nam", Token: nam, Supply: types.NativeWhole(1_000_000_000)},
		{Name: "osmo", Token: osmo, Supply: types.NewAmount(9)},
	}, res)

	c.SetBalance(osmo, types.MASPAddress, 4).SetBalance(nam, types.MASPAddress, 1000)
	res, err = GetSupplies(context.Background(), c, []NamedAddress{{Name: "nam", Address: nam}, {Name: "osmo", Address: osmo}})
	require.NoError(t, err)
	require.Equal(t, types.NativeWhole(1_000_000_000), res[0].Supply)
	require.Equal(t, types.NewAmount(1000), res[0].Shielded)
	require.Equal(t, types.NewAmount(13), res[1].Supply)
	require.Equal(t, types.NewAmount(4), res[1].Shielded)
}

func TestGetBalances_MultipleBonds(t *testing.T) {
	addr := test.RandomAddress()
	validators := test.RandomAddresses(2)
	c := testchain.New().
		AddBond(addr, validators[0], 10).
		AddBond(addr, validators[1], 20).
		AddUnbond(addr, validators[1], 5).
		SetRewards(addr, validators[0], 1).
		SetRewards(addr, validators[1], 2)

	res, err := GetBalances(context.Background(), c, nam, []types.Address{addr})
	require.NoError(t, err)
	require.Len(t, res.Accounts[0].Bonds, 2)
	require.Less(t, res.Accounts[0].Bonds[0].Validator.String(), res.Accounts[0].Bonds[1].Validator.String())
	require.Equal(t, types.NewAmount(30), res.Accounts[0].Bonded)
	require.Equal(t, types.NewAmount(3), res.Accounts[0].Rewards)
	require.Equal(t, types.NewAmount(33), res.Total)
}

func TestGetTopValidators(t *testing.T) {
	v := test.RandomAddresses(4)
	c := testchain.New().SetEpoch(3).
		AddBond(test.RandomAddress(), v[0], 500).
		AddBond(test.RandomAddress(), v[1], 250).
		AddBond(test.RandomAddress(), v[1], 50).
		AddBond(test.RandomAddress(), v[2], 150).
		AddBond(test.RandomAddress(), v[3], 100).
		SetValidatorMetadata(v[0], types.ValidatorMetadata{Name: "Anchor"}).
		SetValidatorMetadata(v[1], types.ValidatorMetadata{Name: "Second", Website: "https://second.example"}).
		FailQueriesOf(v[2], errors.New("no metadata"))

	top, err := GetTopValidators(context.Background(), c, 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, top.Epoch)
	require.Equal(t, 4, top.Consensus)
	require.Equal(t, types.NewAmount(1000), top.TotalStake)
	require.Len(t, top.Validators, 3)

	want := []struct {
		addr             types.Address
		name, share, cum string
	}{
		{v[0], "Anchor", "0.5", "0.5"},
		{v[1], "Second", "0.3", "0.8"},
		{v[2], "", "0.15", "0.95"},
	}
	for i, w := range want {
		got := top.Validators[i]
		require.Equal(t, w.addr, got.Address)
		require.Equal(t, w.name, got.Name)
		require.True(t, types.MustParseDec(w.share).Equal(got.Share), "share of %d: %s", i, got.Share)
		require.True(t, types.MustParseDec(w.cum).Equal(got.CumulativeShare), "cumulative share of %d: %s", i, got.CumulativeShare)
	}

	// asking for more than there are
	top, err = GetTopValidators(context.Background(), c, 25)
	require.NoError(t, err)
	require.Len(t, top.Validators, 4)
	require.True(t, types.DecOne().Equal(top.Validators[3].CumulativeShare))

	_, err = GetTopValidators(context.Background(), c, 0)
	require.ErrorContains(t, err, "must be positive")
}

func TestGetTopValidators_EqualStake(t *testing.T) {
	v := test.RandomAddresses(3)
	c := testchain.New()
	for _, addr := range v {
		c.AddBond(test.RandomAddress(), addr, 10)
	}
	top, err := GetTopValidators(context.Background(), c, 3)
	require.NoError(t, err)
	for i := 1; i < len(top.Validators); i++ {
		require.Less(t, top.Validators[i-1].Address.String(), top.Validators[i].Address.String())
	}
}

func TestGetTopValidators_NoValidators(t *testing.T) {
	top, err := GetTopValidators(context.Background(), testchain.New(), 25)
	require.NoError(t, err)
	require.Empty(t, top.Validators)
	require.Zero(t, top.Consensus)
}
