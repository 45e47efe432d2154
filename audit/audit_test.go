package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	test "github.com/namada-utils/stakeaudit/internal/testutils"
	testchain "github.com/namada-utils/stakeaudit/internal/testutils/chain"
	testlogger "github.com/namada-utils/stakeaudit/internal/testutils/logger"
	"github.com/namada-utils/stakeaudit/ledger"
	"github.com/namada-utils/stakeaudit/stake"
	"github.com/namada-utils/stakeaudit/types"
)

var nam = types.MustParseAddress("tnam1qxgfw7myv4dh0qna4hq0xdg6lx77fzl7dcem8h7e")

type fixture struct {
	chain    *testchain.Chain
	roster   *stake.Roster
	backers  []types.Address
	core     []types.Address
	rnd      []types.CategorizedAccount
	future   []types.CategorizedAccount
	outsider types.Address
}

func validator(t *testing.T, r *stake.Roster, name string) types.Address {
	t.Helper()
	addr, ok := r.Validator(name)
	require.True(t, ok)
	return addr
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		chain:    testchain.New().SetEpoch(42),
		roster:   stake.DefaultRoster(),
		backers:  test.RandomAddresses(2),
		core:     test.RandomAddresses(1),
		outsider: test.RandomAddress(),
	}
	rnd := test.RandomAddresses(3)
	f.rnd = []types.CategorizedAccount{
		{Address: rnd[0], Balance: types.NewAmount(100), Category: types.CategoryRnD, Name: "Foundation"},
		{Address: rnd[1], Balance: types.NewAmount(300), Category: types.CategoryRnD, Name: "Labs"},
		{Address: rnd[2], Balance: types.NewAmount(300), Category: types.CategoryRnD, Name: "Foundation"},
	}
	f.future = []types.CategorizedAccount{
		{Address: test.RandomAddress(), Balance: types.NewAmount(10), Category: types.CategoryFutureAlloc, Name: "Reserve"},
	}

	f.chain.
		AddBond(f.backers[0], validator(t, f.roster, "Chorus One"), 1000).
		AddBond(f.backers[0], test.RandomValidator(), 500).
		AddBond(f.backers[1], validator(t, f.roster, "Informal"), 300).
		AddBond(f.core[0], validator(t, f.roster, "P2P.org"), 200).
		AddBond(rnd[0], validator(t, f.roster, "Unit 410 [1]"), 50).
		AddBond(f.future[0].Address, test.RandomValidator(), 10).
		AddBond(f.outsider, test.RandomValidator(), 1000)
	return f
}

func (f *fixture) input() *Input {
	return &Input{Backers: f.backers, CoreTeam: f.core, RnD: f.rnd, FutureAlloc: f.future}
}

func (f *fixture) auditor(t *testing.T, opts ...stake.Option) *Auditor {
	log := testlogger.New(t)
	agg := stake.NewAggregator(f.chain, f.roster, append(opts, stake.WithLogger(log))...)
	return NewAuditor(f.chain, agg, ledger.DefaultGenesisAllocation(), log)
}

func TestAuditor_Run(t *testing.T) {
	f := newFixture(t)
	report, err := f.auditor(t).Run(context.Background(), f.input())
	require.NoError(t, err)

	require.EqualValues(t, 42, report.Epoch)
	require.Equal(t, types.NewAmount(3060), report.TotalStaked)
	require.Equal(t, types.NativeWhole(1_000_000_000), report.TotalSupply)
	require.Equal(t, types.NativeWhole(205), report.ValidatorGrant)
	require.False(t, report.Partial)
	require.Len(t, report.Categories, 4)

	backer := report.Category(types.CategoryBacker)
	require.Equal(t, types.NativeWhole(320_364_605), backer.GenesisBalance)
	require.Equal(t, types.NewAmount(1800), backer.Staked)
	require.Equal(t, "0.588235294117", backer.ShareOfTotalStake.String())
	require.Equal(t, types.NewAmount(1300), backer.RosterStake)
	require.Equal(t, "0.722222222222", backer.RosterShare.String())
	require.Equal(t, types.NewAmount(1000), backer.Roster["Chorus One"])
	require.Equal(t, types.NewAmount(300), backer.Roster["Informal"])
	require.Nil(t, backer.ManifestBalance)
	require.Empty(t, backer.Names)

	core := report.Category(types.CategoryCoreTeam)
	require.Equal(t, types.NewAmount(200), core.Staked)
	require.Equal(t, "1", core.RosterShare.String())

	rnd := report.Category(types.CategoryRnD)
	require.Equal(t, types.NewAmount(50), rnd.Staked)
	require.Equal(t, types.NewAmount(700), *rnd.ManifestBalance)
	require.Equal(t, []NameReport{
		{Name: "Foundation", Accounts: 2, GenesisBalance: types.NewAmount(400), Staked: types.NewAmount(50), ShareStaked: types.MustParseDec("0.125")},
		{Name: "Labs", Accounts: 1, GenesisBalance: types.NewAmount(300), Staked: types.Amount{}, ShareStaked: types.Dec{}},
	}, rnd.Names)

	future := report.Category(types.CategoryFutureAlloc)
	require.Equal(t, types.NewAmount(10), future.Staked)
	require.True(t, future.RosterStake.IsZero())
	require.True(t, future.RosterShare.IsZero())

	// public allocation is what remains of the total stake
	require.Equal(t, types.NewAmount(1000), report.Public.Staked)
	exact, err := ledger.Ratio(types.NewAmount(1000), report.TotalStaked)
	require.NoError(t, err)
	require.GreaterOrEqual(t, report.Public.ShareOfTotalStake.Cmp(exact), 0)
	require.Equal(t, "0.32679738562", exact.String())

	require.Nil(t, report.Category(types.CategoryPublicAlloc))
}

func TestAuditor_Run_FixedEpoch(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	epoch := types.Epoch(45)
	in.Epoch = &epoch
	report, err := f.auditor(t).Run(context.Background(), in)
	require.NoError(t, err)
	require.EqualValues(t, 45, report.Epoch)
	require.EqualValues(t, 45, report.Category(types.CategoryBacker).Stake.Epoch)
	require.Equal(t, types.NewAmount(1800), report.Category(types.CategoryBacker).Stake.Total)
}

func TestAuditor_Run_Partial(t *testing.T) {
	f := newFixture(t)
	f.chain.FailQueriesOf(f.rnd[0].Address, errors.New("node unavailable"))

	_, err := f.auditor(t).Run(context.Background(), f.input())
	require.ErrorIs(t, err, types.ErrQuery)

	report, err := f.auditor(t, stake.WithFailurePolicy(stake.SkipUnreachable)).Run(context.Background(), f.input())
	require.NoError(t, err)
	require.True(t, report.Partial)
	rnd := report.Category(types.CategoryRnD)
	require.True(t, rnd.Partial)
	require.Equal(t, []types.Address{f.rnd[0].Address}, rnd.Skipped)
	require.True(t, rnd.Staked.IsZero())
	require.True(t, rnd.Names[0].Staked.IsZero())
	require.False(t, report.Category(types.CategoryBacker).Partial)
	// stake of the skipped account ends up in the remainder
	require.Equal(t, types.NewAmount(1050), report.Public.Staked)
}

func TestAuditor_Run_Progress(t *testing.T) {
	f := newFixture(t)
	f.chain.FailQueriesOf(f.rnd[0].Address, errors.New("node unavailable"))

	var started *Report
	var done []types.Category
	in := f.input()
	in.OnStart = func(r *Report) {
		require.Empty(t, done)
		started = r
	}
	in.OnCategory = func(cr *CategoryReport) {
		require.NotNil(t, started)
		done = append(done, cr.Category)
	}

	_, err := f.auditor(t).Run(context.Background(), in)
	require.ErrorIs(t, err, types.ErrQuery)
	require.EqualValues(t, 42, started.Epoch)
	require.Equal(t, types.NewAmount(3060), started.TotalStaked)
	// categories before the failing one were reported
	require.Equal(t, []types.Category{types.CategoryBacker, types.CategoryCoreTeam}, done)

	started, done = nil, nil
	report, err := f.auditor(t, stake.WithFailurePolicy(stake.SkipUnreachable)).Run(context.Background(), in)
	require.NoError(t, err)
	require.Same(t, report, started)
	require.Equal(t, []types.Category{types.CategoryBacker, types.CategoryCoreTeam, types.CategoryRnD, types.CategoryFutureAlloc}, done)
}

func TestAuditor_Run_AddressInTwoCategories(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.CoreTeam = append(in.CoreTeam, f.backers[1])
	_, err := f.auditor(t).Run(context.Background(), in)
	require.ErrorIs(t, err, types.ErrManifest)
	require.ErrorContains(t, err, fmt.Sprintf("address %s is listed in backer and core_team", f.backers[1]))
	require.Zero(t, f.chain.BondQueries())
}

func TestAuditor_Run_CategoriesExceedTotalStake(t *testing.T) {
	f := newFixture(t)
	f.chain.SetTotalStaked(types.NewAmount(2000))
	_, err := f.auditor(t).Run(context.Background(), f.input())
	require.ErrorIs(t, err, types.ErrReconciliation)
}

func TestWriteRosterCSV(t *testing.T) {
	f := newFixture(t)
	report, err := f.auditor(t).Run(context.Background(), f.input())
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteRosterCSV(buf, f.roster, report.Category(types.CategoryBacker).Stake.Addresses))
	require.Equal(t, fmt.Sprintf(`Address,Total Stake,Unit 410 [1],Unit 410 [2],Chorus One,P2P.org,Informal
%s,0.001500,0,0,0.666666666666,0,0
%s,0.000300,0,0,0,0,1
`, f.backers[0], f.backers[1]), buf.String())
}
