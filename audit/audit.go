/*
Package audit reconciles the genesis allocation with the stake observed on
chain: how much of each allocation category is bonded, which share of the
total stake it makes and how much of it is delegated to the roster.
*/
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/namada-utils/stakeaudit/chain"
	"github.com/namada-utils/stakeaudit/ledger"
	"github.com/namada-utils/stakeaudit/logger"
	"github.com/namada-utils/stakeaudit/stake"
	"github.com/namada-utils/stakeaudit/types"
)

type (
	// Input lists the accounts of the audited categories. Backer and core team
	// accounts are plain address lists, R&D and future allocation accounts
	// are named.
	Input struct {
		Backers     []types.Address
		CoreTeam    []types.Address
		RnD         []types.CategorizedAccount
		FutureAlloc []types.CategorizedAccount
		// Epoch to audit, current epoch when nil.
		Epoch *types.Epoch
		// OnStart is called once the epoch and the total stake are known and
		// OnCategory after every audited category, so the report can be
		// printed while the audit is running. Both are optional.
		OnStart    func(*Report)
		OnCategory func(*CategoryReport)
	}

	NameReport struct {
		Name           string       `json:"name"`
		Accounts       int          `json:"accounts"`
		GenesisBalance types.Amount `json:"genesisBalance"`
		Staked         types.Amount `json:"staked"`
		// ShareStaked is staked / genesis balance, zero when the balance is zero.
		ShareStaked types.Dec `json:"shareStaked"`
	}

	CategoryReport struct {
		Category       types.Category `json:"category"`
		GenesisBalance types.Amount   `json:"genesisBalance"`
		// ManifestBalance is the sum of the account balances in the manifest,
		// only for categories with named accounts.
		ManifestBalance   *types.Amount           `json:"manifestBalance,omitempty"`
		Staked            types.Amount            `json:"staked"`
		ShareOfTotalStake types.Dec               `json:"shareOfTotalStake"`
		ShareStaked       types.Dec               `json:"shareStaked"`
		Roster            map[string]types.Amount `json:"roster"`
		RosterStake       types.Amount            `json:"rosterStake"`
		// RosterShare is roster stake / staked, zero when nothing is staked.
		RosterShare types.Dec       `json:"rosterShare"`
		Names       []NameReport    `json:"names,omitempty"`
		Partial     bool            `json:"partial"`
		Skipped     []types.Address `json:"skipped,omitempty"`

		Stake *stake.CategoryStake `json:"-"`
	}

	// PublicReport is derived by remainder: everything staked that is not
	// attributed to the audited categories.
	PublicReport struct {
		GenesisBalance    types.Amount `json:"genesisBalance"`
		ShareOfTotalStake types.Dec    `json:"shareOfTotalStake"`
		Staked            types.Amount `json:"staked"`
		ShareStaked       types.Dec    `json:"shareStaked"`
	}

	Report struct {
		Epoch          types.Epoch       `json:"epoch"`
		TotalStaked    types.Amount      `json:"totalStaked"`
		TotalSupply    types.Amount      `json:"totalSupply"`
		ValidatorGrant types.Amount      `json:"validatorGrant"`
		RosterNames    []string          `json:"rosterNames"`
		Categories     []*CategoryReport `json:"categories"`
		Public         PublicReport      `json:"public"`
		Partial        bool              `json:"partial"`
	}

	Auditor struct {
		querier    chain.StakeQuerier
		aggregator *stake.Aggregator
		genesis    *ledger.GenesisAllocation
		log        *slog.Logger
	}
)

func NewAuditor(querier chain.StakeQuerier, aggregator *stake.Aggregator, genesis *ledger.GenesisAllocation, log *slog.Logger) *Auditor {
	return &Auditor{
		querier:    querier,
		aggregator: aggregator,
		genesis:    genesis,
		log:        log,
	}
}

// Category returns the report of the category, nil when the category
// wasn't audited.
func (r *Report) Category(c types.Category) *CategoryReport {
	for _, cr := range r.Categories {
		if cr.Category == c {
			return cr
		}
	}
	return nil
}

func (a *Auditor) Run(ctx context.Context, in *Input) (*Report, error) {
	if err := checkDisjoint(in); err != nil {
		return nil, err
	}

	var epoch types.Epoch
	if in.Epoch != nil {
		epoch = *in.Epoch
	} else {
		var err error
		if epoch, err = a.querier.QueryEpoch(ctx); err != nil {
			return nil, fmt.Errorf("querying current epoch: %w", err)
		}
	}
	totalStaked, err := a.querier.GetTotalStaked(ctx, epoch)
	if err != nil {
		return nil, fmt.Errorf("querying total stake: %w", err)
	}
	a.log.InfoContext(ctx, fmt.Sprintf("auditing genesis stake, total staked %s", totalStaked.StringNative()), logger.Epoch(uint64(epoch)))

	grant, _ := a.genesis.Balance(types.CategoryValidatorGrant)
	report := &Report{
		Epoch:          epoch,
		TotalStaked:    totalStaked,
		TotalSupply:    a.genesis.TotalSupply(),
		ValidatorGrant: grant,
		RosterNames:    a.aggregator.Roster().Names(),
	}
	if in.OnStart != nil {
		in.OnStart(report)
	}

	categories := []struct {
		category types.Category
		addrs    []types.Address
		accounts []types.CategorizedAccount
	}{
		{category: types.CategoryBacker, addrs: in.Backers},
		{category: types.CategoryCoreTeam, addrs: in.CoreTeam},
		{category: types.CategoryRnD, accounts: in.RnD},
		{category: types.CategoryFutureAlloc, accounts: in.FutureAlloc},
	}
	for _, c := range categories {
		addrs := c.addrs
		if c.accounts != nil {
			addrs = accountAddresses(c.accounts)
		}
		cs, err := a.aggregator.AggregateCategory(ctx, c.category, addrs, epoch)
		if err != nil {
			return nil, err
		}
		cr, err := a.categoryReport(cs, totalStaked)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.category, err)
		}
		if c.accounts != nil {
			if err := a.addNames(cr, c.accounts); err != nil {
				return nil, fmt.Errorf("%s: %w", c.category, err)
			}
		}
		report.Categories = append(report.Categories, cr)
		report.Partial = report.Partial || cr.Partial
		if in.OnCategory != nil {
			in.OnCategory(cr)
		}
	}

	if report.Public, err = a.publicReport(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (a *Auditor) categoryReport(cs *stake.CategoryStake, totalStaked types.Amount) (*CategoryReport, error) {
	balance, ok := a.genesis.Balance(cs.Category)
	if !ok {
		return nil, fmt.Errorf("%w: no genesis balance", types.ErrLookup)
	}
	cr := &CategoryReport{
		Category:       cs.Category,
		GenesisBalance: balance,
		Staked:         cs.Total,
		Roster:         cs.Roster,
		Partial:        cs.Partial,
		Skipped:        cs.SkippedAddresses(),
		Stake:          cs,
	}
	var err error
	if cr.ShareOfTotalStake, err = ledger.Ratio(cs.Total, totalStaked); err != nil {
		return nil, fmt.Errorf("share of total stake: %w", err)
	}
	if cr.ShareStaked, err = ledger.Ratio(cs.Total, balance); err != nil {
		return nil, fmt.Errorf("share of genesis balance staked: %w", err)
	}
	if cr.RosterStake, err = stake.RosterSum(cs.Roster); err != nil {
		return nil, fmt.Errorf("roster stake: %w", err)
	}
	if !cs.Total.IsZero() {
		if cr.RosterShare, err = ledger.Ratio(cr.RosterStake, cs.Total); err != nil {
			return nil, fmt.Errorf("roster share: %w", err)
		}
	}
	return cr, nil
}

// addNames adds per name breakdown of the named accounts, names are in the
// order of their first appearance.
func (a *Auditor) addNames(cr *CategoryReport, accounts []types.CategorizedAccount) error {
	byAddr := cr.Stake.ByAddress()
	idx := map[string]int{}
	var manifestTotal types.Amount
	for _, acc := range accounts {
		i, ok := idx[acc.Name]
		if !ok {
			i = len(cr.Names)
			idx[acc.Name] = i
			cr.Names = append(cr.Names, NameReport{Name: acc.Name})
		}
		nr := &cr.Names[i]
		nr.Accounts++
		var err error
		if nr.GenesisBalance, err = nr.GenesisBalance.Add(acc.Balance); err != nil {
			return fmt.Errorf("genesis balance of %q: %w", acc.Name, err)
		}
		if manifestTotal, err = manifestTotal.Add(acc.Balance); err != nil {
			return fmt.Errorf("manifest balance: %w", err)
		}
		if s, ok := byAddr[acc.Address]; ok {
			if nr.Staked, err = nr.Staked.Add(s.Active); err != nil {
				return fmt.Errorf("stake of %q: %w", acc.Name, err)
			}
		}
	}
	for i := range cr.Names {
		nr := &cr.Names[i]
		if nr.GenesisBalance.IsZero() {
			continue
		}
		var err error
		if nr.ShareStaked, err = ledger.Ratio(nr.Staked, nr.GenesisBalance); err != nil {
			return err
		}
	}
	cr.ManifestBalance = &manifestTotal
	if !manifestTotal.Equal(cr.GenesisBalance) {
		a.log.Warn(fmt.Sprintf("manifest accounts hold %s, genesis balance of the category is %s", manifestTotal.StringNative(), cr.GenesisBalance.StringNative()), logger.Category(cr.Category))
	}
	return nil
}

func (a *Auditor) publicReport(r *Report) (PublicReport, error) {
	balance, _ := a.genesis.Balance(types.CategoryPublicAlloc)
	pr := PublicReport{GenesisBalance: balance}

	shares := make([]types.Dec, len(r.Categories))
	staked := make([]types.Amount, len(r.Categories))
	for i, cr := range r.Categories {
		shares[i] = cr.ShareOfTotalStake
		staked[i] = cr.Staked
	}
	var err error
	if pr.ShareOfTotalStake, err = ledger.RemainderShare(types.DecOne(), shares...); err != nil {
		return pr, fmt.Errorf("public allocation share: %w", err)
	}
	attributed, err := types.SumAmounts(staked...)
	if err != nil {
		return pr, fmt.Errorf("%w: stake of the categories: %w", types.ErrReconciliation, err)
	}
	if pr.Staked, err = r.TotalStaked.Sub(attributed); err != nil {
		return pr, fmt.Errorf("%w: categories stake %s exceeds total stake %s: %w", types.ErrReconciliation, attributed, r.TotalStaked, types.ErrUnderflow)
	}
	if pr.ShareStaked, err = ledger.Ratio(pr.Staked, balance); err != nil {
		return pr, fmt.Errorf("public allocation share staked: %w", err)
	}
	return pr, nil
}

func accountAddresses(accounts []types.CategorizedAccount) []types.Address {
	addrs := make([]types.Address, len(accounts))
	for i, acc := range accounts {
		addrs[i] = acc.Address
	}
	return addrs
}

// checkDisjoint makes sure no address is counted in more than one category.
func checkDisjoint(in *Input) error {
	seen := map[types.Address]types.Category{}
	var errs []error
	add := func(c types.Category, addrs []types.Address) {
		for _, addr := range addrs {
			if prev, ok := seen[addr]; ok && prev != c {
				errs = append(errs, fmt.Errorf("address %s is listed in %s and %s", addr, prev, c))
				continue
			}
			seen[addr] = c
		}
	}
	add(types.CategoryBacker, in.Backers)
	add(types.CategoryCoreTeam, in.CoreTeam)
	add(types.CategoryRnD, accountAddresses(in.RnD))
	add(types.CategoryFutureAlloc, accountAddresses(in.FutureAlloc))
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", types.ErrManifest, err)
	}
	return nil
}
