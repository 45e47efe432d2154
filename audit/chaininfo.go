package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/namada-utils/stakeaudit/chain"
	"github.com/namada-utils/stakeaudit/ledger"
	"github.com/namada-utils/stakeaudit/types"
)

// PipelineLength is the number of epochs before a bond becomes active.
const PipelineLength = 2

type (
	ChainQuerier interface {
		chain.StakeQuerier
		chain.BalanceQuerier
		chain.InfoQuerier
		chain.RewardsQuerier
	}

	ValidatorSetQuerier interface {
		QueryEpoch(ctx context.Context) (types.Epoch, error)
		chain.ValidatorQuerier
	}

	NamedAddress struct {
		Name    string
		Address types.Address
	}

	AccountBalance struct {
		Name    string        `json:"name,omitempty"`
		Address types.Address `json:"address"`
		Balance types.Amount  `json:"balance"`
	}

	ChainInfo struct {
		Epoch        types.Epoch  `json:"epoch"`
		TotalStaked  types.Amount `json:"totalStaked"`
		NativeSupply types.Amount `json:"nativeSupply"`
		StakedRatio  types.Dec    `json:"stakedRatio"`
		// PipelineStake is the total stake at the end of the pipeline,
		// includes bonds and unbonds already submitted.
		PipelineStake types.Amount        `json:"pipelineStake"`
		Accounts      []AccountBalance    `json:"accounts,omitempty"`
		LastBlock     *types.BlockInfo    `json:"lastBlock,omitempty"`
		Rates         *types.RewardsRates `json:"rates,omitempty"`
		// Warnings lists the optional queries which failed.
		Warnings []string `json:"warnings,omitempty"`
	}

	BondRewards struct {
		Validator types.Address `json:"validator"`
		Rewards   types.Amount  `json:"rewards"`
	}

	BalanceReport struct {
		Address types.Address `json:"address"`
		Balance types.Amount  `json:"balance"`
		Bonded  types.Amount  `json:"bonded"`
		// Rewards is the sum of the unclaimed rewards of all the bonds.
		Rewards types.Amount  `json:"rewards"`
		Bonds   []BondRewards `json:"bonds,omitempty"`
	}

	Balances struct {
		Accounts     []BalanceReport `json:"accounts"`
		TotalBalance types.Amount    `json:"totalBalance"`
		TotalBonded  types.Amount    `json:"totalBonded"`
		TotalRewards types.Amount    `json:"totalRewards"`
		// Total is balance + bonded + rewards of all the accounts.
		Total types.Amount `json:"total"`
	}

	TokenSupply struct {
		Name   string        `json:"name"`
		Token  types.Address `json:"token"`
		Supply types.Amount  `json:"supply"`
		// Shielded is the balance of the token held by the MASP.
		Shielded types.Amount `json:"shielded"`
	}

	ValidatorStake struct {
		Address     types.Address `json:"address"`
		Name        string        `json:"name,omitempty"`
		BondedStake types.Amount  `json:"bondedStake"`
		// Share is the voting power of the validator, CumulativeShare
		// includes all the validators ranked above it.
		Share           types.Dec `json:"share"`
		CumulativeShare types.Dec `json:"cumulativeShare"`
	}

	TopValidators struct {
		Epoch      types.Epoch      `json:"epoch"`
		TotalStake types.Amount     `json:"totalStake"`
		Validators []ValidatorStake `json:"validators"`
		// Consensus is the size of the consensus validator set.
		Consensus int `json:"consensus"`
	}
)

/*
GetChainInfo returns the staking state of the chain. Balances of "accounts"
(ie governance and public goods funding accounts) in the native token are
included.
*/
func GetChainInfo(ctx context.Context, q ChainQuerier, nativeToken types.Address, accounts []NamedAddress) (*ChainInfo, error) {
	epoch, err := q.QueryEpoch(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying epoch: %w", err)
	}
	info := &ChainInfo{Epoch: epoch}
	if info.TotalStaked, err = q.GetTotalStaked(ctx, epoch); err != nil {
		return nil, fmt.Errorf("querying total stake: %w", err)
	}
	if info.PipelineStake, err = q.GetTotalStaked(ctx, epoch+PipelineLength); err != nil {
		return nil, fmt.Errorf("querying pipeline stake: %w", err)
	}
	if info.NativeSupply, err = q.GetTotalSupply(ctx, nativeToken); err != nil {
		return nil, fmt.Errorf("querying native token supply: %w", err)
	}
	if info.StakedRatio, err = ledger.Ratio(info.TotalStaked, info.NativeSupply); err != nil {
		return nil, fmt.Errorf("staked ratio: %w", err)
	}
	for _, acc := range accounts {
		b, err := q.GetTokenBalance(ctx, nativeToken, acc.Address)
		if err != nil {
			return nil, fmt.Errorf("querying balance of %s: %w", acc.Name, err)
		}
		info.Accounts = append(info.Accounts, AccountBalance{Name: acc.Name, Address: acc.Address, Balance: b})
	}
	// node may not serve these, the rest of the info is still useful
	if info.LastBlock, err = q.QueryLastBlock(ctx); err != nil {
		info.Warnings = append(info.Warnings, fmt.Sprintf("querying last block: %v", err))
	}
	if info.Rates, err = q.GetRewardsRates(ctx); err != nil {
		info.Warnings = append(info.Warnings, fmt.Sprintf("querying rewards rates: %v", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return info, nil
}

// GetBalances returns token balance, active bonded stake and unclaimed
// rewards of every address, together with the totals.
func GetBalances(ctx context.Context, q ChainQuerier, token types.Address, addrs []types.Address) (*Balances, error) {
	epoch, err := q.QueryEpoch(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying epoch: %w", err)
	}
	res := &Balances{Accounts: make([]BalanceReport, len(addrs))}
	for i, addr := range addrs {
		br := BalanceReport{Address: addr}
		if br.Balance, err = q.GetTokenBalance(ctx, token, addr); err != nil {
			return nil, fmt.Errorf("querying balance of %s: %w", addr, err)
		}
		bd, err := q.GetBondDetail(ctx, addr, epoch)
		if err != nil {
			return nil, fmt.Errorf("querying bonds of %s: %w", addr, err)
		}
		if br.Bonded, err = bd.TotalActive(epoch); err != nil {
			return nil, fmt.Errorf("bonds of %s: %w", addr, err)
		}
		for _, validator := range bondValidators(bd) {
			r, err := q.GetRewards(ctx, addr, validator)
			if err != nil {
				return nil, fmt.Errorf("querying rewards of %s from %s: %w", addr, validator, err)
			}
			br.Bonds = append(br.Bonds, BondRewards{Validator: validator, Rewards: r})
			if br.Rewards, err = br.Rewards.Add(r); err != nil {
				return nil, fmt.Errorf("rewards of %s: %w", addr, err)
			}
		}
		if res.TotalBalance, err = res.TotalBalance.Add(br.Balance); err != nil {
			return nil, err
		}
		if res.TotalBonded, err = res.TotalBonded.Add(br.Bonded); err != nil {
			return nil, err
		}
		if res.TotalRewards, err = res.TotalRewards.Add(br.Rewards); err != nil {
			return nil, err
		}
		res.Accounts[i] = br
	}
	if res.Total, err = types.SumAmounts(res.TotalBalance, res.TotalBonded, res.TotalRewards); err != nil {
		return nil, err
	}
	return res, nil
}

// bondValidators returns the validators of the bonds, sorted and without
// duplicates.
func bondValidators(bd types.BondDetail) []types.Address {
	seen := map[types.Address]struct{}{}
	var res []types.Address
	for id := range bd {
		if _, ok := seen[id.Validator]; ok {
			continue
		}
		seen[id.Validator] = struct{}{}
		res = append(res, id.Validator)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].String() < res[j].String() })
	return res
}

// GetSupplies returns total supply of the tokens and the part of it held
// in the shielded pool.
func GetSupplies(ctx context.Context, q chain.BalanceQuerier, tokens []NamedAddress) ([]TokenSupply, error) {
	res := make([]TokenSupply, len(tokens))
	for i, t := range tokens {
		s, err := q.GetTotalSupply(ctx, t.Address)
		if err != nil {
			return nil, fmt.Errorf("querying supply of %s: %w", t.Name, err)
		}
		shielded, err := q.GetTokenBalance(ctx, t.Address, types.MASPAddress)
		if err != nil {
			return nil, fmt.Errorf("querying shielded balance of %s: %w", t.Name, err)
		}
		res[i] = TokenSupply{Name: t.Name, Token: t.Address, Supply: s, Shielded: shielded}
	}
	return res, nil
}

/*
GetTopValidators returns "n" consensus validators with the most stake,
largest first, with their share of the consensus stake. Validators with
equal stake are ordered by address. Missing metadata is not an error, the
name is then left empty.
*/
func GetTopValidators(ctx context.Context, q ValidatorSetQuerier, n int) (*TopValidators, error) {
	if n <= 0 {
		return nil, errors.New("number of validators must be positive")
	}
	epoch, err := q.QueryEpoch(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying epoch: %w", err)
	}
	set, err := q.GetConsensusValidators(ctx, epoch)
	if err != nil {
		return nil, fmt.Errorf("querying consensus validators: %w", err)
	}
	sort.Slice(set, func(i, j int) bool {
		if c := set[i].BondedStake.Cmp(set[j].BondedStake); c != 0 {
			return c > 0
		}
		return set[i].Address.String() < set[j].Address.String()
	})

	res := &TopValidators{Epoch: epoch, Consensus: len(set)}
	for _, v := range set {
		if res.TotalStake, err = res.TotalStake.Add(v.BondedStake); err != nil {
			return nil, fmt.Errorf("summing consensus stake: %w", err)
		}
	}
	if len(set) > n {
		set = set[:n]
	}
	var cumulative types.Amount
	for _, v := range set {
		vs := ValidatorStake{Address: v.Address, BondedStake: v.BondedStake}
		if cumulative, err = cumulative.Add(v.BondedStake); err != nil {
			return nil, err
		}
		if vs.Share, err = ledger.Ratio(v.BondedStake, res.TotalStake); err != nil {
			return nil, fmt.Errorf("voting power of %s: %w", v.Address, err)
		}
		if vs.CumulativeShare, err = ledger.Ratio(cumulative, res.TotalStake); err != nil {
			return nil, fmt.Errorf("voting power of %s: %w", v.Address, err)
		}
		md, err := q.GetValidatorMetadata(ctx, v.Address, epoch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
		} else if md != nil {
			vs.Name = md.Name
		}
		res.Validators = append(res.Validators, vs)
	}
	return res, nil
}
