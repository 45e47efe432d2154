/*
Package testchain provides in-memory implementation of the chain query
service for tests, plus a REST server exposing it.
*/
package testchain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/namada-utils/stakeaudit/types"
)

type balanceKey struct {
	token, owner types.Address
}

type Chain struct {
	mu          sync.Mutex
	epoch       types.Epoch
	bonds       map[types.Address]types.BondDetail
	totalStaked *types.Amount
	balances    map[balanceKey]types.Amount
	supply      map[types.Address]types.Amount
	rewards     map[types.BondID]types.Amount
	metadata    map[types.Address]types.ValidatorMetadata
	lastBlock   *types.BlockInfo
	rates       *types.RewardsRates
	failures    map[types.Address]error
	submitErr   error
	submitted   []*types.SignedBatchTransfer
	verify      func(*types.SignedBatchTransfer) error

	bondQueries    atomic.Int64
	balanceQueries atomic.Int64
	submits        atomic.Int64
}

func New() *Chain {
	return &Chain{
		bonds:    map[types.Address]types.BondDetail{},
		balances: map[balanceKey]types.Amount{},
		supply:   map[types.Address]types.Amount{},
		failures: map[types.Address]error{},
		rewards:  map[types.BondID]types.Amount{},
		metadata: map[types.Address]types.ValidatorMetadata{},
	}
}

func (c *Chain) SetEpoch(e types.Epoch) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch = e
	return c
}

// AddBond adds active bond of "amount" from "source" to "validator".
func (c *Chain) AddBond(source, validator types.Address, amount uint64) *Chain {
	return c.addBondSlice(source, validator, types.BondSlice{Amount: types.NewAmount(amount), Start: c.epoch})
}

func (c *Chain) AddSlashedBond(source, validator types.Address, amount, slashed uint64) *Chain {
	return c.addBondSlice(source, validator, types.BondSlice{Amount: types.NewAmount(amount), Slashed: types.NewAmount(slashed), Start: c.epoch})
}

func (c *Chain) AddUnbond(source, validator types.Address, amount uint64) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := types.BondID{Source: source, Validator: validator}
	entry := c.bondDetail(source)[id]
	entry.Unbonds = append(entry.Unbonds, types.UnbondSlice{Amount: types.NewAmount(amount), Start: c.epoch, Withdraw: c.epoch + 2})
	c.bonds[source][id] = entry
	return c
}

func (c *Chain) addBondSlice(source, validator types.Address, slice types.BondSlice) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := types.BondID{Source: source, Validator: validator}
	entry := c.bondDetail(source)[id]
	entry.Bonds = append(entry.Bonds, slice)
	c.bonds[source][id] = entry
	return c
}

func (c *Chain) bondDetail(source types.Address) types.BondDetail {
	bd, ok := c.bonds[source]
	if !ok {
		bd = types.BondDetail{}
		c.bonds[source] = bd
	}
	return bd
}

// SetTotalStaked overrides the total stake, by default it is the sum of all active bonds.
func (c *Chain) SetTotalStaked(amount types.Amount) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalStaked = &amount
	return c
}

func (c *Chain) SetBalance(token, owner types.Address, amount uint64) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[balanceKey{token, owner}] = types.NewAmount(amount)
	return c
}

func (c *Chain) SetTotalSupply(token types.Address, amount types.Amount) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supply[token] = amount
	return c
}

func (c *Chain) SetRewards(source, validator types.Address, amount uint64) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rewards[types.BondID{Source: source, Validator: validator}] = types.NewAmount(amount)
	return c
}

func (c *Chain) SetValidatorMetadata(validator types.Address, md types.ValidatorMetadata) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[validator] = md
	return c
}

func (c *Chain) SetLastBlock(height uint64, t time.Time) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastBlock = &types.BlockInfo{Height: height, Time: t}
	return c
}

func (c *Chain) SetRewardsRates(stakingRewards, inflation types.Dec) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = &types.RewardsRates{StakingRewardsRate: stakingRewards, InflationRate: inflation}
	return c
}

// FailQueriesOf makes every query about "addr" (bonds, balance, rewards or
// validator metadata) fail with "err".
func (c *Chain) FailQueriesOf(addr types.Address, err error) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[addr] = err
	return c
}

func (c *Chain) FailSubmit(err error) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitErr = err
	return c
}

// VerifyWith sets func used to verify signature of submitted batches.
func (c *Chain) VerifyWith(f func(*types.SignedBatchTransfer) error) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verify = f
	return c
}

func (c *Chain) BondQueries() int64    { return c.bondQueries.Load() }
func (c *Chain) BalanceQueries() int64 { return c.balanceQueries.Load() }
func (c *Chain) Submits() int64        { return c.submits.Load() }

func (c *Chain) Submitted() []*types.SignedBatchTransfer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.SignedBatchTransfer(nil), c.submitted...)
}

func (c *Chain) QueryEpoch(ctx context.Context) (types.Epoch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch, nil
}

func (c *Chain) GetBondDetail(ctx context.Context, source types.Address, epoch types.Epoch) (types.BondDetail, error) {
	c.bondQueries.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[source]; err != nil {
		return nil, fmt.Errorf("%w: bonds of %s: %w", types.ErrQuery, source, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrQuery, err)
	}
	bd := types.BondDetail{}
	for id, entry := range c.bonds[source] {
		bd[id] = entry
	}
	return bd, nil
}

func (c *Chain) GetTotalStaked(ctx context.Context, epoch types.Epoch) (types.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.totalStaked != nil {
		return *c.totalStaked, nil
	}
	var total types.Amount
	for _, bd := range c.bonds {
		active, err := bd.TotalActive(epoch)
		if err != nil {
			return types.Amount{}, err
		}
		if total, err = total.Add(active); err != nil {
			return types.Amount{}, err
		}
	}
	return total, nil
}

func (c *Chain) GetTokenBalance(ctx context.Context, token, owner types.Address) (types.Amount, error) {
	c.balanceQueries.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[owner]; err != nil {
		return types.Amount{}, fmt.Errorf("%w: balance of %s: %w", types.ErrQuery, owner, err)
	}
	return c.balances[balanceKey{token, owner}], nil
}

func (c *Chain) GetTotalSupply(ctx context.Context, token types.Address) (types.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.supply[token]; ok {
		return s, nil
	}
	var total types.Amount
	for k, v := range c.balances {
		if k.token == token {
			var err error
			if total, err = total.Add(v); err != nil {
				return types.Amount{}, err
			}
		}
	}
	return total, nil
}

func (c *Chain) QueryLastBlock(ctx context.Context) (*types.BlockInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastBlock == nil {
		return nil, fmt.Errorf("%w: no blocks yet", types.ErrQuery)
	}
	b := *c.lastBlock
	return &b, nil
}

func (c *Chain) GetRewardsRates(ctx context.Context) (*types.RewardsRates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rates == nil {
		return nil, fmt.Errorf("%w: rewards rates not available", types.ErrQuery)
	}
	r := *c.rates
	return &r, nil
}

func (c *Chain) GetRewards(ctx context.Context, source, validator types.Address) (types.Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[source]; err != nil {
		return types.Amount{}, fmt.Errorf("%w: rewards of %s: %w", types.ErrQuery, source, err)
	}
	return c.rewards[types.BondID{Source: source, Validator: validator}], nil
}

// GetConsensusValidators returns every validator having active bonds at
// "epoch", stake of a validator is the sum of the bonds to it.
func (c *Chain) GetConsensusValidators(ctx context.Context, epoch types.Epoch) ([]types.WeightedValidator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stakes := map[types.Address]types.Amount{}
	for _, bd := range c.bonds {
		for id, entry := range bd {
			active, err := entry.Active(epoch)
			if err != nil {
				return nil, err
			}
			if active.IsZero() {
				continue
			}
			if stakes[id.Validator], err = stakes[id.Validator].Add(active); err != nil {
				return nil, err
			}
		}
	}
	res := make([]types.WeightedValidator, 0, len(stakes))
	for addr, stake := range stakes {
		res = append(res, types.WeightedValidator{Address: addr, BondedStake: stake})
	}
	return res, nil
}

func (c *Chain) GetValidatorMetadata(ctx context.Context, validator types.Address, epoch types.Epoch) (*types.ValidatorMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[validator]; err != nil {
		return nil, fmt.Errorf("%w: metadata of %s: %w", types.ErrQuery, validator, err)
	}
	md := c.metadata[validator]
	return &md, nil
}

/*
SubmitTransfer applies all legs of the batch or none of them. The batch is
rejected when some leg would overdraw the source balance.
*/
func (c *Chain) SubmitTransfer(ctx context.Context, tx *types.SignedBatchTransfer) (*types.Receipt, error) {
	c.submits.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrQuery, c.submitErr)
	}
	c.submitted = append(c.submitted, tx)

	if c.verify != nil {
		if err := c.verify(tx); err != nil {
			return &types.Receipt{Accepted: false, Reason: fmt.Sprintf("invalid signature: %v", err)}, nil
		}
	}

	staged := map[balanceKey]types.Amount{}
	get := func(k balanceKey) types.Amount {
		if v, ok := staged[k]; ok {
			return v
		}
		return c.balances[k]
	}
	rec := &types.Receipt{Accepted: true, LegStatus: make([]types.LegStatus, len(tx.Transfer.Legs))}
	for i, leg := range tx.Transfer.Legs {
		rec.LegStatus[i] = types.LegStatus{Index: i, Accepted: true}
		from := balanceKey{leg.Token, leg.Source}
		to := balanceKey{leg.Token, leg.Destination}
		fromBal, err := get(from).Sub(leg.Amount)
		if err != nil {
			rec.Accepted = false
			rec.Reason = fmt.Sprintf("leg %d: insufficient balance", i)
			rec.LegStatus[i] = types.LegStatus{Index: i, Accepted: false, Reason: "insufficient balance"}
			continue
		}
		staged[from] = fromBal
		toBal, err := get(to).Add(leg.Amount)
		if err != nil {
			rec.Accepted = false
			rec.Reason = fmt.Sprintf("leg %d: %v", i, err)
			rec.LegStatus[i] = types.LegStatus{Index: i, Accepted: false, Reason: err.Error()}
			continue
		}
		staged[to] = toBal
	}
	if rec.Accepted {
		for k, v := range staged {
			c.balances[k] = v
		}
		rec.TxHash = []byte(fmt.Sprintf("tx-%d", len(c.submitted)))
	}
	return rec, nil
}
