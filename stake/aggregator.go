/*
Package stake computes bonded stake of genesis accounts: the active bonded
amount of single addresses, totals of allocation categories and the part of
it delegated to the roster validators.
*/
package stake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/namada-utils/stakeaudit/chain"
	"github.com/namada-utils/stakeaudit/logger"
	"github.com/namada-utils/stakeaudit/types"
)

const DefaultConcurrency = 8

// FailurePolicy decides what happens to a category aggregation when the
// bond query of some address fails. Failed queries are never retried.
type FailurePolicy int

const (
	// FailFast aborts the whole category on the first failed query.
	FailFast FailurePolicy = iota
	// SkipUnreachable leaves the failed address out, the result is marked partial.
	SkipUnreachable
)

func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "abort"
	case SkipUnreachable:
		return "skip"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort", "fail-fast", "failfast", "":
		return FailFast, nil
	case "skip", "skip-unreachable":
		return SkipUnreachable, nil
	default:
		return 0, fmt.Errorf("%w: unknown query failure policy %q, expected abort or skip", types.ErrParse, s)
	}
}

type (
	Aggregator struct {
		querier     chain.StakeQuerier
		roster      *Roster
		policy      FailurePolicy
		concurrency int
		log         *slog.Logger
	}

	Option func(*Aggregator)

	// AddressStake is the active bonded stake of one address. ByValidator has
	// an entry for every roster name, zero when the address has no bond to it.
	AddressStake struct {
		Address     types.Address
		Active      types.Amount
		ByValidator map[string]types.Amount
	}

	SkippedAddress struct {
		Address types.Address
		Err     error
	}

	// CategoryStake is the aggregated stake of an allocation category.
	CategoryStake struct {
		Category types.Category
		Epoch    types.Epoch
		Total    types.Amount
		Roster   map[string]types.Amount
		// Addresses holds stake of every successfully queried address in
		// input order.
		Addresses []*AddressStake
		Partial   bool
		Skipped   []SkippedAddress
	}
)

func WithFailurePolicy(p FailurePolicy) Option {
	return func(a *Aggregator) {
		a.policy = p
	}
}

// WithConcurrency limits the number of bond queries in flight.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(a *Aggregator) {
		a.log = log
	}
}

func NewAggregator(querier chain.StakeQuerier, roster *Roster, opts ...Option) *Aggregator {
	a := &Aggregator{
		querier:     querier,
		roster:      roster,
		policy:      FailFast,
		concurrency: DefaultConcurrency,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Roster() *Roster { return a.roster }

/*
BondedStake returns the active bonded stake of "addr" at "epoch" and its
contribution to each roster validator.
*/
func (a *Aggregator) BondedStake(ctx context.Context, addr types.Address, epoch types.Epoch) (*AddressStake, error) {
	bd, err := a.querier.GetBondDetail(ctx, addr, epoch)
	if err != nil {
		if !errors.Is(err, types.ErrQuery) {
			err = fmt.Errorf("%w: %w", types.ErrQuery, err)
		}
		return nil, fmt.Errorf("querying bonds of %s: %w", addr, err)
	}
	active, err := bd.TotalActive(epoch)
	if err != nil {
		return nil, fmt.Errorf("active bonds of %s: %w", addr, err)
	}
	res := &AddressStake{
		Address:     addr,
		Active:      active,
		ByValidator: make(map[string]types.Amount, a.roster.Len()),
	}
	for _, e := range a.roster.entries {
		entry, ok := bd[types.BondID{Source: addr, Validator: e.Validator}]
		if !ok {
			res.ByValidator[e.Name] = types.Amount{}
			continue
		}
		amount, err := entry.Active(epoch)
		if err != nil {
			return nil, fmt.Errorf("bond of %s to %s: %w", addr, e.Name, err)
		}
		res.ByValidator[e.Name] = amount
	}
	return res, nil
}

/*
AggregateCategory queries stake of all the addresses concurrently and, once
every query has finished, reduces the results into category totals.
Duplicate addresses are rejected before any query is made. Cancellation of
"ctx" fails the aggregation regardless of the failure policy.
*/
func (a *Aggregator) AggregateCategory(ctx context.Context, category types.Category, addrs []types.Address, epoch types.Epoch) (*CategoryStake, error) {
	seen := make(map[types.Address]int, len(addrs))
	for i, addr := range addrs {
		if j, ok := seen[addr]; ok {
			return nil, fmt.Errorf("%w: %s: address %s listed twice (items %d and %d)", types.ErrManifest, category, addr, j, i)
		}
		seen[addr] = i
	}

	log := a.log.With(logger.Category(category), logger.Epoch(uint64(epoch)))
	log.DebugContext(ctx, fmt.Sprintf("querying stake of %d addresses", len(addrs)))

	results := make([]*AddressStake, len(addrs))
	failures := make([]error, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			res, err := a.BondedStake(gctx, addr, epoch)
			if err != nil {
				// cancellation of the audit is never a reason to skip an address
				if a.policy == FailFast || ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return fmt.Errorf("%s: %w", category, err)
				}
				log.WarnContext(gctx, "skipping address, stake query failed", logger.Address(addr), logger.Error(err))
				failures[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", category, err)
	}

	cs := &CategoryStake{Category: category, Epoch: epoch}
	for i, res := range results {
		if res == nil {
			cs.Skipped = append(cs.Skipped, SkippedAddress{Address: addrs[i], Err: failures[i]})
			continue
		}
		cs.Addresses = append(cs.Addresses, res)
	}
	cs.Partial = len(cs.Skipped) > 0

	var err error
	if cs.Total, err = CategoryTotals(cs.Addresses); err != nil {
		return nil, fmt.Errorf("%s: %w", category, err)
	}
	if cs.Roster, err = RosterTotals(a.roster, cs.Addresses); err != nil {
		return nil, fmt.Errorf("%s: %w", category, err)
	}
	log.DebugContext(ctx, fmt.Sprintf("category stake %s", cs.Total), slog.Bool("partial", cs.Partial))
	return cs, nil
}
