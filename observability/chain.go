package observability

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/namada-utils/stakeaudit/logger"
	"github.com/namada-utils/stakeaudit/types"
)

type (
	ChainStateQuerier interface {
		QueryEpoch(ctx context.Context) (types.Epoch, error)
		GetTotalStaked(ctx context.Context, epoch types.Epoch) (types.Amount, error)
		GetTokenBalance(ctx context.Context, token, owner types.Address) (types.Amount, error)
		GetTotalSupply(ctx context.Context, token types.Address) (types.Amount, error)
		QueryLastBlock(ctx context.Context) (*types.BlockInfo, error)
	}

	Token struct {
		Name    string
		Address types.Address
	}

	/*
	ChainCollector queries the chain on every scrape and exports the staking
	state and the token supplies as gauges. Amounts are exported in whole
	tokens.
	*/
	ChainCollector struct {
		querier  ChainStateQuerier
		native   types.Address
		tokens   []Token
		decimals uint32
		timeout  time.Duration
		log      *slog.Logger

		epoch       *prometheus.Desc
		totalStaked *prometheus.Desc
		stakedRatio *prometheus.Desc
		blockHeight *prometheus.Desc
		supply      *prometheus.Desc
		shielded    *prometheus.Desc
	}
)

// NewChainCollector returns collector of the chain state, "tokens" must
// include the native token.
func NewChainCollector(q ChainStateQuerier, native types.Address, tokens []Token, decimals uint32, timeout time.Duration, log *slog.Logger) *ChainCollector {
	return &ChainCollector{
		querier:     q,
		native:      native,
		tokens:      tokens,
		decimals:    decimals,
		timeout:     timeout,
		log:         log,
		epoch:       prometheus.NewDesc(prometheus.BuildFQName(namespace, "chain", "epoch"), "Current epoch of the chain.", nil, nil),
		totalStaked: prometheus.NewDesc(prometheus.BuildFQName(namespace, "chain", "total_staked"), "Total active stake at the current epoch.", nil, nil),
		stakedRatio: prometheus.NewDesc(prometheus.BuildFQName(namespace, "chain", "staked_ratio"), "Total stake divided by the native token supply.", nil, nil),
		blockHeight: prometheus.NewDesc(prometheus.BuildFQName(namespace, "chain", "last_block_height"), "Height of the last committed block.", nil, nil),
		supply:      prometheus.NewDesc(prometheus.BuildFQName(namespace, "token", "supply"), "Total supply of the token.", []string{"token"}, nil),
		shielded:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "token", "shielded"), "Balance of the token in the shielded pool.", []string{"token"}, nil),
	}
}

func (c *ChainCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.epoch
	ch <- c.totalStaked
	ch <- c.stakedRatio
	ch <- c.blockHeight
	ch <- c.supply
	ch <- c.shielded
}

// Collect exports what could be queried, failed queries are reported as
// invalid metrics.
func (c *ChainCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	epoch, err := c.querier.QueryEpoch(ctx)
	if err != nil {
		c.invalid(ctx, ch, c.epoch, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.epoch, prometheus.GaugeValue, float64(epoch))

	staked, err := c.querier.GetTotalStaked(ctx, epoch)
	haveStake := err == nil
	if err != nil {
		c.invalid(ctx, ch, c.totalStaked, err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.totalStaked, prometheus.GaugeValue, c.float(staked))
	}

	if b, err := c.querier.QueryLastBlock(ctx); err != nil {
		c.invalid(ctx, ch, c.blockHeight, err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.blockHeight, prometheus.GaugeValue, float64(b.Height))
	}

	for _, t := range c.tokens {
		supply, err := c.querier.GetTotalSupply(ctx, t.Address)
		if err != nil {
			c.invalid(ctx, ch, c.supply, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.supply, prometheus.GaugeValue, c.float(supply), t.Name)
		if t.Address == c.native && haveStake && !supply.IsZero() {
			ratio, err := types.QuoAmounts(staked, supply)
			if err != nil {
				c.invalid(ctx, ch, c.stakedRatio, err)
			} else {
				ch <- prometheus.MustNewConstMetric(c.stakedRatio, prometheus.GaugeValue, decFloat(ratio))
			}
		}

		shielded, err := c.querier.GetTokenBalance(ctx, t.Address, types.MASPAddress)
		if err != nil {
			c.invalid(ctx, ch, c.shielded, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.shielded, prometheus.GaugeValue, c.float(shielded), t.Name)
	}
}

func (c *ChainCollector) invalid(ctx context.Context, ch chan<- prometheus.Metric, desc *prometheus.Desc, err error) {
	c.log.WarnContext(ctx, "collecting chain metrics", logger.Error(err))
	ch <- prometheus.NewInvalidMetric(desc, err)
}

func (c *ChainCollector) float(a types.Amount) float64 {
	f := new(big.Float).SetInt(a.Int().ToBig())
	if c.decimals > 0 {
		f.Quo(f, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(c.decimals)), nil)))
	}
	v, _ := f.Float64()
	return v
}

func decFloat(d types.Dec) float64 {
	f, _, err := big.ParseFloat(d.String(), 10, 64, big.ToNearestEven)
	if err != nil {
		return 0
	}
	v, _ := f.Float64()
	return v
}
