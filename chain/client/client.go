package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/namada-utils/stakeaudit/chain"
	"github.com/namada-utils/stakeaudit/logger"
	"github.com/namada-utils/stakeaudit/observability"
	"github.com/namada-utils/stakeaudit/types"
)

const (
	DefaultTimeout = 30 * time.Second

	defaultScheme = "http://"
	// max number of bytes of error response body included into error message
	maxErrorBody = 512
)

/*
ChainClient is REST client of the chain query service.

Every request is bounded by the client timeout. Failed requests are not
retried, the epoch may change between attempts and mixing data from
different epochs would make the audit results meaningless.
*/
type ChainClient struct {
	BaseUrl    *url.URL
	HttpClient http.Client

	timeout time.Duration
	metrics *observability.Metrics
	log     *slog.Logger

	epochURL       *url.URL
	bondsURL       *url.URL
	totalStakedURL *url.URL
	balanceURL     *url.URL
	totalSupplyURL *url.URL
	transfersURL   *url.URL
	lastBlockURL   *url.URL
	ratesURL       *url.URL
	rewardsURL     *url.URL
	validatorsURL  *url.URL
}

type Option func(*ChainClient)

// WithTimeout sets the timeout of a single request.
func WithTimeout(d time.Duration) Option {
	return func(c *ChainClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *ChainClient) {
		c.metrics = m
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *ChainClient) {
		c.log = log
	}
}

func New(baseUrl string, opts ...Option) (*ChainClient, error) {
	if !strings.HasPrefix(baseUrl, "http://") && !strings.HasPrefix(baseUrl, "https://") {
		baseUrl = defaultScheme + baseUrl
	}
	u, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("error parsing chain client base URL (%s): %w", baseUrl, err)
	}
	c := &ChainClient{
		BaseUrl:        u,
		timeout:        DefaultTimeout,
		log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		epochURL:       u.JoinPath(chain.EpochPath),
		bondsURL:       u.JoinPath(chain.BondsPath),
		totalStakedURL: u.JoinPath(chain.TotalStakedPath),
		balanceURL:     u.JoinPath(chain.BalancePath),
		totalSupplyURL: u.JoinPath(chain.TotalSupplyPath),
		transfersURL:   u.JoinPath(chain.TransfersPath),
		lastBlockURL:   u.JoinPath(chain.LastBlockPath),
		ratesURL:       u.JoinPath(chain.RatesPath),
		rewardsURL:     u.JoinPath(chain.RewardsPath),
		validatorsURL:  u.JoinPath(chain.ValidatorsPath),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.HttpClient = http.Client{Timeout: c.timeout}
	return c, nil
}

func (c *ChainClient) QueryEpoch(ctx context.Context) (types.Epoch, error) {
	var res chain.EpochResponse
	if err := c.get(ctx, "epoch", c.epochURL, &res); err != nil {
		return 0, err
	}
	return res.Epoch, nil
}

func (c *ChainClient) GetBondDetail(ctx context.Context, source types.Address, epoch types.Epoch) (types.BondDetail, error) {
	u := c.bondsURL.JoinPath(source.String())
	setEpoch(u, epoch)
	var res chain.BondsResponse
	if err := c.get(ctx, "bonds", u, &res); err != nil {
		return nil, err
	}
	bd, err := res.BondDetail()
	if err != nil {
		return nil, fmt.Errorf("%w: bonds of %s: %w", types.ErrQuery, source, err)
	}
	for id := range bd {
		if id.Source != source {
			return nil, fmt.Errorf("%w: bonds of %s: response contains bond of %s", types.ErrQuery, source, id.Source)
		}
	}
	return bd, nil
}

func (c *ChainClient) GetTotalStaked(ctx context.Context, epoch types.Epoch) (types.Amount, error) {
	u := *c.totalStakedURL
	setEpoch(&u, epoch)
	var res chain.AmountResponse
	if err := c.get(ctx, "total-staked", &u, &res); err != nil {
		return types.Amount{}, err
	}
	return res.Amount, nil
}

func (c *ChainClient) GetTokenBalance(ctx context.Context, token, owner types.Address) (types.Amount, error) {
	var res chain.AmountResponse
	if err := c.get(ctx, "balance", c.balanceURL.JoinPath(token.String(), owner.String()), &res); err != nil {
		return types.Amount{}, err
	}
	return res.Amount, nil
}

func (c *ChainClient) GetTotalSupply(ctx context.Context, token types.Address) (types.Amount, error) {
	var res chain.AmountResponse
	if err := c.get(ctx, "total-supply", c.totalSupplyURL.JoinPath(token.String()), &res); err != nil {
		return types.Amount{}, err
	}
	return res.Amount, nil
}

func (c *ChainClient) QueryLastBlock(ctx context.Context) (*types.BlockInfo, error) {
	var res types.BlockInfo
	if err := c.get(ctx, "last-block", c.lastBlockURL, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *ChainClient) GetRewardsRates(ctx context.Context) (*types.RewardsRates, error) {
	var res types.RewardsRates
	if err := c.get(ctx, "rewards-rates", c.ratesURL, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *ChainClient) GetRewards(ctx context.Context, source, validator types.Address) (types.Amount, error) {
	var res chain.AmountResponse
	if err := c.get(ctx, "rewards", c.rewardsURL.JoinPath(source.String(), validator.String()), &res); err != nil {
		return types.Amount{}, err
	}
	return res.Amount, nil
}

func (c *ChainClient) GetConsensusValidators(ctx context.Context, epoch types.Epoch) ([]types.WeightedValidator, error) {
	u := c.validatorsURL.JoinPath(chain.ConsensusSegment)
	setEpoch(u, epoch)
	var res chain.ValidatorsResponse
	if err := c.get(ctx, "consensus-validators", u, &res); err != nil {
		return nil, err
	}
	return res.Validators, nil
}

func (c *ChainClient) GetValidatorMetadata(ctx context.Context, validator types.Address, epoch types.Epoch) (*types.ValidatorMetadata, error) {
	u := c.validatorsURL.JoinPath(validator.String(), chain.MetadataSegment)
	setEpoch(u, epoch)
	var res types.ValidatorMetadata
	if err := c.get(ctx, "validator-metadata", u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

/*
SubmitTransfer posts the signed batch and returns the chain's verdict. The
call blocks until the verdict is received or the request times out.
*/
func (c *ChainClient) SubmitTransfer(ctx context.Context, tx *types.SignedBatchTransfer) (rec *types.Receipt, err error) {
	const op = "transfers"
	defer func(start time.Time) { c.metrics.ObserveRequest(op, start, err) }(time.Now())

	b, err := chain.EncodeSignedBatchTransfer(tx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.transfersURL.String(), bytes.NewBuffer(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create submit transfer request: %w", err)
	}
	req.Header.Set(chain.ContentType, chain.ApplicationCbor)
	res, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to submit transfer: %w", types.ErrQuery, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusBadRequest, http.StatusUnprocessableEntity:
		// the chain has made decision about the batch, rejection is described by the receipt
	default:
		return nil, fmt.Errorf("%w: failed to submit transfer: %w", types.ErrQuery, readErrorResponse(res))
	}

	var tr chain.TransferResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode submit transfer response (status %s): %w", types.ErrQuery, res.Status, err)
	}
	c.log.DebugContext(ctx, "batch transfer submitted", slog.Bool("accepted", tr.Accepted), slog.String("reason", tr.Reason))
	return tr.Receipt(), nil
}

func (c *ChainClient) get(ctx context.Context, op string, u *url.URL, response any) (err error) {
	defer func(start time.Time) {
		c.metrics.ObserveRequest(op, start, err)
		if err != nil {
			c.log.DebugContext(ctx, "chain query failed", slog.String("url", u.String()), logger.Error(err))
		}
	}(time.Now())

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: failed to build %s request: %w", types.ErrQuery, op, err)
	}
	req.Header.Set(chain.ContentType, chain.ApplicationJson)
	res, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request %s failed: %w", types.ErrQuery, op, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: request %s failed: %w", types.ErrQuery, op, readErrorResponse(res))
	}
	if err := json.NewDecoder(res.Body).Decode(response); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", types.ErrQuery, op, err)
	}
	return nil
}

func setEpoch(u *url.URL, epoch types.Epoch) {
	q := u.Query()
	q.Set(chain.QueryParamEpoch, strconv.FormatUint(uint64(epoch), 10))
	u.RawQuery = q.Encode()
}

func readErrorResponse(res *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("unexpected response status %s", res.Status)
	}
	var er chain.ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Message != "" {
		return fmt.Errorf("unexpected response status %s: %s", res.Status, er.Message)
	}
	if len(body) > 0 {
		return fmt.Errorf("unexpected response status %s: %s", res.Status, strings.TrimSpace(string(body)))
	}
	return errors.New("unexpected response status " + res.Status)
}
