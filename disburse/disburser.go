package disburse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/namada-utils/stakeaudit/chain"
	"github.com/namada-utils/stakeaudit/logger"
	"github.com/namada-utils/stakeaudit/observability"
	"github.com/namada-utils/stakeaudit/types"
)

// ErrAlreadySubmitted is returned when identical batch has been submitted
// before and its outcome was not a rejection.
var ErrAlreadySubmitted = fmt.Errorf("%w: batch already submitted", types.ErrSubmission)

type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	// the submission call failed, the chain may or may not have applied the batch
	OutcomeUnknown Outcome = "unknown"
)

type (
	Chain interface {
		chain.BalanceQuerier
		chain.Submitter
	}

	// SubmissionRecord describes a submitted batch.
	SubmissionRecord struct {
		Digest      hexutil.Bytes `json:"digest"`
		ChainID     string        `json:"chainId"`
		Source      types.Address `json:"source"`
		Token       types.Address `json:"token"`
		Legs        int           `json:"legs"`
		TotalDebit  types.Amount  `json:"totalDebit"`
		Outcome     Outcome       `json:"outcome"`
		TxHash      hexutil.Bytes `json:"txHash,omitempty"`
		Reason      string        `json:"reason,omitempty"`
		SubmittedAt time.Time     `json:"submittedAt"`
	}

	// Journal keeps track of submitted batches.
	Journal interface {
		// Lookup returns nil record when the batch hasn't been submitted.
		Lookup(digest []byte) (*SubmissionRecord, error)
		Record(rec *SubmissionRecord) error
	}

	Plan struct {
		ChainID  string
		Source   types.Address
		Token    types.Address
		FeePayer types.Address
		Targets  []types.TransferTarget
		Memo     string
		// DryRun builds the batch but doesn't sign nor submit it.
		DryRun bool
		// Force submits even when the journal has the batch as submitted.
		Force bool
		// Snapshot queries target balances before submission so that the
		// report contains balance deltas.
		Snapshot bool
	}

	Result struct {
		Transfer   *types.UnsignedBatchTransfer
		TotalDebit types.Amount
		Digest     []byte
		Receipt    *types.Receipt
		Balances   []TargetBalance
	}

	Disburser struct {
		chain   Chain
		signer  Signer
		journal Journal
		metrics *observability.Metrics
		log     *slog.Logger
		now     func() time.Time
	}

	DisburserOption func(*Disburser)
)

func WithJournal(j Journal) DisburserOption {
	return func(d *Disburser) {
		d.journal = j
	}
}

func WithMetrics(m *observability.Metrics) DisburserOption {
	return func(d *Disburser) {
		d.metrics = m
	}
}

func WithLogger(log *slog.Logger) DisburserOption {
	return func(d *Disburser) {
		d.log = log
	}
}

func NewDisburser(c Chain, signer Signer, opts ...DisburserOption) *Disburser {
	d := &Disburser{
		chain:  c,
		signer: signer,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

/*
Run builds the batch of the plan, signs it, submits it and reports the
balances of the targets.

When the submission fails the returned result still carries the batch and
its digest (and the receipt when the chain rejected the batch).
*/
func (d *Disburser) Run(ctx context.Context, plan *Plan) (*Result, error) {
	tx, err := Build(plan.ChainID, plan.Targets, plan.Source, plan.Token, plan.FeePayer)
	if err != nil {
		return nil, err
	}
	tx.Memo = plan.Memo
	res := &Result{Transfer: tx}
	if res.TotalDebit, err = tx.TotalDebit(plan.Source); err != nil {
		return nil, err
	}
	if res.Digest, err = BatchDigest(tx); err != nil {
		return nil, fmt.Errorf("batch digest: %w", err)
	}
	log := d.log.With(slog.String("digest", hexutil.Encode(res.Digest)))
	log.InfoContext(ctx, fmt.Sprintf("built batch of %d legs, total debit %s", len(tx.Legs), res.TotalDebit), logger.Address(plan.Source))
	if plan.DryRun {
		return res, nil
	}

	if err := d.checkJournal(res.Digest, plan.Force); err != nil {
		return res, err
	}

	signed, err := Sign(tx, d.signer)
	if err != nil {
		return res, err
	}

	var before map[types.Address]types.Amount
	if plan.Snapshot {
		if before, err = snapshot(ctx, d.chain, plan.Token, plan.Targets); err != nil {
			return res, fmt.Errorf("balance snapshot: %w", err)
		}
	}

	rec := &SubmissionRecord{
		Digest:     res.Digest,
		ChainID:    tx.ChainID,
		Source:     plan.Source,
		Token:      plan.Token,
		Legs:       len(tx.Legs),
		TotalDebit: res.TotalDebit,
		Outcome:    OutcomeUnknown,
	}
	res.Receipt, err = Submit(ctx, d.chain, signed)
	rec.SubmittedAt = d.now()
	switch {
	case res.Receipt == nil:
	case res.Receipt.Accepted:
		rec.Outcome, rec.TxHash = OutcomeAccepted, res.Receipt.TxHash
		d.metrics.LegsSubmitted(len(tx.Legs))
	default:
		rec.Outcome, rec.Reason = OutcomeRejected, res.Receipt.Reason
	}
	if jerr := d.record(rec); jerr != nil {
		log.ErrorContext(ctx, "failed to record submission in the journal", logger.Error(jerr))
	}
	if err != nil {
		return res, err
	}
	log.InfoContext(ctx, "batch accepted", slog.String("tx", hexutil.Encode(res.Receipt.TxHash)))

	res.Balances = Report(ctx, d.chain, plan.Token, plan.Targets, log)
	for i := range res.Balances {
		if b, ok := before[res.Balances[i].Target.Destination]; ok {
			res.Balances[i].Before = &b
		}
	}
	return res, nil
}

func (d *Disburser) checkJournal(digest []byte, force bool) error {
	if d.journal == nil {
		return nil
	}
	prev, err := d.journal.Lookup(digest)
	if err != nil {
		return fmt.Errorf("journal lookup: %w", err)
	}
	if prev == nil || prev.Outcome == OutcomeRejected {
		return nil
	}
	if force {
		d.log.Warn(fmt.Sprintf("batch was submitted at %s (outcome %s), submitting again", prev.SubmittedAt.Format(time.RFC3339), prev.Outcome))
		return nil
	}
	return fmt.Errorf("%w at %s with outcome %q", ErrAlreadySubmitted, prev.SubmittedAt.Format(time.RFC3339), prev.Outcome)
}

func (d *Disburser) record(rec *SubmissionRecord) error {
	if d.journal == nil {
		return nil
	}
	return d.journal.Record(rec)
}

// IsUnknownOutcome reports whether the error leaves it unknown whether the
// chain applied the batch.
func IsUnknownOutcome(err error) bool {
	return errors.Is(err, types.ErrQuery)
}
