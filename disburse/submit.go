package disburse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/namada-utils/stakeaudit/chain"
	"github.com/namada-utils/stakeaudit/logger"
	"github.com/namada-utils/stakeaudit/types"
)

/*
Submit sends the signed batch to the chain in a single blocking call. The
chain applies all legs or none of them. When the chain rejects the batch
the receipt is returned together with an error wrapping types.ErrRejected.
*/
func Submit(ctx context.Context, submitter chain.Submitter, tx *types.SignedBatchTransfer) (*types.Receipt, error) {
	rec, err := submitter.SubmitTransfer(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("submitting batch transfer: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: chain returned no receipt", types.ErrQuery)
	}
	if !rec.Accepted {
		return rec, fmt.Errorf("%w: %s", types.ErrRejected, rec.Reason)
	}
	return rec, nil
}

// TargetBalance is the balance of a disbursement target observed after the
// submission. Err is set when the balance couldn't be queried.
type TargetBalance struct {
	Target  types.TransferTarget
	Balance types.Amount
	// Before is the balance observed before the submission, nil when no
	// snapshot was taken.
	Before *types.Amount
	Err    error
}

// Delta returns the change of the balance, ok is false when it is unknown
// or the balance decreased.
func (tb TargetBalance) Delta() (types.Amount, bool) {
	if tb.Err != nil || tb.Before == nil {
		return types.Amount{}, false
	}
	d, err := tb.Balance.Sub(*tb.Before)
	if err != nil {
		return types.Amount{}, false
	}
	return d, true
}

/*
Report queries the token balance of every target. It is observational: a
failed lookup is logged and stored in the entry of that target, the rest
of the targets are still queried.
*/
func Report(ctx context.Context, balances chain.BalanceQuerier, token types.Address, targets []types.TransferTarget, log *slog.Logger) []TargetBalance {
	res := make([]TargetBalance, len(targets))
	for i, t := range targets {
		res[i].Target = t
		b, err := balances.GetTokenBalance(ctx, token, t.Destination)
		if err != nil {
			log.WarnContext(ctx, "failed to query balance of the target", logger.Address(t.Destination), logger.Error(err))
			res[i].Err = err
			continue
		}
		res[i].Balance = b
	}
	return res
}

// snapshot returns balances of the targets, any failure is an error.
func snapshot(ctx context.Context, balances chain.BalanceQuerier, token types.Address, targets []types.TransferTarget) (map[types.Address]types.Amount, error) {
	m := make(map[types.Address]types.Amount, len(targets))
	for _, t := range targets {
		if _, ok := m[t.Destination]; ok {
			continue
		}
		b, err := balances.GetTokenBalance(ctx, token, t.Destination)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", t.Destination, err)
		}
		m[t.Destination] = b
	}
	return m, nil
}
