/*
Package chain defines the chain query service the audit and disbursement
code depends on and the wire format of its REST API.
*/
package chain

import (
	"context"

	"github.com/namada-utils/stakeaudit/types"
)

type (
	StakeQuerier interface {
		QueryEpoch(ctx context.Context) (types.Epoch, error)
		// GetBondDetail returns bonds and unbonds of the "source" at "epoch",
		// an address without bonds has empty (not nil) detail.
		GetBondDetail(ctx context.Context, source types.Address, epoch types.Epoch) (types.BondDetail, error)
		GetTotalStaked(ctx context.Context, epoch types.Epoch) (types.Amount, error)
	}

	BalanceQuerier interface {
		GetTokenBalance(ctx context.Context, token, owner types.Address) (types.Amount, error)
		GetTotalSupply(ctx context.Context, token types.Address) (types.Amount, error)
	}

	InfoQuerier interface {
		QueryLastBlock(ctx context.Context) (*types.BlockInfo, error)
		GetRewardsRates(ctx context.Context) (*types.RewardsRates, error)
	}

	ValidatorQuerier interface {
		// GetConsensusValidators returns the consensus validator set at "epoch", in no particular order.
		GetConsensusValidators(ctx context.Context, epoch types.Epoch) ([]types.WeightedValidator, error)
		GetValidatorMetadata(ctx context.Context, validator types.Address, epoch types.Epoch) (*types.ValidatorMetadata, error)
	}

	RewardsQuerier interface {
		// GetRewards returns unclaimed rewards of the bond of "source" to "validator".
		GetRewards(ctx context.Context, source, validator types.Address) (types.Amount, error)
	}

	Submitter interface {
		// SubmitTransfer sends the batch to the chain and waits for the verdict.
		// Error is returned when the verdict couldn't be obtained, rejection
		// by the chain is reported by the receipt.
		SubmitTransfer(ctx context.Context, tx *types.SignedBatchTransfer) (*types.Receipt, error)
	}

	QueryService interface {
		StakeQuerier
		BalanceQuerier
		InfoQuerier
		ValidatorQuerier
		RewardsQuerier
		Submitter
	}
)
