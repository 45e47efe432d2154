package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/namada-utils/stakeaudit/types"
)

const (
	EpochPath       = "api/v1/epoch"
	BondsPath       = "api/v1/bonds"
	TotalStakedPath = "api/v1/total-staked"
	BalancePath     = "api/v1/balance"
	TotalSupplyPath = "api/v1/total-supply"
	TransfersPath   = "api/v1/transfers"
	LastBlockPath   = "api/v1/last-block"
	RatesPath       = "api/v1/rewards-rates"
	RewardsPath     = "api/v1/rewards"
	ValidatorsPath  = "api/v1/validators"

	ConsensusSegment = "consensus"
	MetadataSegment  = "metadata"

	QueryParamEpoch = "epoch"

	ContentType     = "Content-Type"
	ApplicationJson = "application/json"
	ApplicationCbor = "application/cbor"
)

type (
	EpochResponse struct {
		Epoch types.Epoch `json:"epoch"`
	}

	AmountResponse struct {
		Amount types.Amount `json:"amount"`
	}

	ValidatorsResponse struct {
		Validators []types.WeightedValidator `json:"validators"`
	}

	BondsResponse struct {
		Bonds []*BondRecord `json:"bonds"`
	}

	BondRecord struct {
		Source    types.Address `json:"source"`
		Validator types.Address `json:"validator"`
		types.BondEntry
	}

	TransferResponse struct {
		Accepted bool              `json:"accepted"`
		TxHash   hexutil.Bytes     `json:"txHash,omitempty"`
		Reason   string            `json:"reason,omitempty"`
		Legs     []*LegStatusEntry `json:"legs,omitempty"`
	}

	LegStatusEntry struct {
		Index    int    `json:"index"`
		Accepted bool   `json:"accepted"`
		Reason   string `json:"reason,omitempty"`
	}

	ErrorResponse struct {
		Message string `json:"message"`
	}
)

// BondDetail converts the response into bond detail, duplicate bond
// records are not allowed.
func (r *BondsResponse) BondDetail() (types.BondDetail, error) {
	bd := make(types.BondDetail, len(r.Bonds))
	for i, rec := range r.Bonds {
		if rec == nil {
			return nil, fmt.Errorf("bond record %d is nil", i)
		}
		id := types.BondID{Source: rec.Source, Validator: rec.Validator}
		if _, ok := bd[id]; ok {
			return nil, fmt.Errorf("duplicate bond record %s -> %s", rec.Source, rec.Validator)
		}
		bd[id] = rec.BondEntry
	}
	return bd, nil
}

func NewBondsResponse(bd types.BondDetail) *BondsResponse {
	r := &BondsResponse{Bonds: make([]*BondRecord, 0, len(bd))}
	for id, entry := range bd {
		r.Bonds = append(r.Bonds, &BondRecord{Source: id.Source, Validator: id.Validator, BondEntry: entry})
	}
	return r
}

func (r *TransferResponse) Receipt() *types.Receipt {
	rec := &types.Receipt{
		Accepted: r.Accepted,
		TxHash:   r.TxHash,
		Reason:   r.Reason,
	}
	for _, l := range r.Legs {
		if l != nil {
			rec.LegStatus = append(rec.LegStatus, types.LegStatus{Index: l.Index, Accepted: l.Accepted, Reason: l.Reason})
		}
	}
	return rec
}

func NewTransferResponse(rec *types.Receipt) *TransferResponse {
	r := &TransferResponse{Accepted: rec.Accepted, TxHash: rec.TxHash, Reason: rec.Reason}
	for _, l := range rec.LegStatus {
		r.Legs = append(r.Legs, &LegStatusEntry{Index: l.Index, Accepted: l.Accepted, Reason: l.Reason})
	}
	return r
}
