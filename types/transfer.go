package types

import "fmt"

// TransferTarget is a single recipient of a batch disbursement.
type TransferTarget struct {
	Destination Address
	Amount      Amount
}

// TransferLeg is one movement of tokens inside a batch transfer.
type TransferLeg struct {
	Source      Address
	Destination Address
	Token       Address
	Amount      Amount
}

// UnsignedBatchTransfer is a multi leg transfer authorized as a whole by a
// single signature.
type UnsignedBatchTransfer struct {
	ChainID  string
	FeePayer Address
	Legs     []TransferLeg
	Memo     string
}

// TotalDebit returns the sum debited from "source" by the batch.
func (u *UnsignedBatchTransfer) TotalDebit(source Address) (Amount, error) {
	var total Amount
	for i, leg := range u.Legs {
		if leg.Source != source {
			continue
		}
		var err error
		if total, err = total.Add(leg.Amount); err != nil {
			return Amount{}, fmt.Errorf("leg %d: %w", i, err)
		}
	}
	return total, nil
}

type SignedBatchTransfer struct {
	Transfer  UnsignedBatchTransfer
	PubKey    []byte
	Signature []byte
}

type LegStatus struct {
	Index    int
	Accepted bool
	Reason   string
}

type Receipt struct {
	Accepted  bool
	TxHash    []byte
	Reason    string
	LegStatus []LegStatus
}
