package chain

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/namada-utils/stakeaudit/types"
)

type (
	transferLegCBOR struct {
		_           struct{} `cbor:",toarray"`
		Source      string
		Destination string
		Token       string
		Amount      []byte
	}

	batchTransferCBOR struct {
		_        struct{} `cbor:",toarray"`
		ChainID  string
		FeePayer string
		Legs     []transferLegCBOR
		Memo     string
	}

	signedBatchCBOR struct {
		_         struct{} `cbor:",toarray"`
		Transfer  batchTransferCBOR
		PubKey    []byte
		Signature []byte
	}
)

var encMode cbor.EncMode

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(fmt.Errorf("initializing CBOR encoder: %w", err))
	}
}

/*
EncodeBatchTransfer returns deterministic encoding of the unsigned batch,
these are the bytes the batch signature is over.
*/
func EncodeBatchTransfer(tx *types.UnsignedBatchTransfer) ([]byte, error) {
	b, err := encMode.Marshal(toBatchCBOR(tx))
	if err != nil {
		return nil, fmt.Errorf("encoding batch transfer: %w", err)
	}
	return b, nil
}

func EncodeSignedBatchTransfer(tx *types.SignedBatchTransfer) ([]byte, error) {
	b, err := encMode.Marshal(signedBatchCBOR{
		Transfer:  toBatchCBOR(&tx.Transfer),
		PubKey:    tx.PubKey,
		Signature: tx.Signature,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding signed batch transfer: %w", err)
	}
	return b, nil
}

func DecodeSignedBatchTransfer(data []byte) (*types.SignedBatchTransfer, error) {
	var sb signedBatchCBOR
	if err := cbor.Unmarshal(data, &sb); err != nil {
		return nil, fmt.Errorf("decoding signed batch transfer: %w", err)
	}
	tx := &types.SignedBatchTransfer{
		PubKey:    sb.PubKey,
		Signature: sb.Signature,
		Transfer: types.UnsignedBatchTransfer{
			ChainID: sb.Transfer.ChainID,
			Memo:    sb.Transfer.Memo,
			Legs:    make([]types.TransferLeg, len(sb.Transfer.Legs)),
		},
	}
	var err error
	if tx.Transfer.FeePayer, err = types.ParseAddress(sb.Transfer.FeePayer); err != nil {
		return nil, fmt.Errorf("fee payer: %w", err)
	}
	for i, l := range sb.Transfer.Legs {
		leg := &tx.Transfer.Legs[i]
		if leg.Source, err = types.ParseAddress(l.Source); err != nil {
			return nil, fmt.Errorf("leg %d source: %w", i, err)
		}
		if leg.Destination, err = types.ParseAddress(l.Destination); err != nil {
			return nil, fmt.Errorf("leg %d destination: %w", i, err)
		}
		if leg.Token, err = types.ParseAddress(l.Token); err != nil {
			return nil, fmt.Errorf("leg %d token: %w", i, err)
		}
		if err = leg.Amount.UnmarshalBinary(l.Amount); err != nil {
			return nil, fmt.Errorf("leg %d amount: %w", i, err)
		}
	}
	return tx, nil
}

func toBatchCBOR(tx *types.UnsignedBatchTransfer) batchTransferCBOR {
	b := batchTransferCBOR{
		ChainID:  tx.ChainID,
		FeePayer: tx.FeePayer.String(),
		Legs:     make([]transferLegCBOR, len(tx.Legs)),
		Memo:     tx.Memo,
	}
	for i, l := range tx.Legs {
		amount, _ := l.Amount.MarshalBinary()
		b.Legs[i] = transferLegCBOR{
			Source:      l.Source.String(),
			Destination: l.Destination.String(),
			Token:       l.Token.String(),
			Amount:      amount,
		}
	}
	return b
}
