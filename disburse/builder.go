/*
Package disburse builds, signs and submits batch transfers paying many
targets from a single source in one atomic transaction.
*/
package disburse

import (
	"crypto/sha256"
	"fmt"

	"github.com/namada-utils/stakeaudit/chain"
	"github.com/namada-utils/stakeaudit/types"
)

// Signer signs the encoded batch. Implementations must not modify the payload.
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	PublicKey() []byte
}

/*
Build returns unsigned batch transfer with one leg per target, in target
order. It never touches the network. Every target must have positive
amount and must not be the source itself.
*/
func Build(chainID string, targets []types.TransferTarget, source, token, feePayer types.Address) (*types.UnsignedBatchTransfer, error) {
	switch {
	case len(targets) == 0:
		return nil, fmt.Errorf("%w: batch has no targets", types.ErrManifest)
	case source.IsZero():
		return nil, fmt.Errorf("%w: source address not set", types.ErrInvalidTarget)
	case token.IsZero():
		return nil, fmt.Errorf("%w: token address not set", types.ErrInvalidTarget)
	case feePayer.IsZero():
		return nil, fmt.Errorf("%w: fee payer address not set", types.ErrInvalidTarget)
	}

	tx := &types.UnsignedBatchTransfer{
		ChainID:  chainID,
		FeePayer: feePayer,
		Legs:     make([]types.TransferLeg, len(targets)),
	}
	for i, t := range targets {
		switch {
		case t.Amount.IsZero():
			return nil, fmt.Errorf("target %d (%s): %w: amount must be positive", i, t.Destination, types.ErrInvalidAmount)
		case t.Destination.IsZero():
			return nil, fmt.Errorf("target %d: %w: destination not set", i, types.ErrInvalidTarget)
		case t.Destination == source:
			return nil, fmt.Errorf("target %d: %w: destination %s is the source", i, types.ErrInvalidTarget, t.Destination)
		}
		tx.Legs[i] = types.TransferLeg{
			Source:      source,
			Destination: t.Destination,
			Token:       token,
			Amount:      t.Amount,
		}
	}
	if _, err := tx.TotalDebit(source); err != nil {
		return nil, fmt.Errorf("total debit of the batch: %w", err)
	}
	return tx, nil
}

/*
Sign signs the canonical encoding of the whole batch with exactly one
signature of the signer.
*/
func Sign(tx *types.UnsignedBatchTransfer, signer Signer) (*types.SignedBatchTransfer, error) {
	payload, err := chain.EncodeBatchTransfer(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding batch: %w", types.ErrSigning, err)
	}
	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSigning, err)
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("%w: signer returned empty signature", types.ErrSigning)
	}
	pubKey := signer.PublicKey()
	if len(pubKey) == 0 {
		return nil, fmt.Errorf("%w: signer has no public key", types.ErrSigning)
	}
	signed := &types.SignedBatchTransfer{
		Transfer:  *tx,
		PubKey:    pubKey,
		Signature: sig,
	}
	signed.Transfer.Legs = append([]types.TransferLeg(nil), tx.Legs...)
	return signed, nil
}

// BatchDigest identifies the batch, it is sha256 hash of the signing payload.
func BatchDigest(tx *types.UnsignedBatchTransfer) ([]byte, error) {
	payload, err := chain.EncodeBatchTransfer(tx)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(payload)
	return h[:], nil
}
