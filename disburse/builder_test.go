package disburse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namada-utils/stakeaudit/chain"
	test "github.com/namada-utils/stakeaudit/internal/testutils"
	"github.com/namada-utils/stakeaudit/keyring"
	"github.com/namada-utils/stakeaudit/types"
)

type failingSigner struct {
	err   error
	calls int
}

func (s *failingSigner) Sign(payload []byte) ([]byte, error) {
	s.calls++
	return nil, s.err
}

func (s *failingSigner) PublicKey() []byte { return []byte{2, 1} }

func targets(amounts ...uint64) []types.TransferTarget {
	res := make([]types.TransferTarget, len(amounts))
	for i, a := range amounts {
		res[i] = types.TransferTarget{Destination: test.RandomAddress(), Amount: types.NewAmount(a)}
	}
	return res
}

func TestBuild(t *testing.T) {
	source, feePayer := test.RandomAddress(), test.RandomAddress()
	tt := targets(10, 20, 30)

	tx, err := Build("namada.test", tt, source, nam, feePayer)
	require.NoError(t, err)
	require.Equal(t, "namada.test", tx.ChainID)
	require.Equal(t, feePayer, tx.FeePayer)
	require.Len(t, tx.Legs, 3)
	for i, leg := range tx.Legs {
		require.Equal(t, source, leg.Source)
		require.Equal(t, nam, leg.Token)
		require.Equal(t, tt[i].Destination, leg.Destination)
		require.Equal(t, tt[i].Amount, leg.Amount)
	}
	total, err := tx.TotalDebit(source)
	require.NoError(t, err)
	require.Equal(t, types.NewAmount(60), total)
}

func TestBuild_Errors(t *testing.T) {
	source := test.RandomAddress()

	_, err := Build("", nil, source, nam, source)
	require.ErrorIs(t, err, types.ErrManifest)

	_, err = Build("", targets(1, 0), source, nam, source)
	require.ErrorIs(t, err, types.ErrInvalidAmount)
	require.ErrorContains(t, err, "target 1")

	self := targets(1, 2)
	self[1].Destination = source
	_, err = Build("", self, source, nam, source)
	require.ErrorIs(t, err, types.ErrInvalidTarget)
	require.ErrorContains(t, err, "is the source")

	_, err = Build("", []types.TransferTarget{{Amount: types.NewAmount(1)}}, source, nam, source)
	require.ErrorIs(t, err, types.ErrInvalidTarget)

	_, err = Build("", targets(1), types.Address{}, nam, source)
	require.ErrorIs(t, err, types.ErrInvalidTarget)
	_, err = Build("", targets(1), source, types.Address{}, source)
	require.ErrorIs(t, err, types.ErrInvalidTarget)
	_, err = Build("", targets(1), source, nam, types.Address{})
	require.ErrorIs(t, err, types.ErrInvalidTarget)
}

func TestSign(t *testing.T) {
	source := test.RandomAddress()
	tx, err := Build("namada.test", targets(10, 20), source, nam, source)
	require.NoError(t, err)

	signer, err := keyring.GenerateSecp256k1Signer()
	require.NoError(t, err)
	signed, err := Sign(tx, signer)
	require.NoError(t, err)
	require.Equal(t, signer.PublicKey(), signed.PubKey)

	payload, err := chain.EncodeBatchTransfer(&signed.Transfer)
	require.NoError(t, err)
	require.NoError(t, keyring.VerifySignature(signed.PubKey, payload, signed.Signature))

	// signed batch doesn't share legs with the unsigned one
	tx.Legs[0].Amount = types.NewAmount(99)
	require.Equal(t, types.NewAmount(10), signed.Transfer.Legs[0].Amount)
}

func TestSign_Failure(t *testing.T) {
	source := test.RandomAddress()
	tx, err := Build("namada.test", targets(1), source, nam, source)
	require.NoError(t, err)

	_, err = Sign(tx, &failingSigner{err: errors.New("no key")})
	require.ErrorIs(t, err, types.ErrSigning)
	require.ErrorContains(t, err, "no key")

	_, err = Sign(tx, &failingSigner{})
	require.ErrorIs(t, err, types.ErrSigning)
	require.ErrorContains(t, err, "empty signature")
}

func TestBatchDigest(t *testing.T) {
	source := test.RandomAddress()
	tt := targets(1, 2)
	tx1, err := Build("namada.test", tt, source, nam, source)
	require.NoError(t, err)
	tx2, err := Build("namada.test", tt, source, nam, source)
	require.NoError(t, err)

	d1, err := BatchDigest(tx1)
	require.NoError(t, err)
	d2, err := BatchDigest(tx2)
	require.NoError(t, err)
	require.Equal(t, d1, d2)

	tx2.Memo = "x"
	d2, err = BatchDigest(tx2)
	require.NoError(t, err)
	require.NotEqual(t, d1, d2)
}
