package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namada-utils/stakeaudit/disburse"
	test "github.com/namada-utils/stakeaudit/internal/testutils"
	"github.com/namada-utils/stakeaudit/types"
)

func newStore(t *testing.T, file string) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(file)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestBoltStore(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "sub", DefaultFileName))

	digest := test.RandomBytes(32)
	rec, err := s.Lookup(digest)
	require.NoError(t, err)
	require.Nil(t, rec)

	t0 := time.Date(2024, 11, 21, 12, 0, 0, 0, time.UTC)
	first := &disburse.SubmissionRecord{
		Digest:      digest,
		ChainID:     "namada.test",
		Source:      test.RandomAddress(),
		Token:       test.RandomValidator(),
		Legs:        3,
		TotalDebit:  types.NewAmount(60),
		Outcome:     disburse.OutcomeRejected,
		Reason:      "insufficient balance",
		SubmittedAt: t0,
	}
	require.NoError(t, s.Record(first))

	rec, err = s.Lookup(digest)
	require.NoError(t, err)
	require.Equal(t, first, rec)

	// later record of the same batch replaces the earlier one
	second := *first
	second.Outcome, second.Reason, second.TxHash = disburse.OutcomeAccepted, "", []byte{1, 2, 3}
	second.SubmittedAt = t0.Add(time.Hour)
	require.NoError(t, s.Record(&second))
	rec, err = s.Lookup(digest)
	require.NoError(t, err)
	require.Equal(t, &second, rec)

	other := &disburse.SubmissionRecord{Digest: test.RandomBytes(32), Outcome: disburse.OutcomeUnknown, SubmittedAt: t0.Add(-time.Hour)}
	require.NoError(t, s.Record(other))

	recs, err := s.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, other.Digest, recs[0].Digest)
	require.Equal(t, second.Digest, recs[1].Digest)

	require.EqualError(t, s.Record(&disburse.SubmissionRecord{}), "submission record without digest")
}

func TestBoltStore_Reopen(t *testing.T) {
	file := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := NewBoltStore(file)
	require.NoError(t, err)
	digest := test.RandomBytes(32)
	require.NoError(t, s.Record(&disburse.SubmissionRecord{Digest: digest, Outcome: disburse.OutcomeAccepted, SubmittedAt: time.Now().UTC()}))
	require.NoError(t, s.Close())

	s = newStore(t, file)
	rec, err := s.Lookup(digest)
	require.NoError(t, err)
	require.Equal(t, disburse.OutcomeAccepted, rec.Outcome)
}
