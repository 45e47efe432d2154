/*
Package journal persists the outcome of submitted batch transfers so that
the same batch isn't accidentally submitted twice.
*/
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/namada-utils/stakeaudit/disburse"
)

const DefaultFileName = "journal.db"

var bucketSubmissions = []byte("submissions")

// BoltStore keeps the latest submission record of every batch digest.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(dbFile string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbFile), 0700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt DB %s: %w", dbFile, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSubmissions)
		return err
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create db buckets: %w", err), db.Close())
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Lookup(digest []byte) (*disburse.SubmissionRecord, error) {
	var rec *disburse.SubmissionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSubmissions).Get(digest)
		if b == nil {
			return nil
		}
		if err := json.Unmarshal(b, &rec); err != nil {
			return fmt.Errorf("failed to deserialize submission record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) Record(rec *disburse.SubmissionRecord) error {
	if len(rec.Digest) == 0 {
		return errors.New("submission record without digest")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize submission record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSubmissions).Put(rec.Digest, data)
	})
}

// List returns all the records, oldest first.
func (s *BoltStore) List() ([]*disburse.SubmissionRecord, error) {
	var recs []*disburse.SubmissionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSubmissions).ForEach(func(k, v []byte) error {
			var rec *disburse.SubmissionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to deserialize submission record %x: %w", k, err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].SubmittedAt.Before(recs[j].SubmittedAt) })
	return recs, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
