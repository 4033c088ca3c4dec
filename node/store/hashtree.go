package store

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"witnessdag.dev/core/storage"
)

// PutPendingBall and friends implement storage.HashTreeStore directly on
// *DB using their own short-lived bbolt transactions rather than going
// through Batch: the hash-tree pending table is mutated by the catchup
// path outside the ordinary per-unit write-lock batch (spec §4.7.3).
func (d *DB) PutPendingBall(_ context.Context, b storage.PendingBall) error {
	val, err := encodeJSON(b)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHashTree).Put([]byte(b.BallID), val)
	})
}

func (d *DB) GetPendingBall(_ context.Context, ballID string) (*storage.PendingBall, bool, error) {
	var rec storage.PendingBall
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketHashTree).Get([]byte(ballID))
		if v == nil {
			return nil
		}
		found = true
		return decodeJSON(v, &rec)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

func (d *DB) EvictPendingBall(_ context.Context, ballID string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHashTree).Delete([]byte(ballID))
	})
}

func (d *DB) CountPendingBalls(_ context.Context) (int, error) {
	var n int
	err := d.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketHashTree).Stats().KeyN
		return nil
	})
	return n, err
}

// FindPendingBallByUnit scans the pending-ball table for an entry whose
// unit id matches; the table is expected to stay small (only the
// in-flight catchup window), so a linear scan under one view transaction
// is adequate rather than maintaining a second index.
func (d *DB) FindPendingBallByUnit(_ context.Context, unitID string) (*storage.PendingBall, bool, error) {
	var rec storage.PendingBall
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHashTree).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var candidate storage.PendingBall
			if err := decodeJSON(v, &candidate); err != nil {
				return err
			}
			if candidate.UnitID == unitID {
				rec = candidate
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

var _ storage.HashTreeStore = (*DB)(nil)
