package store

import (
	"context"

	bolt "go.etcd.io/bbolt"
)

var bucketDataFeeds = []byte("data_feeds_by_address_key_mci")

func init() {
	allBuckets = append(allBuckets, bucketDataFeeds)
}

type dataFeedEntry struct {
	MCI   int64
	Value string
}

// ReadDataFeed scans the feed's entries in ascending mci order and returns
// the last one at or below horizonMCI — the MCI-indexed view spec §4.4
// requires for deterministic cross-node evaluation.
func (d *DB) ReadDataFeed(_ context.Context, feedAddress, key string, horizonMCI int64) (string, bool, error) {
	prefix := dataFeedPrefix(feedAddress, key)
	var value string
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		// Keys are prefix + mci (big-endian), so the cursor walks entries
		// in ascending mci order; the last one at or below horizonMCI is
		// the correct as-of-horizon value.
		c := tx.Bucket(bucketDataFeeds).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var e dataFeedEntry
			if err := decodeJSON(v, &e); err != nil {
				return err
			}
			if e.MCI > horizonMCI {
				break
			}
			value = e.Value
			found = true
		}
		return nil
	})
	return value, found, err
}

func dataFeedKey(feedAddress, key string, mci int64) []byte {
	k := append([]byte(dataFeedPrefix(feedAddress, key)), encodeInt64(mci)...)
	return k
}

func dataFeedPrefix(feedAddress, key string) []byte {
	return []byte(feedAddress + "\x00" + key + "\x00")
}

// PutDataFeed is a storage.Writer method, so it stages into the caller's
// batch transaction rather than committing on its own — see batch.go.
func (b *batch) PutDataFeed(_ context.Context, feedAddress, key, value string, mci int64) error {
	val, err := encodeJSON(dataFeedEntry{MCI: mci, Value: value})
	if err != nil {
		return err
	}
	return b.tx.Bucket(bucketDataFeeds).Put(dataFeedKey(feedAddress, key, mci), val)
}
