// Package store is the bbolt-backed implementation of storage.Store,
// generalized from the teacher's bucket-per-relation node/store/db.go (one
// bucket per UTXO-chain relation) to the relations spec.md §6.3 names for a
// witness-ordered DAG ledger.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"witnessdag.dev/core/storage"
)

var (
	bucketUnits       = []byte("units")
	bucketFullUnits   = []byte("full_units")
	bucketStableUnits = []byte("stable_units")
	bucketOutputs     = []byte("outputs_by_outpoint")
	bucketInputs      = []byte("inputs_by_unit")
	bucketDefinitions = []byte("definitions_by_address")
	bucketAADefs      = []byte("aa_definitions_by_address")
	bucketBalls       = []byte("balls_by_id")
	bucketAuthorUnits = []byte("units_by_author")
	bucketHashTree    = []byte("hash_tree_balls")
	bucketMeta        = []byte("mc_state")
	bucketBestChildren = []byte("best_children_by_parent")
	bucketTips         = []byte("free_tips")

	allBuckets = [][]byte{
		bucketUnits, bucketFullUnits, bucketStableUnits, bucketOutputs, bucketInputs,
		bucketDefinitions, bucketAADefs, bucketBalls, bucketAuthorUnits,
		bucketHashTree, bucketMeta, bucketBestChildren, bucketTips,
	}
)

// SchemaVersionV1 is the current bucket layout version (spec §6.3 "schema
// migrations are declared as a version integer").
const SchemaVersionV1 = 1

var keyMetaSchemaVersion = []byte("schema_version")
var keyMetaLastStableMCI = []byte("last_stable_mci")

// DB is the bbolt-backed storage.Store. It owns the caches (node/store/cache.go)
// that storage.Reader's doc comment requires stay coherent with the
// underlying bucket state.
type DB struct {
	db     *bolt.DB
	path   string
	caches *Caches
}

// Open creates (or reuses) the bbolt file at datadir/witnessdag.db,
// idempotently creating every bucket — mirrors the teacher's Open +
// CreateBucketIfNotExists convention (spec §6.3 "idempotent, check existence
// before adding").
func Open(datadir string) (*DB, error) {
	if datadir == "" {
		return nil, fmt.Errorf("store: datadir required")
	}
	if err := os.MkdirAll(datadir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir datadir: %w", err)
	}
	path := filepath.Join(datadir, "witnessdag.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}

	d := &DB{db: bdb, path: path, caches: NewCaches()}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("store: create bucket %s: %w", string(b), err)
			}
		}
		meta := tx.Bucket(bucketMeta)
		if meta.Get(keyMetaSchemaVersion) == nil {
			if err := meta.Put(keyMetaSchemaVersion, encodeInt64(SchemaVersionV1)); err != nil {
				return err
			}
		}
		if meta.Get(keyMetaLastStableMCI) == nil {
			if err := meta.Put(keyMetaLastStableMCI, encodeInt64(0)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Compile-time assertion that *DB satisfies storage.Store.
var _ storage.Store = (*DB)(nil)
