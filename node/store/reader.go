package store

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

type unitRecord struct {
	storage.UnitProps
}

func (d *DB) ReadUnitProps(_ context.Context, unitID string) (*storage.UnitProps, bool, error) {
	var rec unitRecord
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketUnits).Get([]byte(unitID))
		if v == nil {
			return nil
		}
		found = true
		return decodeJSON(v, &rec)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &rec.UnitProps, true, nil
}

func (d *DB) ReadUnitAuthors(ctx context.Context, unitID string) ([]string, error) {
	props, ok, err := d.ReadUnitProps(ctx, unitID)
	if err != nil || !ok {
		return nil, err
	}
	return props.Authors, nil
}

func (d *DB) ReadStableUnitProps(_ context.Context, unitID string) (*storage.StableUnitProps, bool, error) {
	var rec storage.StableUnitProps
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketStableUnits).Get([]byte(unitID))
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

func (d *DB) ReadFullUnit(_ context.Context, unitID string) (*dag.Unit, bool, error) {
	var u dag.Unit
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketFullUnits).Get([]byte(unitID))
		if v == nil {
			return nil
		}
		found = true
		return decodeJSON(v, &u)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &u, true, nil
}

func (d *DB) ReadBallAtMCI(_ context.Context, mci int64) (string, bool, error) {
	var ballID string
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketStableUnits).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec storage.StableUnitProps
			if err := decodeJSON(v, &rec); err != nil {
				return err
			}
			if rec.MCI == mci {
				ballID = rec.BallID
				found = true
				return nil
			}
		}
		return nil
	})
	return ballID, found, err
}

func (d *DB) ReadStaticProps(_ context.Context, unitID string) (string, int64, int64, error) {
	if cached, ok := d.caches.getStatic(unitID); ok {
		return cached.bestParent, cached.level, cached.witnessedLevel, nil
	}
	var rec unitRecord
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketUnits).Get([]byte(unitID))
		if v == nil {
			return nil
		}
		found = true
		return decodeJSON(v, &rec)
	})
	if err != nil {
		return "", 0, 0, err
	}
	if !found {
		return "", 0, 0, fmt.Errorf("store: unit %s not found", unitID)
	}
	d.caches.putStatic(unitID, rec.BestParent, rec.Level, rec.WitnessedLevel)
	return rec.BestParent, rec.Level, rec.WitnessedLevel, nil
}

func (d *DB) ReadDefinitionByAddress(_ context.Context, addr string, horizonMCI int64) (*storage.Definition, bool, error) {
	var rec storage.Definition
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDefinitions).Get([]byte(addr))
		if v == nil {
			return nil
		}
		if err := decodeJSON(v, &rec); err != nil {
			return err
		}
		if rec.BoundAtMCI == 0 || rec.BoundAtMCI > horizonMCI {
			return nil // not yet bound at this horizon
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

func (d *DB) ReadAADefinition(_ context.Context, addr string) (*storage.Definition, bool, error) {
	var rec storage.Definition
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAADefs).Get([]byte(addr))
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

func (d *DB) ReadOutputs(_ context.Context, unitID string, messageIndex int) ([]storage.Output, error) {
	prefix := outputPrefix(unitID, messageIndex)
	var outs []storage.Output
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketOutputs).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var out storage.Output
			if err := decodeJSON(v, &out); err != nil {
				return err
			}
			outs = append(outs, out)
		}
		return nil
	})
	return outs, err
}

func (d *DB) ReadInputs(_ context.Context, unitID string) ([]storage.Input, error) {
	var ins []storage.Input
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketInputs).Get([]byte(unitID))
		if v == nil {
			return nil
		}
		return decodeJSON(v, &ins)
	})
	return ins, err
}

func (d *DB) ReadAuthorUnitsAfter(_ context.Context, addr string, afterLimci int64, cap int) ([]string, error) {
	var all []string
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAuthorUnits).Get([]byte(addr))
		if v == nil {
			return nil
		}
		return decodeJSON(v, &all)
	})
	if err != nil {
		return nil, err
	}
	// Filter to mci > afterLimci or mci NULL (spec §4.5.1 step 8), bounded
	// at cap to avoid an unbounded scan of a high-activity author.
	var out []string
	for _, unitID := range all {
		if len(out) >= cap {
			break
		}
		props, ok, err := d.ReadUnitProps(context.Background(), unitID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if props.MainChainIndex == nil || *props.MainChainIndex > afterLimci {
			out = append(out, unitID)
		}
	}
	return out, nil
}

func (d *DB) ReadBall(_ context.Context, ballID string) (*storage.Ball, bool, error) {
	var rec storage.Ball
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBalls).Get([]byte(ballID))
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

func (d *DB) LastStableMCI(_ context.Context) (int64, error) {
	var mci int64
	err := d.db.View(func(tx *bolt.Tx) error {
		mci = decodeInt64(tx.Bucket(bucketMeta).Get(keyMetaLastStableMCI))
		return nil
	})
	return mci, err
}

func (d *DB) ReadBestChildren(_ context.Context, unitID string) ([]string, error) {
	var ids []string
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBestChildren).Get([]byte(unitID))
		if v == nil {
			return nil
		}
		return decodeJSON(v, &ids)
	})
	return ids, err
}

func (d *DB) ReadFreeTips(_ context.Context) ([]string, error) {
	var ids []string
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTips).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			ids = append(ids, string(k))
		}
		return nil
	})
	return ids, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
