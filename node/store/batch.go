package store

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// batch wraps one writable bbolt transaction; every storage.Writer method
// below stages into it, and Commit/Rollback decide whether any of it
// becomes visible (spec §4.2 "all writes within a single received unit's
// processing MUST be atomic").
type batch struct {
	db      *DB
	tx      *bolt.Tx
	dirty   []string // unit ids touched, for cache invalidation on rollback
	closed  bool
}

func (d *DB) OpenBatch(_ context.Context) (storage.Batch, error) {
	tx, err := d.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("store: begin batch: %w", err)
	}
	return &batch{db: d, tx: tx}, nil
}

func (b *batch) Commit() error {
	if b.closed {
		return fmt.Errorf("store: batch already closed")
	}
	b.closed = true
	if err := b.tx.Commit(); err != nil {
		for _, id := range b.dirty {
			b.db.caches.invalidate(id)
		}
		return fmt.Errorf("store: commit batch: %w", err)
	}
	return nil
}

func (b *batch) Rollback() error {
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.tx.Rollback()
	for _, id := range b.dirty {
		b.db.caches.invalidate(id)
	}
	return err
}

func (b *batch) InsertUnit(_ context.Context, props *storage.UnitProps) error {
	rec := unitRecord{UnitProps: *props}
	val, err := encodeJSON(rec)
	if err != nil {
		return err
	}
	b.dirty = append(b.dirty, props.UnitID)
	if err := b.tx.Bucket(bucketUnits).Put([]byte(props.UnitID), val); err != nil {
		return err
	}
	for _, addr := range props.Authors {
		if err := b.appendAuthorUnit(addr, props.UnitID); err != nil {
			return err
		}
	}
	if props.BestParent != "" {
		if err := b.appendBestChild(props.BestParent, props.UnitID); err != nil {
			return err
		}
		if err := b.tx.Bucket(bucketTips).Delete([]byte(props.BestParent)); err != nil {
			return err
		}
	}
	return b.tx.Bucket(bucketTips).Put([]byte(props.UnitID), []byte{1})
}

func (b *batch) InsertFullUnit(_ context.Context, u *dag.Unit) error {
	val, err := encodeJSON(u)
	if err != nil {
		return err
	}
	return b.tx.Bucket(bucketFullUnits).Put([]byte(u.UnitID), val)
}

// appendBestChild records props.UnitID under its best parent's entry in
// bucketBestChildren — the main-chain stability test's alternative-branch
// set is exactly "this parent's best-children other than u" (spec §4.6.2).
func (b *batch) appendBestChild(parent, unitID string) error {
	bucket := b.tx.Bucket(bucketBestChildren)
	var ids []string
	if v := bucket.Get([]byte(parent)); v != nil {
		if err := decodeJSON(v, &ids); err != nil {
			return err
		}
	}
	ids = append(ids, unitID)
	val, err := encodeJSON(ids)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(parent), val)
}

func (b *batch) appendAuthorUnit(addr, unitID string) error {
	bucket := b.tx.Bucket(bucketAuthorUnits)
	var ids []string
	if v := bucket.Get([]byte(addr)); v != nil {
		if err := decodeJSON(v, &ids); err != nil {
			return err
		}
	}
	ids = append(ids, unitID)
	val, err := encodeJSON(ids)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(addr), val)
}

func (b *batch) InsertOutput(_ context.Context, out storage.Output) error {
	val, err := encodeJSON(out)
	if err != nil {
		return err
	}
	key := outputKey(out.UnitID, out.MessageIndex, out.OutputIndex)
	return b.tx.Bucket(bucketOutputs).Put(key, val)
}

func (b *batch) MarkOutputSpent(_ context.Context, srcUnit string, srcMessageIndex, srcOutputIndex int) error {
	bucket := b.tx.Bucket(bucketOutputs)
	key := outputKey(srcUnit, srcMessageIndex, srcOutputIndex)
	v := bucket.Get(key)
	if v == nil {
		return fmt.Errorf("store: output %s[%d][%d] not found", srcUnit, srcMessageIndex, srcOutputIndex)
	}
	var out storage.Output
	if err := decodeJSON(v, &out); err != nil {
		return err
	}
	out.IsSpent = true
	val, err := encodeJSON(out)
	if err != nil {
		return err
	}
	return bucket.Put(key, val)
}

func (b *batch) BindDefinition(_ context.Context, def storage.Definition) error {
	val, err := encodeJSON(def)
	if err != nil {
		return err
	}
	return b.tx.Bucket(bucketDefinitions).Put([]byte(def.Address), val)
}

func (b *batch) CommitBall(_ context.Context, ball storage.Ball) error {
	val, err := encodeJSON(ball)
	if err != nil {
		return err
	}
	if err := b.tx.Bucket(bucketBalls).Put([]byte(ball.BallID), val); err != nil {
		return err
	}
	stable := storage.StableUnitProps{
		UnitID:      ball.UnitID,
		BallID:      ball.BallID,
		MCI:         ball.MCI,
		IsNonserial: ball.IsNonserial,
	}
	stableVal, err := encodeJSON(stable)
	if err != nil {
		return err
	}
	b.dirty = append(b.dirty, ball.UnitID)
	return b.tx.Bucket(bucketStableUnits).Put([]byte(ball.UnitID), stableVal)
}

func (b *batch) SetMCPosition(_ context.Context, unitID string, mci int64, isOnMC bool) error {
	bucket := b.tx.Bucket(bucketUnits)
	v := bucket.Get([]byte(unitID))
	if v == nil {
		return fmt.Errorf("store: unit %s not found", unitID)
	}
	var rec unitRecord
	if err := decodeJSON(v, &rec); err != nil {
		return err
	}
	rec.IsOnMainChain = isOnMC
	if isOnMC {
		rec.MainChainIndex = &mci
	} else {
		rec.MainChainIndex = nil
	}
	val, err := encodeJSON(rec)
	if err != nil {
		return err
	}
	b.dirty = append(b.dirty, unitID)
	return bucket.Put([]byte(unitID), val)
}

func (b *batch) MarkSequence(_ context.Context, unitID string, sequence string) error {
	bucket := b.tx.Bucket(bucketUnits)
	v := bucket.Get([]byte(unitID))
	if v == nil {
		return fmt.Errorf("store: unit %s not found", unitID)
	}
	var rec unitRecord
	if err := decodeJSON(v, &rec); err != nil {
		return err
	}
	rec.Sequence = sequence
	val, err := encodeJSON(rec)
	if err != nil {
		return err
	}
	b.dirty = append(b.dirty, unitID)
	return bucket.Put([]byte(unitID), val)
}

func (b *batch) AdvanceLastStableMCI(_ context.Context, newMCI int64, balls []storage.Ball) error {
	for _, ball := range balls {
		if err := b.CommitBall(context.Background(), ball); err != nil {
			return err
		}
	}
	return b.tx.Bucket(bucketMeta).Put(keyMetaLastStableMCI, encodeInt64(newMCI))
}

func (b *batch) PayCommission(_ context.Context, unitID string, recipient string, amount int64, kind string) error {
	out := storage.Output{
		UnitID:       unitID,
		MessageIndex: -1, // synthetic commission outputs carry no source message
		OutputIndex:  0,
		Address:      recipient,
		Asset:        "base",
		Amount:       amount,
	}
	val, err := encodeJSON(out)
	if err != nil {
		return err
	}
	key := outputKey(fmt.Sprintf("%s:%s:%s", unitID, kind, recipient), 0, 0)
	return b.tx.Bucket(bucketOutputs).Put(key, val)
}
