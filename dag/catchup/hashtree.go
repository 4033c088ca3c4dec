package catchup

import (
	"context"
	"fmt"
	"sort"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/mainchain"
	"witnessdag.dev/core/storage"
)

// BuildHashTreeBatch serves up to limit consecutive stable balls starting
// at fromMCI+1 — the peer side of the hash-tree protocol streaming the MCI
// range between the lagger's cursor and the witness-proof's pinned
// last_ball_unit (spec §4.7.3). Grounded on node/p2p/compactblock.go's
// length-capped payload builders.
func BuildHashTreeBatch(ctx context.Context, q mainchain.Querier, fromMCI int64, limit int) ([]storage.Ball, error) {
	if limit <= 0 || limit > BBalls {
		limit = BBalls
	}
	var out []storage.Ball
	mci := fromMCI + 1
	for len(out) < limit {
		ballID, found, err := q.ReadBallAtMCI(ctx, mci)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
		b, ok, err := q.ReadBall(ctx, ballID)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, *b)
		mci++
	}
	return out, nil
}

// IngestHashTreeBatch is the lagger side (spec §4.7.3): each entry's ball
// id is re-derived from its declared unit/parent/skiplist balls, every
// referenced parent ball must already be either committed or itself
// pending, and the (ball -> unit) mapping is stored in the pending table
// distinguishable from committed balls. Processing stops at the first
// entry that fails either check so the caller can penalize the peer that
// sent it (§7) without polluting the pending table with anything after
// the bad entry. The total pending-table size is capped at BMax.
func IngestHashTreeBatch(ctx context.Context, ht storage.HashTreeStore, r storage.Reader, hp dag.HashProvider, batch []storage.Ball) (int, error) {
	if len(batch) > BBalls {
		return 0, fmt.Errorf("catchup: hash-tree batch of %d exceeds B_BALLS=%d", len(batch), BBalls)
	}
	pendingCount, err := ht.CountPendingBalls(ctx)
	if err != nil {
		return 0, err
	}
	accepted := 0
	for _, entry := range batch {
		if pendingCount+accepted >= BMax {
			return accepted, fmt.Errorf("catchup: hash-tree pending table would exceed B_MAX=%d", BMax)
		}

		ball := dag.Ball{
			UnitID:        entry.UnitID,
			ParentBalls:   entry.ParentBalls,
			SkiplistBalls: entry.SkiplistBalls,
			IsNonserial:   entry.IsNonserial,
		}
		gotID, err := ball.DeriveBallID(hp)
		if err != nil {
			return accepted, err
		}
		if gotID != entry.BallID {
			return accepted, fmt.Errorf("catchup: hash-tree entry for unit %s does not re-hash to its declared ball", entry.UnitID)
		}

		for _, parentBall := range entry.ParentBalls {
			if committed, ok, err := r.ReadBall(ctx, parentBall); err != nil {
				return accepted, err
			} else if ok && committed != nil {
				continue
			}
			if _, ok, err := ht.GetPendingBall(ctx, parentBall); err != nil {
				return accepted, err
			} else if ok {
				continue
			}
			return accepted, fmt.Errorf("catchup: hash-tree entry for unit %s references unknown parent ball %s", entry.UnitID, parentBall)
		}

		if err := ht.PutPendingBall(ctx, storage.PendingBall{
			BallID:        entry.BallID,
			UnitID:        entry.UnitID,
			ParentBalls:   append([]string(nil), entry.ParentBalls...),
			SkiplistBalls: append([]string(nil), entry.SkiplistBalls...),
			IsNonserial:   entry.IsNonserial,
		}); err != nil {
			return accepted, err
		}
		accepted++
	}
	return accepted, nil
}

// ReconcilePendingBall is called once a unit the hash-tree reserved a ball
// for has actually stabilized through the ordinary main-chain engine
// (spec §4.7.3 "commits the mapping only after the corresponding full unit
// is received and validated to produce the same ball with its actual
// is_nonserial"). A mismatch means the peer's hash-tree entry was wrong
// (or stale) even though it passed IngestHashTreeBatch's checks at the
// time — the pending entry is evicted either way since the real ball now
// supersedes it.
func ReconcilePendingBall(ctx context.Context, ht storage.HashTreeStore, committed storage.Ball) error {
	pending, ok, err := ht.FindPendingBallByUnit(ctx, committed.UnitID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer func() { _ = ht.EvictPendingBall(ctx, pending.BallID) }()

	if pending.BallID != committed.BallID || pending.IsNonserial != committed.IsNonserial ||
		!sortedEqual(pending.ParentBalls, committed.ParentBalls) || !sortedEqual(pending.SkiplistBalls, committed.SkiplistBalls) {
		return fmt.Errorf("catchup: hash-tree entry for unit %s does not match its unit's actual stabilized ball", committed.UnitID)
	}
	return nil
}

func sortedEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
