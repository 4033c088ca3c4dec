package catchup

import (
	"context"
	"testing"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

func makeBall(t *testing.T, unitID string, parentBalls []string, nonserial bool) storage.Ball {
	t.Helper()
	b := dag.Ball{UnitID: unitID, ParentBalls: parentBalls, IsNonserial: nonserial}
	id, err := b.DeriveBallID(fakeHash{})
	if err != nil {
		t.Fatalf("DeriveBallID: %v", err)
	}
	return storage.Ball{BallID: id, UnitID: unitID, ParentBalls: parentBalls, IsNonserial: nonserial}
}

func TestBuildHashTreeBatchServesConsecutiveStableBalls(t *testing.T) {
	store := newFakeStore()
	for mci := int64(1); mci <= 5; mci++ {
		b := makeBall(t, "U"+string(rune('0'+mci)), nil, false)
		b.MCI = mci
		store.putBall(b)
		store.putStable("U"+string(rune('0'+mci)), b.BallID, mci)
	}

	batch, err := BuildHashTreeBatch(context.Background(), store, 0, 3)
	if err != nil {
		t.Fatalf("BuildHashTreeBatch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(batch))
	}
	if batch[0].MCI != 1 || batch[2].MCI != 3 {
		t.Fatalf("unexpected MCI ordering: %+v", batch)
	}
}

func TestIngestHashTreeBatchAcceptsSelfConsistentChain(t *testing.T) {
	store := newFakeStore()
	ht := store
	r := store

	genesis := makeBall(t, "GEN", nil, false)
	store.putBall(genesis)

	entry := makeBall(t, "U1", []string{genesis.BallID}, false)

	accepted, err := IngestHashTreeBatch(context.Background(), ht, r, fakeHash{}, []storage.Ball{entry})
	if err != nil {
		t.Fatalf("IngestHashTreeBatch: %v", err)
	}
	if accepted != 1 {
		t.Fatalf("expected 1 accepted entry, got %d", accepted)
	}
	pending, ok, err := ht.GetPendingBall(context.Background(), entry.BallID)
	if err != nil || !ok {
		t.Fatalf("expected pending ball to be stored: ok=%v err=%v", ok, err)
	}
	if pending.UnitID != "U1" {
		t.Fatalf("unexpected pending entry: %+v", pending)
	}
}

func TestIngestHashTreeBatchRejectsUnknownParentBall(t *testing.T) {
	store := newFakeStore()

	entry := makeBall(t, "U1", []string{"NEVER_SEEN"}, false)

	accepted, err := IngestHashTreeBatch(context.Background(), store, store, fakeHash{}, []storage.Ball{entry})
	if err == nil {
		t.Fatal("expected rejection of an entry referencing an unknown parent ball")
	}
	if accepted != 0 {
		t.Fatalf("expected 0 accepted entries, got %d", accepted)
	}
}

func TestIngestHashTreeBatchRejectsTamperedBallID(t *testing.T) {
	store := newFakeStore()

	entry := makeBall(t, "U1", nil, false)
	entry.BallID = "NOT_THE_REAL_HASH"

	if _, err := IngestHashTreeBatch(context.Background(), store, store, fakeHash{}, []storage.Ball{entry}); err == nil {
		t.Fatal("expected rejection of an entry that does not re-hash to its declared ball id")
	}
}

func TestIngestHashTreeBatchEnforcesBMax(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < BMax; i++ {
		store.pending[string(rune(i))] = &storage.PendingBall{BallID: string(rune(i))}
	}

	entry := makeBall(t, "OVERFLOW", nil, false)
	if _, err := IngestHashTreeBatch(context.Background(), store, store, fakeHash{}, []storage.Ball{entry}); err == nil {
		t.Fatal("expected rejection once the pending table is at B_MAX")
	}
}

func TestReconcilePendingBallMatchesAndEvicts(t *testing.T) {
	store := newFakeStore()
	entry := makeBall(t, "U1", nil, false)
	if err := store.PutPendingBall(context.Background(), storage.PendingBall{
		BallID: entry.BallID, UnitID: "U1", IsNonserial: false,
	}); err != nil {
		t.Fatalf("PutPendingBall: %v", err)
	}

	if err := ReconcilePendingBall(context.Background(), store, entry); err != nil {
		t.Fatalf("ReconcilePendingBall: %v", err)
	}
	if _, ok, _ := store.GetPendingBall(context.Background(), entry.BallID); ok {
		t.Fatal("expected pending entry to be evicted after reconciliation")
	}
}

func TestReconcilePendingBallRejectsMismatchAndEvicts(t *testing.T) {
	store := newFakeStore()
	entry := makeBall(t, "U1", nil, false)
	if err := store.PutPendingBall(context.Background(), storage.PendingBall{
		BallID: entry.BallID, UnitID: "U1", IsNonserial: true, // disagrees with the real ball below
	}); err != nil {
		t.Fatalf("PutPendingBall: %v", err)
	}

	if err := ReconcilePendingBall(context.Background(), store, entry); err == nil {
		t.Fatal("expected mismatch rejection")
	}
	if _, ok, _ := store.GetPendingBall(context.Background(), entry.BallID); ok {
		t.Fatal("expected pending entry to be evicted even on mismatch")
	}
}
