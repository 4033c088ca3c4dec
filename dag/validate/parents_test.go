package validate

import (
	"context"
	"testing"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

func TestCheckParentsReportsMissing(t *testing.T) {
	store := newFakeStore()
	u := &dag.Unit{Parents: []string{"UNKNOWN"}}
	missing, _, err := checkParents(context.Background(), store, u)
	if err != nil {
		t.Fatalf("checkParents: %v", err)
	}
	if len(missing) != 1 || missing[0] != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN reported missing, got %v", missing)
	}
}

func TestCheckParentsRejectsFinalBadParent(t *testing.T) {
	store := newFakeStore()
	store.putUnit(&storage.UnitProps{UnitID: "BAD", Sequence: string(dag.SequenceFinalBad)})
	u := &dag.Unit{Parents: []string{"BAD"}}
	_, _, err := checkParents(context.Background(), store, u)
	if err == nil {
		t.Fatal("expected rejection of a final-bad parent")
	}
}

func TestCheckParentsTracksMaxLimci(t *testing.T) {
	store := newFakeStore()
	store.putUnit(&storage.UnitProps{UnitID: "P1", Limci: 3, Sequence: string(dag.SequenceGood)})
	store.putUnit(&storage.UnitProps{UnitID: "P2", Limci: 7, Sequence: string(dag.SequenceGood)})
	u := &dag.Unit{Parents: []string{"P1", "P2"}}
	_, maxLimci, err := checkParents(context.Background(), store, u)
	if err != nil {
		t.Fatalf("checkParents: %v", err)
	}
	if maxLimci != 7 {
		t.Fatalf("expected max limci 7, got %d", maxLimci)
	}
}
