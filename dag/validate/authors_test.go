package validate

import (
	"context"
	"testing"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

func TestCheckAuthorsAcceptsBoundDefinition(t *testing.T) {
	store := newFakeStore()
	store.defs["ALICE"] = &storage.Definition{
		Address:    "ALICE",
		Tree:       []any{"sig", map[string]any{"pubkey": "deadbeef", "path": "r"}},
		BoundAtMCI: 0,
	}
	cp := fakeCrypto{acceptSig: true}
	u := &dag.Unit{
		UnitID:  "U1",
		Authors: []dag.Author{{Address: "ALICE", Authentifiers: map[string]string{"r": "beefdead"}}},
	}
	if err := checkAuthors(context.Background(), store, cp, u, nil, 0); err != nil {
		t.Fatalf("checkAuthors: %v", err)
	}
}

func TestCheckAuthorsRejectsMissingDefinition(t *testing.T) {
	store := newFakeStore()
	cp := fakeCrypto{acceptSig: true}
	u := &dag.Unit{
		UnitID:  "U1",
		Authors: []dag.Author{{Address: "NOBODY", Authentifiers: map[string]string{"r": "beefdead"}}},
	}
	if err := checkAuthors(context.Background(), store, cp, u, nil, 0); err == nil {
		t.Fatal("expected error for an author with no bound or inline definition")
	}
}

func TestCheckAuthorsEnforcesNoReferencesForWitness(t *testing.T) {
	store := newFakeStore()
	store.defs["ALICE"] = &storage.Definition{
		Address: "ALICE",
		// "seen" is a referenceOp and must be rejected for a witness author.
		Tree:       []any{"seen", map[string]any{"address": "BOB"}},
		BoundAtMCI: 0,
	}
	cp := fakeCrypto{acceptSig: true}
	u := &dag.Unit{
		UnitID:  "U1",
		Authors: []dag.Author{{Address: "ALICE", Authentifiers: map[string]string{}}},
	}
	if err := checkAuthors(context.Background(), store, cp, u, []string{"ALICE"}, 0); err == nil {
		t.Fatal("expected rejection of a referencing definition for a witness address")
	}
}
