package validate

import (
	"context"
	"testing"

	"witnessdag.dev/core/storage"
)

func TestCheckWitnessDefinitionConstraintRejectsReferencingDefinition(t *testing.T) {
	store := newFakeStore()
	store.defs["W1"] = &storage.Definition{
		Address:    "W1",
		Tree:       []any{"seen", map[string]any{"address": "BOB"}},
		BoundAtMCI: 0,
	}
	u := baseUnit()
	err := checkWitnessDefinitionConstraint(context.Background(), store, []string{"W1"}, u, 0)
	if err == nil {
		t.Fatal("expected rejection of a witness bound to a referencing definition")
	}
}

func TestCheckWitnessDefinitionConstraintIgnoresNonWitnessAuthors(t *testing.T) {
	store := newFakeStore()
	u := baseUnit() // author ALICE, not in the witness set below
	err := checkWitnessDefinitionConstraint(context.Background(), store, []string{"SOMEONE_ELSE"}, u, 0)
	if err != nil {
		t.Fatalf("expected no-op for an author that isn't a witness, got %v", err)
	}
}
