package mainchain

import (
	"context"
	"testing"

	"witnessdag.dev/core/storage"
)

func TestPayHeadersCommissionPicksLowestSiblingID(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	mustInsert(t, ctx, s, storage.UnitProps{UnitID: "ANCESTOR"})
	mustInsert(t, ctx, s, storage.UnitProps{UnitID: "CHARLIE_UNIT", BestParent: "ANCESTOR", Authors: []string{"charlie"}, WitnessedLevel: 9})
	mustInsert(t, ctx, s, storage.UnitProps{UnitID: "BOB_UNIT", BestParent: "ANCESTOR", Authors: []string{"bob"}, WitnessedLevel: 7})

	b, _ := s.OpenBatch(ctx)
	if err := PayHeadersCommission(ctx, s, b, "ANCESTOR", 100); err != nil {
		t.Fatalf("payHeadersCommission: %v", err)
	}
	if len(s.commissions) != 1 {
		t.Fatalf("expected one payout, got %d", len(s.commissions))
	}
	got := s.commissions[0]
	if got.Recipient != "bob" || got.Amount != 100 || got.Kind != commissionKindHeaders {
		t.Fatalf("unexpected payout: %+v (BOB_UNIT sorts before CHARLIE_UNIT, so bob must win)", got)
	}
}

func TestPayHeadersCommissionNoopWithoutBestChildren(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	mustInsert(t, ctx, s, storage.UnitProps{UnitID: "DEADEND"})

	b, _ := s.OpenBatch(ctx)
	if err := PayHeadersCommission(ctx, s, b, "DEADEND", 100); err != nil {
		t.Fatalf("payHeadersCommission: %v", err)
	}
	if len(s.commissions) != 0 {
		t.Fatalf("expected no payout for a unit with no best-children, got %+v", s.commissions)
	}
}

func TestPayWitnessingCommissionSplitsEvenly(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	b, _ := s.OpenBatch(ctx)
	if err := PayWitnessingCommission(ctx, b, "UNIT1", []string{"w1", "w2", "w3"}, 120); err != nil {
		t.Fatalf("payWitnessingCommission: %v", err)
	}
	if len(s.commissions) != 3 {
		t.Fatalf("expected 3 payouts, got %d", len(s.commissions))
	}
	for _, p := range s.commissions {
		if p.Amount != 40 || p.Kind != commissionKindWitnessing {
			t.Fatalf("unexpected payout: %+v", p)
		}
	}
}
