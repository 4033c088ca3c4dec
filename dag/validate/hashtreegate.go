package validate

import (
	"context"
	"sort"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// checkHashTreeGate is phase 6 (spec §4.5.1): only active during catchup.
// If a peer-supplied hash-tree batch already reserved a ball for this unit
// id, the unit's declared parents must agree with the balls that entry
// committed to. A mismatch rejects the unit and evicts the poisoned entry
// so a later, honest hash-tree batch (or the unit's eventual stabilization
// under its true parents) isn't blocked by it (spec §4.7.3 "no poisoning").
func checkHashTreeGate(ctx context.Context, r storage.Reader, ht storage.HashTreeStore, u *dag.Unit, params Params) error {
	if !params.IsCatchupMode || ht == nil {
		return nil
	}

	pending, ok, err := ht.FindPendingBallByUnit(ctx, u.UnitID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var parentBalls []string
	for _, parentID := range u.Parents {
		stable, sok, serr := r.ReadStableUnitProps(ctx, parentID)
		if serr != nil {
			return serr
		}
		if !sok {
			// A parent not yet stable can't be checked against a ball
			// commitment; defer the gate until it is.
			return nil
		}
		parentBalls = append(parentBalls, stable.BallID)
	}
	sort.Strings(parentBalls)

	want := append([]string(nil), pending.ParentBalls...)
	sort.Strings(want)

	if !equalStrings(parentBalls, want) {
		if evictErr := ht.EvictPendingBall(ctx, pending.BallID); evictErr != nil {
			return evictErr
		}
		return &dag.Error{Code: dag.ErrMalformed, Msg: "hash-tree ball commitment does not match this unit's parents"}
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
