package validate

import (
	"context"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/graph"
	"witnessdag.dev/core/storage"
)

// checkConflict is phase 8 (spec §4.5.1 step 8): for each author, units
// authored by the same address with mci > parent-max-limci (or mci NULL)
// are candidate double-spends unless they're already included in the view
// of this unit's parents. Among each conflicting pair the earlier unit (by
// level, then by id) keeps sequence=good; the later becomes temp-bad. The
// query is bounded at N_CONF and never logs the unbounded candidate set
// (callers log only the returned, already-bounded slice).
func checkConflict(ctx context.Context, r storage.Reader, u *dag.Unit, parentMaxLimci int64) (sequence string, demote []string, err error) {
	ownLevel, err := graph.Level(ctx, r, u.Parents)
	if err != nil {
		return "", nil, err
	}

	sequence = string(dag.SequenceGood)
	seen := make(map[string]struct{})

	for _, author := range u.Authors {
		candidates, cErr := r.ReadAuthorUnitsAfter(ctx, author.Address, parentMaxLimci, NConf)
		if cErr != nil {
			return "", nil, cErr
		}
		for _, candID := range candidates {
			if candID == u.UnitID {
				continue
			}
			if _, dup := seen[candID]; dup {
				continue
			}
			included, iErr := graph.DetermineIfIncluded(ctx, r, candID, u.Parents)
			if iErr != nil {
				return "", nil, iErr
			}
			if included {
				continue // already an ancestor of this unit; not a conflict
			}
			props, ok, pErr := r.ReadUnitProps(ctx, candID)
			if pErr != nil {
				return "", nil, pErr
			}
			if !ok || props.Sequence == string(dag.SequenceFinalBad) {
				continue
			}
			seen[candID] = struct{}{}

			candidateIsEarlier := props.Level < ownLevel || (props.Level == ownLevel && candID < u.UnitID)
			if candidateIsEarlier {
				sequence = string(dag.SequenceTempBad)
			} else {
				demote = append(demote, candID)
			}
		}
	}
	return sequence, demote, nil
}
