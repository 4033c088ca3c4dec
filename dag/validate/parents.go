package validate

import (
	"context"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// checkParents is phase 2 (spec §4.5.1): every parent must exist and be
// good or temp-bad. Missing parents are reported (not an error) so the
// caller can issue NeedParents — unless a hash-tree commitment covers this
// unit, handled separately by the hash-tree-gate phase.
func checkParents(ctx context.Context, r storage.Reader, u *dag.Unit) (missing []string, parentMaxLimci int64, err error) {
	for _, parentID := range u.Parents {
		props, ok, rErr := r.ReadUnitProps(ctx, parentID)
		if rErr != nil {
			return nil, 0, rErr
		}
		if !ok {
			missing = append(missing, parentID)
			continue
		}
		if props.Sequence == string(dag.SequenceFinalBad) {
			return nil, 0, &dag.Error{Code: dag.ErrMalformed, Msg: "parent is final-bad"}
		}
		if props.Limci > parentMaxLimci {
			parentMaxLimci = props.Limci
		}
	}
	return missing, parentMaxLimci, nil
}
