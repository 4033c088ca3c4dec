// The phase-then-return-error shape composing Validate below is grounded
// in the teacher's consensus/connect_block_inmem.go
// ConnectBlockBasicInMemoryAtHeight: stateless checks first, then parse,
// then per-entry apply, then a single atomic commit — no callback
// nesting, early return at the first failing phase.
package validate

import (
	"context"
	"fmt"

	"witnessdag.dev/core/crypto"
	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/graph"
	"witnessdag.dev/core/storage"
)

// Deps bundles the collaborators Validate needs beyond the unit itself.
// HashTree may be nil outside catchup mode (phase 6 is then a no-op).
type Deps struct {
	Store    storage.Store
	HashTree storage.HashTreeStore
	Crypto   crypto.Provider
	Params   Params
}

// Validate runs all eleven phases (spec §4.5.1) against u and returns the
// terminal outcome. On Accepted, the unit and every derived write have
// already been committed through a batch opened and closed within this
// call; on any other outcome no persistent state changed (spec §4.5.2).
func Validate(ctx context.Context, deps Deps, u *dag.Unit) *Outcome {
	if err := checkShape(deps.Crypto, u, deps.Params); err != nil {
		return rejected(err.(*dag.Error))
	}

	missing, parentMaxLimci, err := checkParents(ctx, deps.Store, u)
	if err != nil {
		return rejectedOrTransient(err)
	}
	if len(missing) > 0 && !hashTreeCovers(ctx, deps.HashTree, u) {
		return needParents(missing)
	}

	witnesses, err := resolveWitnessList(ctx, deps.Store, u, parentMaxLimci, deps.Params)
	if err != nil {
		return rejectedOrTransient(err)
	}

	if err := checkWitnessDefinitionConstraint(ctx, deps.Store, witnesses, u, parentMaxLimci); err != nil {
		return rejectedOrTransient(err)
	}

	lastBallMCI, err := checkLastBall(ctx, deps.Store, u)
	if err != nil {
		return rejectedOrTransient(err)
	}

	if err := checkHashTreeGate(ctx, deps.Store, deps.HashTree, u, deps.Params); err != nil {
		return rejectedOrTransient(err)
	}

	if err := checkAuthors(ctx, deps.Store, deps.Crypto, u, witnesses, lastBallMCI); err != nil {
		return rejectedOrTransient(err)
	}

	sequence, demote, err := checkConflict(ctx, deps.Store, u, parentMaxLimci)
	if err != nil {
		return rejectedOrTransient(err)
	}

	writes, err := checkMessages(ctx, deps.Store, u, lastBallMCI)
	if err != nil {
		return rejectedOrTransient(err)
	}

	triggersAA, err := detectAATrigger(ctx, deps.Store, writes)
	if err != nil {
		return rejectedOrTransient(err)
	}

	bestParent, err := graph.DetermineBestParent(ctx, deps.Store, u.Parents)
	if err != nil {
		return transient(wrapTransient(err))
	}
	level, err := graph.Level(ctx, deps.Store, u.Parents)
	if err != nil {
		return transient(wrapTransient(err))
	}
	witnessedLevel, err := graph.WitnessedLevel(ctx, deps.Store, bestParent, witnesses)
	if err != nil {
		return transient(wrapTransient(err))
	}
	limci, err := graph.Limci(ctx, deps.Store, bestParent)
	if err != nil {
		return transient(wrapTransient(err))
	}

	batch, err := deps.Store.OpenBatch(ctx)
	if err != nil {
		return transient(wrapTransient(err))
	}
	res := admissionResult{
		level:          level,
		witnessedLevel: witnessedLevel,
		bestParent:     bestParent,
		limci:          limci,
		sequence:       sequence,
		demote:         demote,
		writes:         writes,
		triggersAA:     triggersAA,
	}
	if err := admit(ctx, batch, u, res); err != nil {
		_ = batch.Rollback()
		return transient(wrapTransient(err))
	}
	if err := batch.Commit(); err != nil {
		return transient(wrapTransient(err))
	}

	return accepted(dag.SequenceState(sequence))
}

func hashTreeCovers(ctx context.Context, ht storage.HashTreeStore, u *dag.Unit) bool {
	if ht == nil {
		return false
	}
	_, ok, err := ht.FindPendingBallByUnit(ctx, u.UnitID)
	return err == nil && ok
}

// rejectedOrTransient classifies a phase error: a *dag.Error marked
// Retriable (LastBallStaleOrMoved) surfaces as Transient so the caller may
// resubmit against fresher state; anything else not already a *dag.Error
// is itself a store-layer fault, also Transient.
func rejectedOrTransient(err error) *Outcome {
	if e, ok := dag.AsError(err); ok {
		if e.Retriable() {
			return transient(e)
		}
		return rejected(e)
	}
	return transient(wrapTransient(err))
}

func wrapTransient(err error) *dag.Error {
	return &dag.Error{Code: dag.ErrTransient, Msg: fmt.Sprintf("%v", err)}
}
