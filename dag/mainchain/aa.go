package mainchain

import (
	"context"

	"witnessdag.dev/core/storage"
)

// AATransitionRunner executes an autonomous agent's deterministic state
// transition once its triggering unit (or a prior response it reacts to)
// becomes stable. Open Question 3 resolves AA execution to this point —
// stabilization time, not admission time — so every node runs the
// transition from the same committed state and reaches the same result
// deterministically (spec §4.6.3 step 4). Any response units the
// transition produces are appended to the DAG by the implementation,
// through the same batch, so they persist atomically with the triggering
// unit's ball commit; the mainchain engine itself does not interpret AA
// bytecode.
type AATransitionRunner interface {
	RunTransition(ctx context.Context, b storage.Batch, unitID string) error
}

// noopAATransitionRunner is used when a deployment carries no AA support
// configured; TriggersAA units simply stabilize without a transition.
type noopAATransitionRunner struct{}

func (noopAATransitionRunner) RunTransition(context.Context, storage.Batch, string) error {
	return nil
}
