package validate

import (
	"context"

	"witnessdag.dev/core/storage"
)

// detectAATrigger is phase 10 (spec §4.5.1 step 10): mark whether this unit
// triggers any autonomous agent, by checking whether any payment output
// address has a registered AA definition. Execution of the AA response is
// deferred to main-chain advancement (spec §4.6.3's AATransitionRunner);
// this phase only records the fact for admission to persist.
func detectAATrigger(ctx context.Context, r storage.Reader, writes []messageWrite) (bool, error) {
	for _, w := range writes {
		for _, out := range w.newOutputs {
			_, found, err := r.ReadAADefinition(ctx, out.Address)
			if err != nil {
				return false, err
			}
			if found {
				return true, nil
			}
		}
	}
	return false, nil
}
