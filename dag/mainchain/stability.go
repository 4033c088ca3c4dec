package mainchain

import (
	"context"
	"fmt"
	"runtime"
)

// IsStable reports whether main-chain candidate u may become stable: true
// iff no alternative branch — the subtree of best-children hanging off u's
// best parent, other than u itself — can reach a witnessed_level that
// would overtake u's (spec §4.6.2). Genesis (no best parent) has no
// alternative branches and is always stable.
func IsStable(ctx context.Context, q Querier, u string) (bool, error) {
	props, ok, err := q.ReadUnitProps(ctx, u)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("mainchain: unit %s unknown", u)
	}
	if props.BestParent == "" {
		return true, nil
	}

	maxAlt, err := maxAltWitnessedLevel(ctx, q, props.BestParent, u)
	if err != nil {
		return false, err
	}
	return props.WitnessedLevel >= maxAlt, nil
}

// maxAltWitnessedLevel computes the highest witnessed_level reachable
// anywhere in the subtree of best-children rooted at bestParent, excluding
// the exclude unit (u) and everything under it. Traversal uses a visited
// set keyed by unit id so no unit is revisited even if queued twice —
// O(1) membership per step gives O(N) total work for N alternative units,
// not the O(N^2) a list-difference approach would cost (spec §4.6.2,
// testable property E requires this at N=10,000). The walk yields the
// processor after every 100 visited units.
func maxAltWitnessedLevel(ctx context.Context, q Querier, bestParent, exclude string) (int64, error) {
	roots, err := q.ReadBestChildren(ctx, bestParent)
	if err != nil {
		return 0, err
	}

	visited := make(map[string]struct{})
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == exclude {
			continue
		}
		queue = append(queue, r)
	}

	var maxWL int64
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		if len(visited)%100 == 0 {
			runtime.Gosched()
		}

		props, ok, err := q.ReadUnitProps(ctx, id)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if props.WitnessedLevel > maxWL {
			maxWL = props.WitnessedLevel
		}

		children, err := q.ReadBestChildren(ctx, id)
		if err != nil {
			return 0, err
		}
		queue = append(queue, children...)
	}
	return maxWL, nil
}
