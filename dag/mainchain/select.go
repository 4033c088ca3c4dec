package mainchain

import (
	"context"
	"fmt"

	"witnessdag.dev/core/storage"
)

// Querier is the storage surface the main-chain engine needs: graph
// traversal plus the best-children/free-tips indexes spec §4.6.1/§4.6.2
// rely on (storage.Reader already carries both, see storage/interfaces.go).
type Querier interface {
	storage.Reader
}

// SelectTip picks the free tip whose best-parent chain is the current
// main chain: highest witnessed_level, ties broken by highest level, then
// smallest unit id — the same ordering dag/graph.DetermineBestParent uses
// for a single parent set, generalized here to the whole free-tip set
// (spec §4.6.1).
func SelectTip(ctx context.Context, q Querier) (string, error) {
	tips, err := q.ReadFreeTips(ctx)
	if err != nil {
		return "", err
	}
	if len(tips) == 0 {
		return "", fmt.Errorf("mainchain: no free tips")
	}

	best := tips[0]
	bestWL, bestLevel, err := staticLevels(ctx, q, best)
	if err != nil {
		return "", err
	}
	for _, t := range tips[1:] {
		wl, lvl, err := staticLevels(ctx, q, t)
		if err != nil {
			return "", err
		}
		if wl > bestWL || (wl == bestWL && lvl > bestLevel) || (wl == bestWL && lvl == bestLevel && t < best) {
			best, bestWL, bestLevel = t, wl, lvl
		}
	}
	return best, nil
}

func staticLevels(ctx context.Context, q Querier, unitID string) (witnessedLevel, level int64, err error) {
	props, ok, err := q.ReadUnitProps(ctx, unitID)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, fmt.Errorf("mainchain: tip %s unknown", unitID)
	}
	return props.WitnessedLevel, props.Level, nil
}

// PathToStable walks best-parent edges from tip down to, and including,
// the first already-stable ancestor — the "frontier" spec §4.6.1 walks to
// when it says "to the last_stable_mci+1 frontier". The returned slice is
// oldest-first: index 0 is the stable ancestor, the rest are the current
// main chain's unstable candidates in MCI order.
func PathToStable(ctx context.Context, q Querier, tip string) ([]string, error) {
	var path []string
	cur := tip
	for cur != "" {
		props, ok, err := q.ReadUnitProps(ctx, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("mainchain: unit %s unknown", cur)
		}
		path = append(path, cur)
		if props.IsStable {
			break
		}
		cur = props.BestParent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}
