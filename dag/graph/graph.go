// Package graph implements the DAG traversal primitives the validator and
// main-chain engine both depend on: best-parent selection, witnessed-level
// computation, level, limci, and inclusion queries (spec §4.3). Grounded on
// the teacher's fork_choice.go chain-work-accumulation shape, generalized
// from a single best-chain comparison to a multi-parent DAG walk. The
// alternative-branch traversal is not in this package: it lives in
// dag/mainchain (stability.go), which uses a reference-pack pattern
// (daglabs-btcd's blueScore walk / prysm's fork-choice tree) for
// hash-set-membership traversal over a set that never shrinks.
package graph

import (
	"context"
	"fmt"
	"sort"

	"witnessdag.dev/core/storage"
)

// W is the protocol's witness-list size and Majority the count of distinct
// witness authors a best-parent-chain walk must observe to seal a
// witnessed level (spec §4.3: "majority (⌈2W/3⌉ = 7 of 12"). Both are
// compile-time constants here; SPEC_FULL §6.4 treats the witness-list MCI
// cutover as configurable but these counts are the protocol's, not a
// deployment knob.
const (
	W        = 12
	Majority = 7
)

// Querier is the minimal storage surface graph queries need.
type Querier interface {
	storage.Reader
}

// Level returns 1 + max(level of parents); genesis (no parents) is 0
// (spec §4.3).
func Level(ctx context.Context, q Querier, parents []string) (int64, error) {
	if len(parents) == 0 {
		return 0, nil
	}
	var max int64 = -1
	for _, p := range parents {
		props, ok, err := q.ReadUnitProps(ctx, p)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("graph: parent %s unknown", p)
		}
		if props.Level > max {
			max = props.Level
		}
	}
	return max + 1, nil
}

// DetermineBestParent picks the parent with the highest witnessed_level,
// ties broken by highest level, then by smallest unit id bytewise
// (spec §4.3; tie-break rule confirmed as an Open Question decision in
// DESIGN.md).
func DetermineBestParent(ctx context.Context, q Querier, parents []string) (string, error) {
	if len(parents) == 0 {
		return "", fmt.Errorf("graph: no parents")
	}
	type candidate struct {
		unitID         string
		witnessedLevel int64
		level          int64
	}
	candidates := make([]candidate, 0, len(parents))
	for _, p := range parents {
		props, ok, err := q.ReadUnitProps(ctx, p)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("graph: parent %s unknown", p)
		}
		candidates = append(candidates, candidate{unitID: p, witnessedLevel: props.WitnessedLevel, level: props.Level})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.witnessedLevel != b.witnessedLevel {
			return a.witnessedLevel > b.witnessedLevel
		}
		if a.level != b.level {
			return a.level > b.level
		}
		return a.unitID < b.unitID
	})
	return candidates[0].unitID, nil
}

// WitnessedLevel walks the best-parent chain from unit, collecting distinct
// witness authors, until Majority of the witness list (witnesses) has been
// observed; the returned value is the level of the unit that sealed the
// majority (spec §4.3).
func WitnessedLevel(ctx context.Context, q Querier, unitID string, witnesses []string) (int64, error) {
	witnessSet := make(map[string]struct{}, len(witnesses))
	for _, w := range witnesses {
		witnessSet[w] = struct{}{}
	}
	seen := make(map[string]struct{}, Majority)

	cur := unitID
	for cur != "" {
		props, ok, err := q.ReadUnitProps(ctx, cur)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("graph: unit %s unknown", cur)
		}
		for _, author := range props.Authors {
			if _, isWitness := witnessSet[author]; !isWitness {
				continue
			}
			if _, already := seen[author]; already {
				continue
			}
			seen[author] = struct{}{}
			if len(seen) >= Majority {
				return props.Level, nil
			}
		}
		if props.BestParent == "" {
			break
		}
		cur = props.BestParent
	}
	return 0, nil // genesis or insufficient witness coverage yet
}

// Limci returns the max mci of any stable ancestor of unit
// (latest_included_mc_index, spec §4.3). It walks best-parent edges until
// it finds an ancestor with a non-nil MainChainIndex.
func Limci(ctx context.Context, q Querier, unitID string) (int64, error) {
	cur := unitID
	for cur != "" {
		props, ok, err := q.ReadUnitProps(ctx, cur)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("graph: unit %s unknown", cur)
		}
		if props.IsStable && props.MainChainIndex != nil {
			return *props.MainChainIndex, nil
		}
		if props.BestParent == "" {
			return 0, nil
		}
		cur = props.BestParent
	}
	return 0, nil
}

// DetermineIfIncluded reports whether ancestor lies on some best-parent
// path from every unit in descendants — implemented as a bounded
// memoized walk rather than a fresh traversal per descendant, since a
// validator commonly asks this question for the same ancestor against
// many sibling descendants within one validation pass (spec §4.3).
func DetermineIfIncluded(ctx context.Context, q Querier, ancestor string, descendants []string) (bool, error) {
	memo := make(map[string]bool)
	for _, d := range descendants {
		included, err := includedFrom(ctx, q, ancestor, d, memo)
		if err != nil {
			return false, err
		}
		if !included {
			return false, nil
		}
	}
	return true, nil
}

// includedFrom walks every parent edge out of from (not just BestParent),
// since ancestor may be reachable only through a non-best parent (spec
// §4.3: "any best-parent-or-parents path"). memo caches, per unit id, a
// result that holds regardless of which descendant reached it — id
// includes ancestor in its parent closure, or it doesn't — so it is
// always valid to reuse across the outer loop's descendants and across
// different branches of the same walk. visiting guards against a cycle,
// which should never occur in a DAG.
func includedFrom(ctx context.Context, q Querier, ancestor, from string, memo map[string]bool) (bool, error) {
	visiting := make(map[string]struct{})
	var walk func(id string) (bool, error)
	walk = func(id string) (bool, error) {
		if v, ok := memo[id]; ok {
			return v, nil
		}
		if id == ancestor {
			memo[id] = true
			return true, nil
		}
		if _, cyc := visiting[id]; cyc {
			return false, nil
		}
		visiting[id] = struct{}{}
		defer delete(visiting, id)

		props, ok, err := q.ReadUnitProps(ctx, id)
		if err != nil {
			return false, err
		}
		if !ok {
			memo[id] = false
			return false, nil
		}
		for _, p := range props.Parents {
			included, err := walk(p)
			if err != nil {
				return false, err
			}
			if included {
				memo[id] = true
				return true, nil
			}
		}
		memo[id] = false
		return false, nil
	}
	return walk(from)
}
