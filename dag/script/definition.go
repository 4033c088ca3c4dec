// Package script implements the definition/spending-condition evaluator
// (C4): a tagged-tree language of operators (spec §4.4) covering
// signature checks, set thresholds, data-feed lookups, attestations, and
// autonomous-agent triggers. Grounded on the teacher's covenant-type
// switch in consensus/validate.go (ValidateInputAuthorization), generalized
// from five fixed covenant kinds to an open operator tree.
package script

import (
	"fmt"

	"witnessdag.dev/core/dag"
)

// Op is one of the tagged-tree operators spec §4.4 names.
type Op string

const (
	OpSig            Op = "sig"
	OpHash           Op = "hash"
	OpAddress        Op = "address"
	OpROfSet         Op = "r of set"
	OpWeightedAnd    Op = "weighted and"
	OpOr             Op = "or"
	OpAnd            Op = "and"
	OpInDataFeed     Op = "in data feed"
	OpInMerkle       Op = "in merkle"
	OpHas            Op = "has"
	OpHasEqual       Op = "has equal"
	OpSum            Op = "sum"
	OpSeen           Op = "seen"
	OpAttested       Op = "attested"
	OpCosignedBy     Op = "cosigned by"
	OpNot            Op = "not"
	OpMCI            Op = "mci"
	OpTimestamp      Op = "timestamp"
	OpThisAddress    Op = "this address"
	OpAutonomousAgent Op = "autonomous agent"
)

// referenceOps are rejected under bNoReferences (spec §4.4, §4.5.1 step 4):
// any operator that can read state outside this unit's own authentifiers.
var referenceOps = map[Op]bool{
	OpAddress:        true,
	OpInDataFeed:     true,
	OpSeen:           true,
	OpAttested:       true,
	OpCosignedBy:     true,
	OpAutonomousAgent: true,
}

// Node is one definition-tree node: ["op", args...] in the wire format,
// represented here as a parsed tree.
type Node struct {
	Op       Op
	Args     map[string]any
	Children []*Node // for and/or/weighted and/not/r of set
	Weights  []float64 // parallel to Children, only for "weighted and"
}

// ParseDefinition converts the wire-format []any tree (["op", argsOrChildren])
// into a Node tree, rejecting malformed shapes and bounding depth at
// dag.DMax (spec §4.4 "depth bounded by D_MAX").
func ParseDefinition(raw any) (*Node, error) {
	return parseAt(raw, 0)
}

func parseAt(raw any, depth int) (*Node, error) {
	if depth > dag.DMax {
		return nil, defErr("definition nesting exceeds D_MAX")
	}
	arr, ok := raw.([]any)
	if !ok || len(arr) != 2 {
		return nil, defErr("definition node must be [op, args]")
	}
	opStr, ok := arr[0].(string)
	if !ok {
		return nil, defErr("definition op must be a string")
	}
	op := Op(opStr)

	switch op {
	case OpAnd, OpOr:
		children, ok := arr[1].([]any)
		if !ok || len(children) == 0 {
			return nil, defErr(fmt.Sprintf("%s requires a non-empty child list", op))
		}
		n := &Node{Op: op}
		for _, c := range children {
			child, err := parseAt(c, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil
	case OpNot:
		child, err := parseAt(arr[1], depth+1)
		if err != nil {
			return nil, err
		}
		return &Node{Op: op, Children: []*Node{child}}, nil
	case OpWeightedAnd:
		obj, ok := arr[1].(map[string]any)
		if !ok {
			return nil, defErr("weighted and requires an object arg")
		}
		rawSet, ok := obj["set"].([]any)
		if !ok {
			return nil, defErr("weighted and requires a set array")
		}
		requiredWeight, _ := obj["required"].(float64)
		n := &Node{Op: op, Args: map[string]any{"required": requiredWeight}}
		for _, entry := range rawSet {
			pair, ok := entry.(map[string]any)
			if !ok {
				return nil, defErr("weighted and set entry malformed")
			}
			weight, _ := pair["weight"].(float64)
			child, err := parseAt(pair["value"], depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
			n.Weights = append(n.Weights, weight)
		}
		return n, nil
	case OpROfSet:
		obj, ok := arr[1].(map[string]any)
		if !ok {
			return nil, defErr("r of set requires an object arg")
		}
		rawSet, ok := obj["set"].([]any)
		if !ok || len(rawSet) == 0 {
			return nil, defErr("r of set requires a non-empty set array")
		}
		r, _ := obj["required"].(float64)
		if r <= 0 || int(r) > len(rawSet) {
			return nil, defErr("r of set: required out of range")
		}
		n := &Node{Op: op, Args: map[string]any{"required": r}}
		for _, c := range rawSet {
			child, err := parseAt(c, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil
	case OpSum:
		obj, _ := arr[1].(map[string]any)
		if err := validateSumArgs(obj); err != nil {
			return nil, err
		}
		return &Node{Op: op, Args: obj}, nil
	default:
		obj, _ := arr[1].(map[string]any)
		return &Node{Op: op, Args: obj}, nil
	}
}

func validateSumArgs(obj map[string]any) error {
	if obj == nil {
		return defErr("sum requires an object arg")
	}
	_, hasEquals := obj["equals"]
	_, hasAtLeast := obj["at_least"]
	_, hasAtMost := obj["at_most"]
	if hasEquals && (hasAtLeast || hasAtMost) {
		return defErr("sum: equals may not be combined with at_least/at_most")
	}
	if hasAtLeast && hasAtMost {
		atLeast, _ := obj["at_least"].(float64)
		atMost, _ := obj["at_most"].(float64)
		if atLeast > atMost {
			return defErr("at_least > at_most")
		}
	}
	if filter, ok := obj["filter"].(map[string]any); ok {
		_, hasFAtLeast := filter["amount_at_least"]
		_, hasFAtMost := filter["amount_at_most"]
		if hasFAtLeast && hasFAtMost {
			fAtLeast, _ := filter["amount_at_least"].(float64)
			fAtMost, _ := filter["amount_at_most"].(float64)
			if fAtLeast > fAtMost {
				return defErr("filter: amount_at_least > amount_at_most")
			}
		}
	}
	return nil
}

func defErr(msg string) error {
	return &dag.Error{Code: dag.ErrDefinitionMalformed, Msg: msg}
}
