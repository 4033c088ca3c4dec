package script

import (
	"fmt"

	"witnessdag.dev/core/dag"
)

// queryOps are the operators evaluate.go charges a unit-read against (its
// chargeQuery call sites): an address lookup, a data-feed/attestation
// read, a seen-address probe, or an AA definition lookup. ValidateDefinition
// counts these statically so a definition that can never evaluate within
// Q_MAX is rejected up front (spec §8 scenario F) rather than only
// discovered mid-evaluation.
var queryOps = map[Op]bool{
	OpAddress:         true,
	OpInDataFeed:      true,
	OpAttested:        true,
	OpSeen:            true,
	OpAutonomousAgent: true,
}

// ValidateDefinition statically checks a parsed definition tree: structure
// was already enforced by ParseDefinition; this pass enforces the
// cross-cutting constraints spec §4.4 lists separately — principally the
// witness no-references rule (§4.5.1 step 4) and the Q_MAX unit-read
// budget evaluation would otherwise only discover partway through.
func ValidateDefinition(n *Node, bNoReferences bool) error {
	queries := 0
	if err := validateAt(n, bNoReferences, 0, &queries); err != nil {
		return err
	}
	if queries > QMax {
		return &dag.Error{Code: dag.ErrComplexityExceeded, Msg: fmt.Sprintf("definition requires %d unit-reads, exceeds Q_MAX=%d", queries, QMax)}
	}
	return nil
}

func validateAt(n *Node, bNoReferences bool, depth int, queries *int) error {
	if n == nil {
		return defErr("nil definition node")
	}
	if depth > dag.DMax {
		return defErr("definition nesting exceeds D_MAX")
	}
	if bNoReferences && referenceOps[n.Op] {
		return &refErr{op: n.Op}
	}
	if queryOps[n.Op] {
		*queries++
	}
	switch n.Op {
	case OpSig:
		if n.Args["pubkey"] == nil && n.Args["address"] == nil {
			return defErr("sig requires pubkey or address")
		}
	case OpHash:
		if n.Args["hash"] == nil {
			return defErr("hash requires a target hash")
		}
	case OpAddress:
		if _, ok := n.Args["address"].(string); !ok {
			return defErr("address operator requires an address string")
		}
	case OpWeightedAnd:
		required, _ := n.Args["required"].(float64)
		var total float64
		for _, w := range n.Weights {
			total += w
		}
		if required <= 0 || required > total {
			return defErr("weighted and: required weight unreachable")
		}
	}
	for _, c := range n.Children {
		if err := validateAt(c, bNoReferences, depth+1, queries); err != nil {
			return err
		}
	}
	return nil
}

type refErr struct{ op Op }

func (e *refErr) Error() string {
	return fmt.Sprintf("reference operator %q not allowed under bNoReferences", e.op)
}

// IsReferenceNotAllowed reports whether err was produced by the
// bNoReferences check. That error is a plain *refErr rather than a
// *dag.Error, so callers map it to dag.ErrReferenceNotAllowed themselves.
func IsReferenceNotAllowed(err error) bool {
	_, ok := err.(*refErr)
	return ok
}
