// Package validate implements the unit validator (C5): the 11-phase state
// machine turning a parsed unit into Accepted/Rejected/NeedParents/
// NeedHashTree/Transient (spec §4.5). Each phase is a precondition for the
// next, grounded on the teacher's ConnectBlockBasicInMemoryAtHeight /
// ApplyNonCoinbaseTxBasicUpdate linear phase-then-return-error shape
// (consensus/connect_block_inmem.go), generalized from a single-parent
// UTXO chain's block-apply sequence to an 11-phase multi-parent DAG
// admission pipeline.
package validate

import "witnessdag.dev/core/dag"

// OutcomeKind is one of the five terminal states §4.5 names.
type OutcomeKind string

const (
	Accepted    OutcomeKind = "accepted"
	Rejected    OutcomeKind = "rejected"
	NeedParents OutcomeKind = "need_parents"
	NeedHashTree OutcomeKind = "need_hash_tree"
	Transient   OutcomeKind = "transient"
)

// Outcome is what Validate returns. Exactly one of the kind-specific fields
// is meaningful for a given Kind.
type Outcome struct {
	Kind           OutcomeKind
	Err            *dag.Error // Rejected, Transient
	MissingParents []string   // NeedParents
	Sequence       dag.SequenceState // Accepted
}

func accepted(seq dag.SequenceState) *Outcome {
	return &Outcome{Kind: Accepted, Sequence: seq}
}

func rejected(err *dag.Error) *Outcome {
	return &Outcome{Kind: Rejected, Err: err}
}

func needParents(ids []string) *Outcome {
	return &Outcome{Kind: NeedParents, MissingParents: ids}
}

func needHashTree() *Outcome {
	return &Outcome{Kind: NeedHashTree}
}

func transient(err *dag.Error) *Outcome {
	return &Outcome{Kind: Transient, Err: err}
}
