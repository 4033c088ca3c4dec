package validate

import (
	"context"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/script"
	"witnessdag.dev/core/storage"
)

// checkWitnessDefinitionConstraint is phase 4 (spec §4.5.1): no witness
// address may have a definition containing references. Enforced both when
// a witness author reveals a new definition inline in this unit (evaluated
// with bNoReferences=true before acceptance) and against the already-bound
// definition of any witness, as defense in depth against a witness address
// somehow acquiring a referencing definition through a path this validator
// didn't anticipate.
func checkWitnessDefinitionConstraint(ctx context.Context, r storage.Reader, witnesses []string, u *dag.Unit, horizonMCI int64) error {
	witnessSet := make(map[string]struct{}, len(witnesses))
	for _, w := range witnesses {
		witnessSet[w] = struct{}{}
	}

	for _, author := range u.Authors {
		if _, isWitness := witnessSet[author.Address]; !isWitness {
			continue
		}
		if author.Definition != nil {
			node, err := script.ParseDefinition(author.Definition)
			if err != nil {
				return toDefErr(err)
			}
			if err := script.ValidateDefinition(node, true); err != nil {
				return toRefErr(err)
			}
			continue
		}
		def, ok, err := r.ReadDefinitionByAddress(ctx, author.Address, horizonMCI)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		node, err := script.ParseDefinition(def.Tree)
		if err != nil {
			return toDefErr(err)
		}
		if err := script.ValidateDefinition(node, true); err != nil {
			return toRefErr(err)
		}
	}
	return nil
}

func toDefErr(err error) *dag.Error {
	if e, ok := dag.AsError(err); ok {
		return e
	}
	return &dag.Error{Code: dag.ErrDefinitionMalformed, Msg: err.Error()}
}

func toRefErr(err error) *dag.Error {
	if script.IsReferenceNotAllowed(err) {
		return &dag.Error{Code: dag.ErrReferenceNotAllowed, Msg: err.Error()}
	}
	return toDefErr(err)
}
