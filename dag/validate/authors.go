package validate

import (
	"context"
	"fmt"

	"witnessdag.dev/core/crypto"
	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/script"
	"witnessdag.dev/core/storage"
)

// checkAuthors is phase 7 (spec §4.5.1 step 7): each author's definition is
// either already bound at last_ball_mci or revealed inline with a chash
// matching the author's address, then validate_definition and evaluate run
// against the unit id to verify every declared authentifier.
func checkAuthors(ctx context.Context, r storage.Reader, cp crypto.Provider, u *dag.Unit, witnesses []string, lastBallMCI int64) error {
	witnessSet := make(map[string]struct{}, len(witnesses))
	for _, w := range witnesses {
		witnessSet[w] = struct{}{}
	}

	for _, author := range u.Authors {
		var tree any
		if author.Definition != nil {
			ok, err := dag.ValidateAddress(cp, author.Address, author.Definition)
			if err != nil {
				return &dag.Error{Code: dag.ErrDefinitionMalformed, Msg: err.Error()}
			}
			if !ok {
				return &dag.Error{Code: dag.ErrDefinitionMalformed, Msg: fmt.Sprintf("inline definition chash does not match author address %s", author.Address)}
			}
			tree = author.Definition
		} else {
			def, found, err := r.ReadDefinitionByAddress(ctx, author.Address, lastBallMCI)
			if err != nil {
				return err
			}
			if !found {
				return &dag.Error{Code: dag.ErrDefinitionMalformed, Msg: fmt.Sprintf("author %s has no definition bound at last_ball_mci=%d and none revealed inline", author.Address, lastBallMCI)}
			}
			tree = def.Tree
		}

		node, err := script.ParseDefinition(tree)
		if err != nil {
			return toDefErr(err)
		}
		_, isWitness := witnessSet[author.Address]
		if err := script.ValidateDefinition(node, isWitness); err != nil {
			return toRefErr(err)
		}

		ec := &script.EvalContext{
			Ctx:           ctx,
			Store:         r,
			Crypto:        cp,
			UnitID:        u.UnitID,
			HorizonMCI:    lastBallMCI,
			Authentifiers: author.Authentifiers,
			ThisAddress:   author.Address,
			UnitAuthors:   authorAddresses(u.Authors),
			UnitTimestamp: u.Timestamp,
		}
		ok, err := script.Evaluate(node, ec)
		if err != nil {
			return err
		}
		if !ok {
			return &dag.Error{Code: dag.ErrEvaluatedFalse, Msg: fmt.Sprintf("authentifiers for %s did not satisfy its definition", author.Address)}
		}
	}
	return nil
}

func authorAddresses(authors []dag.Author) []string {
	out := make([]string, len(authors))
	for i, a := range authors {
		out[i] = a.Address
	}
	return out
}
