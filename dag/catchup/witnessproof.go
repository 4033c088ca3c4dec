package catchup

import (
	"context"
	"fmt"

	"witnessdag.dev/core/crypto"
	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/graph"
	"witnessdag.dev/core/dag/mainchain"
	"witnessdag.dev/core/dag/script"
	"witnessdag.dev/core/storage"
)

// Request is what a lagging node sends to start a catchup-chain exchange
// (spec §4.7.1).
type Request struct {
	LastStableMCI int64
	Witnesses     []string
}

// Joint is one witness-proof entry: a full unit, transmitted so the lagger
// can re-derive its id and re-check its signatures without trusting the
// peer (spec §4.7.1, §4.7.2).
type Joint struct {
	Unit *dag.Unit
}

// Response is the peer's reply to a Request (spec §4.7.1): the witness
// proof itself, the unit whose last_ball the lagger should advance its
// cursor to, and the ball chain bridging the lagger's old cursor to that
// unit's stable ball.
type Response struct {
	WitnessProof       []Joint
	StableLastBallUnit string
	BallChain          []storage.Ball // oldest-first
}

// BuildWitnessProof serves a Request: starting from the peer's own current
// tip, it walks the unstable portion of the main chain newest-first,
// collecting joints until a majority of req.Witnesses has authored one of
// them, then attaches the ball chain from the lagger's cursor up to the
// pinned last_ball_unit (spec §4.7.1). Grounded on the teacher's
// SyncEngine.HeaderSyncRequest, generalized from "walk back from my tip
// hash" to "walk back from my tip along the main chain".
func BuildWitnessProof(ctx context.Context, q mainchain.Querier, req Request) (*Response, error) {
	tip, err := mainchain.SelectTip(ctx, q)
	if err != nil {
		return nil, err
	}
	path, err := mainchain.PathToStable(ctx, q, tip) // oldest-first, path[0] stable
	if err != nil {
		return nil, err
	}
	if len(path) <= 1 {
		return &Response{}, nil
	}

	witnessSet := make(map[string]struct{}, len(req.Witnesses))
	for _, w := range req.Witnesses {
		witnessSet[w] = struct{}{}
	}

	seen := make(map[string]struct{}, len(req.Witnesses))
	var proof []Joint
	var stableLastBallUnit string

	for i := len(path) - 1; i >= 1; i-- {
		unitID := path[i]
		u, ok, err := q.ReadFullUnit(ctx, unitID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("catchup: unit %s has no stored body", unitID)
		}
		proof = append(proof, Joint{Unit: u})

		if stableLastBallUnit == "" && u.LastBallUnit != "" {
			stableLastBallUnit = u.LastBallUnit
		}
		for _, a := range u.Authors {
			if _, isWitness := witnessSet[a.Address]; isWitness {
				seen[a.Address] = struct{}{}
			}
		}
		if len(seen) >= graph.Majority {
			break
		}
	}

	resp := &Response{WitnessProof: proof, StableLastBallUnit: stableLastBallUnit}
	if stableLastBallUnit != "" {
		chain, err := buildBallChain(ctx, q, req.LastStableMCI, stableLastBallUnit)
		if err != nil {
			return nil, err
		}
		resp.BallChain = chain
	}
	return resp, nil
}

func buildBallChain(ctx context.Context, q mainchain.Querier, fromMCI int64, lastBallUnit string) ([]storage.Ball, error) {
	stable, ok, err := q.ReadStableUnitProps(ctx, lastBallUnit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catchup: last_ball_unit %s is not stable", lastBallUnit)
	}
	var chain []storage.Ball
	for mci := fromMCI + 1; mci <= stable.MCI; mci++ {
		if int64(len(chain)) >= LChain {
			break
		}
		ballID, found, err := q.ReadBallAtMCI(ctx, mci)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		b, ok, err := q.ReadBall(ctx, ballID)
		if err != nil {
			return nil, err
		}
		if ok {
			chain = append(chain, *b)
		}
	}
	return chain, nil
}

// ValidateWitnessProof is the lagger's side (spec §4.7.2). It first runs
// the cheap O(n) preliminary witness scan over every joint's declared
// authors and rejects immediately if that can't reach majority, BEFORE
// doing any per-unit hash or signature check — this bounds the cost an
// adversarial peer can impose with a bogus proof. It then walks the proof
// newest-first, re-deriving each unit's id, checking its authors' sig
// under bNoReferences rules, and confirming the declared parent-chain
// link to the previous (newer) joint, stopping once a real majority is
// confirmed and a last_ball_unit is pinned. On success it returns that
// last_ball_unit.
func ValidateWitnessProof(hp dag.HashProvider, cp crypto.Provider, resp *Response, witnesses []string) (string, error) {
	witnessSet := make(map[string]struct{}, len(witnesses))
	for _, w := range witnesses {
		witnessSet[w] = struct{}{}
	}

	declaredSeen := make(map[string]struct{}, len(witnesses))
	for _, j := range resp.WitnessProof {
		for _, a := range j.Unit.Authors {
			if _, ok := witnessSet[a.Address]; ok {
				declaredSeen[a.Address] = struct{}{}
			}
		}
	}
	if len(declaredSeen) < graph.Majority {
		return "", &dag.Error{Code: dag.ErrMalformed, Msg: "witness proof does not declare majority witness coverage"}
	}

	revealed := map[string]any{}
	confirmed := make(map[string]struct{}, len(witnesses))
	var prevParents []string
	var lastBallUnit string

	for i, j := range resp.WitnessProof {
		gotID, err := j.Unit.DeriveUnitID(hp)
		if err != nil {
			return "", err
		}
		if j.Unit.UnitID != "" && j.Unit.UnitID != gotID {
			return "", &dag.Error{Code: dag.ErrMalformed, Msg: "witness proof unit id does not match its declared contents"}
		}
		if i > 0 && !containsString(prevParents, gotID) {
			return "", &dag.Error{Code: dag.ErrMalformed, Msg: "witness proof parent chain does not link"}
		}

		if err := validateAuthorSignaturesNoReferences(cp, j.Unit, revealed); err != nil {
			return "", err
		}
		for _, a := range j.Unit.Authors {
			if a.Definition != nil {
				revealed[a.Address] = a.Definition
			}
			if _, ok := witnessSet[a.Address]; ok {
				confirmed[a.Address] = struct{}{}
			}
		}
		if lastBallUnit == "" && j.Unit.LastBallUnit != "" {
			lastBallUnit = j.Unit.LastBallUnit
		}
		prevParents = j.Unit.Parents

		if len(confirmed) >= graph.Majority && lastBallUnit != "" {
			break
		}
	}
	if len(confirmed) < graph.Majority {
		return "", &dag.Error{Code: dag.ErrMalformed, Msg: "witness proof joints do not actually reach majority once validated"}
	}
	if lastBallUnit == "" {
		return "", &dag.Error{Code: dag.ErrMalformed, Msg: "witness proof never pinned a last_ball_unit"}
	}
	if err := ValidateBallChain(hp, resp.BallChain); err != nil {
		return "", err
	}
	return lastBallUnit, nil
}

// ValidateBallChain re-hashes every ball in a proof chain from its declared
// unit, parent balls, and skiplist balls, rejecting the first one that
// doesn't reproduce its own ball id (spec §4.7.2 "re-hashed locally").
func ValidateBallChain(hp dag.HashProvider, chain []storage.Ball) error {
	for _, b := range chain {
		ball := dag.Ball{
			UnitID:        b.UnitID,
			ParentBalls:   b.ParentBalls,
			SkiplistBalls: b.SkiplistBalls,
			IsNonserial:   b.IsNonserial,
		}
		gotID, err := ball.DeriveBallID(hp)
		if err != nil {
			return err
		}
		if gotID != b.BallID {
			return &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("proof-chain ball %s does not re-hash from its declared unit/parent/skiplist balls", b.BallID)}
		}
	}
	return nil
}

// validateAuthorSignaturesNoReferences validates one joint's authors the
// way checkAuthors does (dag/validate/authors.go), except bNoReferences is
// always forced true: proof validation must never chase an "address"/
// "in data feed"/etc. reference into state the lagger hasn't synced yet
// (spec §4.7.2 "under bNoReferences rules"). A definition is only usable
// if this joint reveals it inline or an earlier joint in the same proof
// already did.
func validateAuthorSignaturesNoReferences(cp crypto.Provider, u *dag.Unit, revealed map[string]any) error {
	for _, author := range u.Authors {
		var tree any
		switch {
		case author.Definition != nil:
			ok, err := dag.ValidateAddress(cp, author.Address, author.Definition)
			if err != nil {
				return &dag.Error{Code: dag.ErrDefinitionMalformed, Msg: err.Error()}
			}
			if !ok {
				return &dag.Error{Code: dag.ErrDefinitionMalformed, Msg: fmt.Sprintf("inline definition chash does not match author address %s", author.Address)}
			}
			tree = author.Definition
		case revealed[author.Address] != nil:
			tree = revealed[author.Address]
		default:
			return &dag.Error{Code: dag.ErrDefinitionMalformed, Msg: fmt.Sprintf("author %s has no definition revealed anywhere in the witness proof", author.Address)}
		}

		node, err := script.ParseDefinition(tree)
		if err != nil {
			return err
		}
		if err := script.ValidateDefinition(node, true); err != nil {
			return err
		}

		ec := &script.EvalContext{
			Crypto:        cp,
			UnitID:        u.UnitID,
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

func containsString(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}
