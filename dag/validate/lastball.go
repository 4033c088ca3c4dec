package validate

import (
	"context"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/graph"
	"witnessdag.dev/core/storage"
)

// checkLastBall is phase 5 (spec §4.5.1): last_ball_unit must be stable and
// on the main chain in the view of every parent, last_ball must equal its
// committed ball id, and last_ball_mci is defined as that ball's mci. A
// last_ball_unit that is not yet visible from all parents (e.g. a
// last-ball pointer that regressed relative to a parent's own last ball, or
// one the author picked from a fork the parents never saw) is rejected as
// LastBallStaleOrMoved rather than Malformed, since a later resubmission
// against a different last-ball choice may succeed.
func checkLastBall(ctx context.Context, r storage.Reader, u *dag.Unit) (int64, error) {
	if u.LastBallUnit == "" || u.LastBall == "" {
		return 0, &dag.Error{Code: dag.ErrMalformed, Msg: "last_ball_unit and last_ball are required"}
	}

	props, ok, err := r.ReadUnitProps(ctx, u.LastBallUnit)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &dag.Error{Code: dag.ErrLastBallStaleOrMoved, Msg: "last_ball_unit is unknown"}
	}
	if !props.IsStable || !props.IsOnMainChain || props.MainChainIndex == nil {
		return 0, &dag.Error{Code: dag.ErrLastBallStaleOrMoved, Msg: "last_ball_unit is not a stable main-chain unit"}
	}

	included, err := graph.DetermineIfIncluded(ctx, r, u.LastBallUnit, u.Parents)
	if err != nil {
		return 0, err
	}
	if !included {
		return 0, &dag.Error{Code: dag.ErrLastBallStaleOrMoved, Msg: "last_ball_unit is not visible from all parents"}
	}

	stable, ok, err := r.ReadStableUnitProps(ctx, u.LastBallUnit)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &dag.Error{Code: dag.ErrLastBallStaleOrMoved, Msg: "last_ball_unit has no committed ball"}
	}
	if stable.BallID != u.LastBall {
		return 0, &dag.Error{Code: dag.ErrLastBallStaleOrMoved, Msg: "last_ball does not match the committed ball"}
	}
	return stable.MCI, nil
}
