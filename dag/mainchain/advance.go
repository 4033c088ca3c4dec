package mainchain

import (
	"context"
	"fmt"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// Engine is the stateful main-chain driver a node runs once per admitted
// unit (or batch of units): it reselects the main chain, advances
// last_stable_mci as far as the stability test allows, and pays
// commissions along the way (spec §4.6). It keeps the previous call's
// unstable-path in memory so the next call can tell which units fell off
// the main chain and need their mci cleared (spec §4.6.1) — the teacher's
// fork_choice.go keeps an analogous "current best chain tip" in memory
// across calls rather than recomputing full chain membership from
// scratch each time.
type Engine struct {
	q        Querier
	hash     dag.HashProvider
	aa       AATransitionRunner
	params   Params
	prevPath []string // most recent unstable suffix (oldest-first), nil before first Advance
}

// NewEngine constructs an Engine. aa may be nil, in which case
// AA-triggering units stabilize without running a transition.
func NewEngine(q Querier, hash dag.HashProvider, aa AATransitionRunner, params Params) *Engine {
	if aa == nil {
		aa = noopAATransitionRunner{}
	}
	return &Engine{q: q, hash: hash, aa: aa, params: params}
}

// Advance reselects the main chain and stabilizes as many of its
// unstable candidates, starting from last_stable_mci+1, as the stability
// test allows; it stops at the first candidate that is not yet stable,
// since spec §4.6.3 stabilizes "one MCI at a time" in strict order.
// Returns the number of units newly stabilized this call.
func (e *Engine) Advance(ctx context.Context, b storage.Batch) (int, error) {
	lastStable, err := e.q.LastStableMCI(ctx)
	if err != nil {
		return 0, err
	}

	tip, err := SelectTip(ctx, e.q)
	if err != nil {
		return 0, err
	}
	path, err := PathToStable(ctx, e.q, tip)
	if err != nil {
		return 0, err
	}
	if len(path) == 0 {
		return 0, nil
	}
	unstable := path[1:] // path[0] is the already-stable frontier ancestor

	if err := e.refreshMCPositions(ctx, b, unstable, lastStable); err != nil {
		return 0, err
	}

	// staged carries the balls this call has already committed into b but
	// that e.q (a fresh read transaction per call, node/store/reader.go)
	// cannot see yet: a multi-MCI Advance stabilizes unitID at mci, then the
	// very next iteration may need unitID's ball as a parent or skiplist
	// reference before the batch commits. Resolve those from staged first,
	// falling back to e.q only for balls stable before this call began.
	staged := make(map[string]storage.Ball, len(unstable))
	stagedByMCI := make(map[int64]string, len(unstable))

	stabilized := 0
	for i, id := range unstable {
		stable, err := IsStable(ctx, e.q, id)
		if err != nil {
			return stabilized, err
		}
		if !stable {
			break
		}
		mci := lastStable + int64(i) + 1
		ball, err := e.stabilizeOne(ctx, b, id, mci, staged, stagedByMCI)
		if err != nil {
			return stabilized, err
		}
		staged[id] = ball
		stagedByMCI[mci] = ball.BallID
		stabilized++
	}
	return stabilized, nil
}

// refreshMCPositions assigns mci to every currently-unstable candidate on
// the reselected main chain, and clears the mci of any unit that was on
// the previous call's unstable suffix but dropped off this one — a
// non-stable unit's MCI assignment may change between stable updates
// (spec §4.6.1).
func (e *Engine) refreshMCPositions(ctx context.Context, b storage.Batch, unstable []string, lastStable int64) error {
	onChain := make(map[string]struct{}, len(unstable))
	for i, id := range unstable {
		mci := lastStable + int64(i) + 1
		if err := b.SetMCPosition(ctx, id, mci, true); err != nil {
			return err
		}
		onChain[id] = struct{}{}
	}
	for _, id := range e.prevPath {
		if _, stillOn := onChain[id]; stillOn {
			continue
		}
		if _, ok, err := e.q.ReadStableUnitProps(ctx, id); err != nil {
			return err
		} else if ok {
			continue // already stable: never removed from the chain (spec §4.6.1)
		}
		if err := b.SetMCPosition(ctx, id, 0, false); err != nil {
			return err
		}
	}
	e.prevPath = append([]string(nil), unstable...)
	return nil
}

// stabilizeOne commits unitID's ball, advances last_stable_mci to mci,
// runs its AA transition if it triggers one, and pays its commissions —
// all in the one atomic step spec §4.6.3 step 5 requires. staged and
// stagedByMCI hold the balls this same Advance call has already
// stabilized but not yet committed, so a parent or skiplist ancestor
// stabilized earlier in this call resolves correctly even though e.q's
// read transaction cannot see it yet.
func (e *Engine) stabilizeOne(ctx context.Context, b storage.Batch, unitID string, mci int64, staged map[string]storage.Ball, stagedByMCI map[int64]string) (storage.Ball, error) {
	props, ok, err := e.q.ReadUnitProps(ctx, unitID)
	if err != nil {
		return storage.Ball{}, err
	}
	if !ok {
		return storage.Ball{}, fmt.Errorf("mainchain: unit %s unknown", unitID)
	}

	parentBalls := make([]string, 0, len(props.Parents))
	for _, p := range props.Parents {
		if sb, ok := staged[p]; ok {
			parentBalls = append(parentBalls, sb.BallID)
			continue
		}
		stable, ok, err := e.q.ReadStableUnitProps(ctx, p)
		if err != nil {
			return storage.Ball{}, err
		}
		if !ok {
			return storage.Ball{}, fmt.Errorf("mainchain: parent %s of %s is not yet stable", p, unitID)
		}
		parentBalls = append(parentBalls, stable.BallID)
	}

	skiplistBalls, err := e.skiplistBalls(ctx, mci, stagedByMCI)
	if err != nil {
		return storage.Ball{}, err
	}

	ball := dag.Ball{
		UnitID:        unitID,
		ParentBalls:   parentBalls,
		SkiplistBalls: skiplistBalls,
		IsNonserial:   props.Sequence != string(dag.SequenceGood),
	}
	ballID, err := ball.DeriveBallID(e.hash)
	if err != nil {
		return storage.Ball{}, err
	}
	ball.BallID = ballID

	stored := storage.Ball{
		BallID:        ball.BallID,
		UnitID:        ball.UnitID,
		ParentBalls:   ball.ParentBalls,
		SkiplistBalls: ball.SkiplistBalls,
		IsNonserial:   ball.IsNonserial,
		MCI:           mci,
	}
	if err := b.AdvanceLastStableMCI(ctx, mci, []storage.Ball{stored}); err != nil {
		return storage.Ball{}, err
	}

	if props.TriggersAA {
		if err := e.aa.RunTransition(ctx, b, unitID); err != nil {
			return storage.Ball{}, err
		}
	}

	if err := PayHeadersCommission(ctx, e.q, b, unitID, props.HeadersCommission); err != nil {
		return storage.Ball{}, err
	}
	if err := PayWitnessingCommission(ctx, b, unitID, props.Witnesses, props.PayloadCommission); err != nil {
		return storage.Ball{}, err
	}
	return stored, nil
}

// skiplistBalls resolves, for a unit stabilizing at mci, the ball ids of
// every power-of-ten MCI ancestor it must reference: mci-SStep,
// mci-SStep^2, and so on for as long as mci stays divisible by the next
// power (spec §4.6.3 step 3). Returns nil when mci is not a multiple of
// SStep. stagedByMCI holds balls stabilized earlier in the same Advance
// call, checked before falling back to e.q (see stabilizeOne).
func (e *Engine) skiplistBalls(ctx context.Context, mci int64, stagedByMCI map[int64]string) ([]string, error) {
	step := e.params.SStep
	if step <= 1 || mci <= 0 || mci%step != 0 {
		return nil, nil
	}
	var out []string
	for power := step; power <= mci && mci%power == 0; power *= step {
		target := mci - power
		if ballID, ok := stagedByMCI[target]; ok {
			out = append(out, ballID)
			continue
		}
		ballID, found, err := e.q.ReadBallAtMCI(ctx, target)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, ballID)
		}
	}
	return out, nil
}
