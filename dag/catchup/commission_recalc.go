package catchup

import (
	"context"

	"witnessdag.dev/core/dag/mainchain"
	"witnessdag.dev/core/storage"
)

// RecalculateHeadersCommissions re-runs headers/witnessing commission
// payout for every MCI in (fromMCI, toMCI], in batches of BComm, for the
// range the catchup fast-path stabilized directly from hash-tree balls
// rather than one unit at a time through Engine.Advance — which means
// those MCIs never ran mainchain.PayHeadersCommission/PayWitnessingCommission
// (spec §4.7.4). Processes one MCI-keyed batch per call to
// storage.Store.OpenBatch so the full historical relation is never loaded
// into memory at once; the caller drives repeated calls across the whole
// range (e.g. one per BComm-sized slice) under the arbiter's write lock.
func RecalculateHeadersCommissions(ctx context.Context, store storage.Store, q mainchain.Querier, fromMCI, toMCI int64) (int64, error) {
	if toMCI-fromMCI > BComm {
		toMCI = fromMCI + BComm
	}

	b, err := store.OpenBatch(ctx)
	if err != nil {
		return fromMCI, err
	}

	var processed int64
	for mci := fromMCI + 1; mci <= toMCI; mci++ {
		ballID, found, err := q.ReadBallAtMCI(ctx, mci)
		if err != nil {
			_ = b.Rollback()
			return fromMCI + processed, err
		}
		if !found {
			break
		}
		ball, ok, err := q.ReadBall(ctx, ballID)
		if err != nil {
			_ = b.Rollback()
			return fromMCI + processed, err
		}
		if !ok {
			break
		}
		props, ok, err := q.ReadUnitProps(ctx, ball.UnitID)
		if err != nil {
			_ = b.Rollback()
			return fromMCI + processed, err
		}
		if !ok {
			break
		}

		if err := mainchain.PayHeadersCommission(ctx, q, b, ball.UnitID, props.HeadersCommission); err != nil {
			_ = b.Rollback()
			return fromMCI + processed, err
		}
		if err := mainchain.PayWitnessingCommission(ctx, b, ball.UnitID, props.Witnesses, props.PayloadCommission); err != nil {
			_ = b.Rollback()
			return fromMCI + processed, err
		}
		processed++
	}

	if err := b.Commit(); err != nil {
		return fromMCI, err
	}
	return fromMCI + processed, nil
}
