package mainchain

import (
	"context"

	"witnessdag.dev/core/storage"
)

// PayHeadersCommission pays ancestorID's headers_commission to the
// author(s) of the winning best-child — the sibling with the lowest unit
// id among every unit that declared ancestorID its best parent (spec
// §4.6.4: "winner chosen by lowest unit id among siblings"). No-op if the
// ancestor never acquired a best-child (a dead-end tip) or carries no fee.
// Exported so dag/catchup can re-run it for MCIs the catchup fast-path
// stabilized without going through Engine.Advance (spec §4.7.4).
func PayHeadersCommission(ctx context.Context, q Querier, w storage.Writer, ancestorID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	children, err := q.ReadBestChildren(ctx, ancestorID)
	if err != nil || len(children) == 0 {
		return err
	}

	winner := children[0]
	for _, c := range children[1:] {
		if c < winner {
			winner = c
		}
	}
	authors, err := q.ReadUnitAuthors(ctx, winner)
	if err != nil || len(authors) == 0 {
		return err
	}
	share := amount / int64(len(authors))
	if share <= 0 {
		return nil
	}
	for _, addr := range authors {
		if err := w.PayCommission(ctx, ancestorID, addr, share, commissionKindHeaders); err != nil {
			return err
		}
	}
	return nil
}

// PayWitnessingCommission splits unitID's payload_commission evenly among
// the witnesses it named, accruing to "witnesses whose outputs were
// included along the MC" (spec §4.6.4). Exported for the same reason as
// PayHeadersCommission above.
func PayWitnessingCommission(ctx context.Context, w storage.Writer, unitID string, witnesses []string, amount int64) error {
	if amount <= 0 || len(witnesses) == 0 {
		return nil
	}
	share := amount / int64(len(witnesses))
	if share <= 0 {
		return nil
	}
	for _, addr := range witnesses {
		if err := w.PayCommission(ctx, unitID, addr, share, commissionKindWitnessing); err != nil {
			return err
		}
	}
	return nil
}
