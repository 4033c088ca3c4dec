package validate

import (
	"context"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// admissionResult bundles every value phases 1-10 derived that phase 11
// persists. Caller holds the write lock across steps 8-11 (spec §4.5.2).
type admissionResult struct {
	level          int64
	witnessedLevel int64
	bestParent     string
	limci          int64
	sequence       string
	demote         []string
	writes         []messageWrite
	triggersAA     bool
}

// admit is phase 11 (spec §4.5.1 step 11): the unit, its derived fields,
// its outputs/spends, and any conflict-induced sibling demotions all
// persist through one already-open batch — admit never opens or commits
// the batch itself, so a caller processing several units under one
// write-lock hold can share it (spec §4.5.2's atomicity guarantee).
func admit(ctx context.Context, b storage.Batch, u *dag.Unit, res admissionResult) error {
	props := &storage.UnitProps{
		UnitID:            u.UnitID,
		BestParent:        res.bestParent,
		Parents:           u.Parents,
		Level:             res.level,
		WitnessedLevel:    res.witnessedLevel,
		Limci:             res.limci,
		Sequence:          res.sequence,
		WitnessListUnit:   u.WitnessListUnit,
		Witnesses:         u.Witnesses,
		LastBallUnit:      u.LastBallUnit,
		LastBall:          u.LastBall,
		Authors:           authorAddresses(u.Authors),
		Timestamp:         u.Timestamp,
		TriggersAA:        res.triggersAA,
		HeadersCommission: u.HeadersCommission,
		PayloadCommission: u.PayloadCommission,
	}
	if err := b.InsertUnit(ctx, props); err != nil {
		return err
	}
	if err := b.InsertFullUnit(ctx, u); err != nil {
		return err
	}

	for _, w := range res.writes {
		for _, spend := range w.spends {
			if err := b.MarkOutputSpent(ctx, spend.SrcUnit, spend.SrcMessageIndex, spend.SrcOutputIndex); err != nil {
				return err
			}
		}
		for _, out := range w.newOutputs {
			out.UnitID = u.UnitID
			if err := b.InsertOutput(ctx, out); err != nil {
				return err
			}
		}
		for _, df := range w.dataFeed {
			if err := b.PutDataFeed(ctx, df.feedAddress, df.key, df.value, res.limci); err != nil {
				return err
			}
		}
	}

	for _, author := range u.Authors {
		if author.Definition == nil {
			continue
		}
		if err := b.BindDefinition(ctx, storage.Definition{Address: author.Address, Tree: author.Definition, BoundAtMCI: res.limci}); err != nil {
			return err
		}
	}

	for _, siblingID := range res.demote {
		if err := b.MarkSequence(ctx, siblingID, string(dag.SequenceTempBad)); err != nil {
			return err
		}
	}

	return nil
}
