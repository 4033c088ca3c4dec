package validate

import (
	"context"
	"fmt"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// fakeStore is an in-memory storage.Store + storage.HashTreeStore stand-in
// for validator tests, mirroring the fakeReader/fakeStore pattern used in
// dag/script and dag/graph's own test files.
type fakeStore struct {
	units         map[string]*storage.UnitProps
	stable        map[string]*storage.StableUnitProps
	outputs       map[string][]storage.Output // key: unitID + "/" + messageIndex
	defs          map[string]*storage.Definition
	aaDefs        map[string]*storage.Definition
	authorUnits   map[string][]string
	dataFeeds     map[string]string
	pending       map[string]*storage.PendingBall
	fullUnits     map[string]*dag.Unit
	lastStableMCI int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		units:       map[string]*storage.UnitProps{},
		stable:      map[string]*storage.StableUnitProps{},
		outputs:     map[string][]storage.Output{},
		defs:        map[string]*storage.Definition{},
		aaDefs:      map[string]*storage.Definition{},
		authorUnits: map[string][]string{},
		dataFeeds:   map[string]string{},
		pending:     map[string]*storage.PendingBall{},
		fullUnits:   map[string]*dag.Unit{},
	}
}

func outKey(unitID string, messageIndex int) string { return fmt.Sprintf("%s/%d", unitID, messageIndex) }

func (f *fakeStore) putUnit(p *storage.UnitProps) {
	f.units[p.UnitID] = p
	for _, addr := range p.Authors {
		f.authorUnits[addr] = append(f.authorUnits[addr], p.UnitID)
	}
}

func (f *fakeStore) putStable(unitID string, s *storage.StableUnitProps) { f.stable[unitID] = s }

func (f *fakeStore) putOutput(o storage.Output) {
	k := outKey(o.UnitID, o.MessageIndex)
	f.outputs[k] = append(f.outputs[k], o)
}

// Reader

func (f *fakeStore) ReadUnitProps(_ context.Context, unitID string) (*storage.UnitProps, bool, error) {
	p, ok := f.units[unitID]
	return p, ok, nil
}
func (f *fakeStore) ReadUnitAuthors(_ context.Context, unitID string) ([]string, error) {
	if p, ok := f.units[unitID]; ok {
		return p.Authors, nil
	}
	return nil, nil
}
func (f *fakeStore) ReadStableUnitProps(_ context.Context, unitID string) (*storage.StableUnitProps, bool, error) {
	s, ok := f.stable[unitID]
	return s, ok, nil
}
func (f *fakeStore) ReadFullUnit(_ context.Context, unitID string) (*dag.Unit, bool, error) {
	u, ok := f.fullUnits[unitID]
	return u, ok, nil
}
func (f *fakeStore) ReadBallAtMCI(_ context.Context, mci int64) (string, bool, error) {
	for _, s := range f.stable {
		if s.MCI == mci {
			return s.BallID, true, nil
		}
	}
	return "", false, nil
}
func (f *fakeStore) ReadStaticProps(_ context.Context, unitID string) (string, int64, int64, error) {
	p, ok := f.units[unitID]
	if !ok {
		return "", 0, 0, nil
	}
	return p.BestParent, p.Level, p.WitnessedLevel, nil
}
func (f *fakeStore) ReadDefinitionByAddress(_ context.Context, addr string, horizon int64) (*storage.Definition, bool, error) {
	d, ok := f.defs[addr]
	if !ok || d.BoundAtMCI > horizon {
		return nil, false, nil
	}
	return d, true, nil
}
func (f *fakeStore) ReadAADefinition(_ context.Context, addr string) (*storage.Definition, bool, error) {
	d, ok := f.aaDefs[addr]
	return d, ok, nil
}
func (f *fakeStore) ReadOutputs(_ context.Context, unitID string, messageIndex int) ([]storage.Output, error) {
	return f.outputs[outKey(unitID, messageIndex)], nil
}
func (f *fakeStore) ReadInputs(context.Context, string) ([]storage.Input, error) { return nil, nil }
func (f *fakeStore) ReadAuthorUnitsAfter(_ context.Context, addr string, afterLimci int64, maxResults int) ([]string, error) {
	var out []string
	for _, id := range f.authorUnits[addr] {
		p, ok := f.units[id]
		if !ok {
			continue
		}
		if p.MainChainIndex == nil || *p.MainChainIndex > afterLimci {
			out = append(out, id)
			if len(out) >= maxResults {
				break
			}
		}
	}
	return out, nil
}
func (f *fakeStore) ReadBall(context.Context, string) (*storage.Ball, bool, error) {
	return nil, false, nil
}
func (f *fakeStore) LastStableMCI(context.Context) (int64, error) { return f.lastStableMCI, nil }
func (f *fakeStore) ReadDataFeed(_ context.Context, feedAddr, key string, horizon int64) (string, bool, error) {
	v, ok := f.dataFeeds[feedAddr+"/"+key]
	return v, ok, nil
}
func (f *fakeStore) ReadBestChildren(_ context.Context, unitID string) ([]string, error) {
	var out []string
	for id, p := range f.units {
		if p.BestParent == unitID {
			out = append(out, id)
		}
	}
	return out, nil
}
func (f *fakeStore) ReadFreeTips(_ context.Context) ([]string, error) {
	hasChild := make(map[string]bool, len(f.units))
	for _, p := range f.units {
		if p.BestParent != "" {
			hasChild[p.BestParent] = true
		}
	}
	var out []string
	for id := range f.units {
		if !hasChild[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// HashTreeStore

func (f *fakeStore) PutPendingBall(_ context.Context, b storage.PendingBall) error {
	f.pending[b.BallID] = &b
	return nil
}
func (f *fakeStore) GetPendingBall(_ context.Context, ballID string) (*storage.PendingBall, bool, error) {
	b, ok := f.pending[ballID]
	return b, ok, nil
}
func (f *fakeStore) EvictPendingBall(_ context.Context, ballID string) error {
	delete(f.pending, ballID)
	return nil
}
func (f *fakeStore) CountPendingBalls(context.Context) (int, error) { return len(f.pending), nil }
func (f *fakeStore) FindPendingBallByUnit(_ context.Context, unitID string) (*storage.PendingBall, bool, error) {
	for _, b := range f.pending {
		if b.UnitID == unitID {
			return b, true, nil
		}
	}
	return nil, false, nil
}

// Store / Batch

type fakeBatch struct {
	s   *fakeStore
	ops []func()
}

func (f *fakeStore) OpenBatch(context.Context) (storage.Batch, error) {
	return &fakeBatch{s: f}, nil
}

func (b *fakeBatch) InsertUnit(_ context.Context, props *storage.UnitProps) error {
	cp := *props
	b.ops = append(b.ops, func() { b.s.putUnit(&cp) })
	return nil
}
func (b *fakeBatch) InsertFullUnit(_ context.Context, u *dag.Unit) error {
	cp := *u
	b.ops = append(b.ops, func() { b.s.fullUnits[cp.UnitID] = &cp })
	return nil
}
func (b *fakeBatch) InsertOutput(_ context.Context, out storage.Output) error {
	b.ops = append(b.ops, func() { b.s.putOutput(out) })
	return nil
}
func (b *fakeBatch) MarkOutputSpent(_ context.Context, srcUnit string, srcMessageIndex, srcOutputIndex int) error {
	b.ops = append(b.ops, func() {
		k := outKey(srcUnit, srcMessageIndex)
		outs := b.s.outputs[k]
		for i := range outs {
			if outs[i].OutputIndex == srcOutputIndex {
				outs[i].IsSpent = true
			}
		}
	})
	return nil
}
func (b *fakeBatch) BindDefinition(_ context.Context, def storage.Definition) error {
	cp := def
	b.ops = append(b.ops, func() { b.s.defs[cp.Address] = &cp })
	return nil
}
func (b *fakeBatch) MarkSequence(_ context.Context, unitID string, sequence string) error {
	b.ops = append(b.ops, func() {
		if p, ok := b.s.units[unitID]; ok {
			p.Sequence = sequence
		}
	})
	return nil
}
func (b *fakeBatch) CommitBall(_ context.Context, ball storage.Ball) error {
	cp := ball
	b.ops = append(b.ops, func() {
		b.s.putStable(cp.UnitID, &storage.StableUnitProps{UnitID: cp.UnitID, BallID: cp.BallID, MCI: cp.MCI, IsNonserial: cp.IsNonserial})
	})
	return nil
}
func (b *fakeBatch) SetMCPosition(_ context.Context, unitID string, mci int64, isOnMC bool) error {
	b.ops = append(b.ops, func() {
		if p, ok := b.s.units[unitID]; ok {
			p.IsOnMainChain = isOnMC
			if isOnMC {
				m := mci
				p.MainChainIndex = &m
			} else {
				p.MainChainIndex = nil
			}
		}
	})
	return nil
}
func (b *fakeBatch) AdvanceLastStableMCI(ctx context.Context, newMCI int64, balls []storage.Ball) error {
	for _, ball := range balls {
		if err := b.CommitBall(ctx, ball); err != nil {
			return err
		}
	}
	b.ops = append(b.ops, func() { b.s.lastStableMCI = newMCI })
	return nil
}
func (b *fakeBatch) PayCommission(_ context.Context, unitID string, recipient string, amount int64, kind string) error {
	b.ops = append(b.ops, func() {
		b.s.putOutput(storage.Output{UnitID: unitID, MessageIndex: -1, Address: recipient, Asset: "base", Amount: amount})
	})
	return nil
}
func (b *fakeBatch) PutDataFeed(_ context.Context, feedAddress, key, value string, mci int64) error {
	b.ops = append(b.ops, func() { b.s.dataFeeds[feedAddress+"/"+key] = value })
	return nil
}
func (b *fakeBatch) Commit() error {
	for _, op := range b.ops {
		op()
	}
	return nil
}
func (b *fakeBatch) Rollback() error {
	b.ops = nil
	return nil
}
