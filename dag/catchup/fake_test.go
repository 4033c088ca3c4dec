package catchup

import (
	"context"
	"crypto/sha256"
	"fmt"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// fakeStore is an in-memory storage.Store + storage.HashTreeStore stand-in,
// mirroring the pattern dag/validate, dag/graph, and dag/mainchain's own
// test files use. InsertUnit maintains best-children/free-tips exactly the
// way node/store/batch.go does, so BuildWitnessProof's SelectTip/
// PathToStable calls behave the same as against the real store.
type fakeStore struct {
	units     map[string]*storage.UnitProps
	fullUnits map[string]*dag.Unit
	stable    map[string]*storage.StableUnitProps
	balls     map[string]*storage.Ball
	children  map[string][]string
	tips      map[string]struct{}
	pending   map[string]*storage.PendingBall
	outputs   map[string][]storage.Output
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		units:     map[string]*storage.UnitProps{},
		fullUnits: map[string]*dag.Unit{},
		stable:    map[string]*storage.StableUnitProps{},
		balls:     map[string]*storage.Ball{},
		children:  map[string][]string{},
		tips:      map[string]struct{}{},
		pending:   map[string]*storage.PendingBall{},
		outputs:   map[string][]storage.Output{},
	}
}

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
func (f *fakeStore) ReadDefinitionByAddress(context.Context, string, int64) (*storage.Definition, bool, error) {
	return nil, false, nil
}
func (f *fakeStore) ReadAADefinition(context.Context, string) (*storage.Definition, bool, error) {
	return nil, false, nil
}
func (f *fakeStore) ReadOutputs(_ context.Context, unitID string, messageIndex int) ([]storage.Output, error) {
	return f.outputs[fmt.Sprintf("%s/%d", unitID, messageIndex)], nil
}
func (f *fakeStore) ReadInputs(context.Context, string) ([]storage.Input, error) { return nil, nil }
func (f *fakeStore) ReadAuthorUnitsAfter(context.Context, string, int64, int) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) ReadBall(_ context.Context, ballID string) (*storage.Ball, bool, error) {
	b, ok := f.balls[ballID]
	return b, ok, nil
}
func (f *fakeStore) LastStableMCI(_ context.Context) (int64, error) {
	var max int64 = -1
	for _, s := range f.stable {
		if s.MCI > max {
			max = s.MCI
		}
	}
	if max < 0 {
		return 0, nil
	}
	return max, nil
}
func (f *fakeStore) ReadDataFeed(context.Context, string, string, int64) (string, bool, error) {
	return "", false, nil
}
func (f *fakeStore) ReadBestChildren(_ context.Context, unitID string) ([]string, error) {
	return f.children[unitID], nil
}
func (f *fakeStore) ReadFreeTips(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(f.tips))
	for id := range f.tips {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeStore) OpenBatch(context.Context) (storage.Batch, error) {
	return &fakeBatch{s: f}, nil
}

// HashTreeStore

func (f *fakeStore) PutPendingBall(_ context.Context, b storage.PendingBall) error {
	cp := b
	f.pending[b.BallID] = &cp
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

func (f *fakeStore) putFull(u *dag.Unit) {
	cp := *u
	f.fullUnits[u.UnitID] = &cp
}

func (f *fakeStore) putStable(unitID, ballID string, mci int64) {
	f.stable[unitID] = &storage.StableUnitProps{UnitID: unitID, BallID: ballID, MCI: mci}
}

func (f *fakeStore) putBall(b storage.Ball) {
	cp := b
	f.balls[b.BallID] = &cp
}

type fakeBatch struct {
	s   *fakeStore
	ops []func()
}

func (b *fakeBatch) InsertUnit(_ context.Context, props *storage.UnitProps) error {
	cp := *props
	b.ops = append(b.ops, func() {
		b.s.units[cp.UnitID] = &cp
		if cp.BestParent != "" {
			b.s.children[cp.BestParent] = append(b.s.children[cp.BestParent], cp.UnitID)
			delete(b.s.tips, cp.BestParent)
		}
		b.s.tips[cp.UnitID] = struct{}{}
	})
	return nil
}
func (b *fakeBatch) InsertFullUnit(_ context.Context, u *dag.Unit) error {
	cp := *u
	b.ops = append(b.ops, func() { b.s.putFull(&cp) })
	return nil
}
func (b *fakeBatch) InsertOutput(_ context.Context, out storage.Output) error {
	b.ops = append(b.ops, func() {
		k := fmt.Sprintf("%s/%d", out.UnitID, out.MessageIndex)
		b.s.outputs[k] = append(b.s.outputs[k], out)
	})
	return nil
}
func (b *fakeBatch) MarkOutputSpent(context.Context, string, int, int) error { return nil }
func (b *fakeBatch) BindDefinition(context.Context, storage.Definition) error { return nil }
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
		b.s.putBall(cp)
		b.s.putStable(cp.UnitID, cp.BallID, cp.MCI)
	})
	return nil
}
func (b *fakeBatch) SetMCPosition(_ context.Context, unitID string, mci int64, isOnMC bool) error {
	b.ops = append(b.ops, func() {
		p, ok := b.s.units[unitID]
		if !ok {
			return
		}
		p.IsOnMainChain = isOnMC
		if isOnMC {
			m := mci
			p.MainChainIndex = &m
		} else {
			p.MainChainIndex = nil
		}
	})
	return nil
}
func (b *fakeBatch) AdvanceLastStableMCI(ctx context.Context, _ int64, balls []storage.Ball) error {
	for _, ball := range balls {
		if err := b.CommitBall(ctx, ball); err != nil {
			return err
		}
	}
	return nil
}
func (b *fakeBatch) PayCommission(_ context.Context, unitID string, recipient string, amount int64, kind string) error {
	b.ops = append(b.ops, func() {
		b.s.outputs[fmt.Sprintf("%s:%s/0", unitID, kind)] = append(b.s.outputs[fmt.Sprintf("%s:%s/0", unitID, kind)], storage.Output{
			UnitID: unitID, MessageIndex: -1, Address: recipient, Asset: "base", Amount: amount,
		})
	})
	return nil
}
func (b *fakeBatch) PutDataFeed(context.Context, string, string, string, int64) error { return nil }
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

var _ storage.Store = (*fakeStore)(nil)
var _ storage.HashTreeStore = (*fakeStore)(nil)

// fakeHash implements dag.HashProvider via crypto/sha256, same pattern as
// dag/mainchain's fakeHash.
type fakeHash struct{}

func (fakeHash) SHA256(input []byte) [32]byte { return sha256.Sum256(input) }

// fakeCrypto implements crypto.Provider, mirroring dag/validate's
// shape_test.go fakeCrypto.
type fakeCrypto struct {
	acceptSig bool
}

func (fakeCrypto) SHA256(input []byte) [32]byte { return sha256.Sum256(input) }
func (c fakeCrypto) VerifySecp256k1([]byte, []byte, [32]byte) bool { return c.acceptSig }
