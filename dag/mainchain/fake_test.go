package mainchain

import (
	"context"
	"crypto/sha256"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// fakeStore is an in-memory storage.Store stand-in mirroring the pattern
// dag/validate and dag/graph's own test files use. Its only non-trivial
// behavior lives in InsertUnit (bbolt's InsertUnit equivalent, see
// node/store/batch.go), which maintains best-children and free-tips
// exactly the way the real store does, so tests can build a DAG purely
// through the Batch interface.
type fakeStore struct {
	units       map[string]*storage.UnitProps
	stable      map[string]*storage.StableUnitProps
	children    map[string][]string
	tips        map[string]struct{}
	commissions []commissionPayout
	fullUnits   map[string]*dag.Unit
}

type commissionPayout struct {
	UnitID, Recipient, Kind string
	Amount                  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		units:    map[string]*storage.UnitProps{},
		stable:   map[string]*storage.StableUnitProps{},
		children: map[string][]string{},
		tips:     map[string]struct{}{},
		fullUnits: map[string]*dag.Unit{},
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
func (f *fakeStore) ReadOutputs(context.Context, string, int) ([]storage.Output, error) { return nil, nil }
func (f *fakeStore) ReadInputs(context.Context, string) ([]storage.Input, error)         { return nil, nil }
func (f *fakeStore) ReadAuthorUnitsAfter(context.Context, string, int64, int) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) ReadBall(context.Context, string) (*storage.Ball, bool, error) {
	return nil, false, nil
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

// fakeBatch applies every write immediately (tests don't exercise
// rollback), which keeps IsStable/SelectTip queries inside a test able to
// observe writes the same Advance call just made.
type fakeBatch struct{ s *fakeStore }

func (b *fakeBatch) InsertUnit(_ context.Context, props *storage.UnitProps) error {
	cp := *props
	b.s.units[cp.UnitID] = &cp
	if cp.BestParent != "" {
		b.s.children[cp.BestParent] = append(b.s.children[cp.BestParent], cp.UnitID)
		delete(b.s.tips, cp.BestParent)
	}
	b.s.tips[cp.UnitID] = struct{}{}
	return nil
}
func (b *fakeBatch) InsertFullUnit(_ context.Context, u *dag.Unit) error {
	cp := *u
	b.s.fullUnits[cp.UnitID] = &cp
	return nil
}
func (b *fakeBatch) InsertOutput(context.Context, storage.Output) error { return nil }
func (b *fakeBatch) MarkOutputSpent(context.Context, string, int, int) error { return nil }
func (b *fakeBatch) BindDefinition(context.Context, storage.Definition) error { return nil }
func (b *fakeBatch) MarkSequence(_ context.Context, unitID string, sequence string) error {
	if p, ok := b.s.units[unitID]; ok {
		p.Sequence = sequence
	}
	return nil
}
func (b *fakeBatch) CommitBall(_ context.Context, ball storage.Ball) error {
	b.s.stable[ball.UnitID] = &storage.StableUnitProps{
		UnitID: ball.UnitID, BallID: ball.BallID, MCI: ball.MCI, IsNonserial: ball.IsNonserial,
	}
	if p, ok := b.s.units[ball.UnitID]; ok {
		p.IsStable = true
	}
	return nil
}
func (b *fakeBatch) SetMCPosition(_ context.Context, unitID string, mci int64, isOnMC bool) error {
	p, ok := b.s.units[unitID]
	if !ok {
		return nil
	}
	p.IsOnMainChain = isOnMC
	if isOnMC {
		m := mci
		p.MainChainIndex = &m
	} else {
		p.MainChainIndex = nil
	}
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
	b.s.commissions = append(b.s.commissions, commissionPayout{UnitID: unitID, Recipient: recipient, Amount: amount, Kind: kind})
	return nil
}
func (b *fakeBatch) PutDataFeed(context.Context, string, string, string, int64) error { return nil }
func (b *fakeBatch) Commit() error                                                   { return nil }
func (b *fakeBatch) Rollback() error                                                  { return nil }

// fakeHash is a deterministic stand-in for crypto.Provider's SHA256 method
// (dag.HashProvider only needs SHA256), used so ball id derivation doesn't
// depend on the real crypto package in these tests.
type fakeHash struct{}

func (fakeHash) SHA256(input []byte) [32]byte { return sha256.Sum256(input) }
