// Package storage defines the abstract read/write contracts the consensus
// core (dag/validate, dag/mainchain, dag/catchup) depends on. It carries no
// bbolt import itself — node/store is the bbolt-backed implementation —
// mirroring the teacher's own boundary where consensus never imports
// node/store directly (spec §4.2).
package storage

import (
	"context"

	"witnessdag.dev/core/dag"
)

// UnitProps is the set of fields read_unit_props/read_static_props expose:
// everything the validator and graph queries need without deserializing the
// full unit body.
type UnitProps struct {
	UnitID           string
	BestParent       string
	Parents          []string
	Level            int64
	WitnessedLevel   int64
	Limci            int64
	MainChainIndex   *int64
	IsOnMainChain    bool
	IsStable         bool
	Sequence         string // "good" | "temp-bad" | "final-bad"
	WitnessListUnit  string
	Witnesses        []string
	LastBallUnit     string
	LastBall         string
	LastBallMCI      int64
	Authors          []string
	Timestamp        int64
	TriggersAA       bool
	HeadersCommission int64
	PayloadCommission int64
}

// StableUnitProps is the subset retained once a unit is archived (payload
// stripped below the retrievable horizon).
type StableUnitProps struct {
	UnitID        string
	BallID        string
	MCI           int64
	IsNonserial   bool
	ContentHash   string
}

// Output is one UTXO entry (spec §3.1).
type Output struct {
	UnitID       string
	MessageIndex int
	OutputIndex  int
	Address      string
	Asset        string
	Amount       int64
	Denomination int
	IsSpent      bool
	Blinding     string
}

// Input mirrors an input entry for conflict/spend queries.
type Input struct {
	UnitID       string
	MessageIndex int
	Type         string // "transfer" | "headers_commission" | "witnessing" | "issue"
	SrcUnit      string
	SrcMessageIndex int
	SrcOutputIndex  int
	Amount       int64
}

// Ball is the stable commitment record for a unit (spec §4.1).
type Ball struct {
	BallID        string
	UnitID        string
	ParentBalls   []string
	SkiplistBalls []string
	IsNonserial   bool
	MCI           int64
}

// Definition is a bound (or pending) address→definition-tree mapping.
type Definition struct {
	Address    string
	Tree       any
	BoundAtMCI int64 // 0 means "declared but not yet bound"
}

// Reader is the read surface available to validation and graph-query code.
// Implementations MUST NOT block a reader longer than a point lookup takes
// (spec §4.2) — no reader may wait on the write lock's queue depth.
type Reader interface {
	ReadUnitProps(ctx context.Context, unitID string) (*UnitProps, bool, error)
	ReadUnitAuthors(ctx context.Context, unitID string) ([]string, error)
	ReadStableUnitProps(ctx context.Context, unitID string) (*StableUnitProps, bool, error)

	// ReadFullUnit returns the originally admitted unit body — parents,
	// authors with their definitions, messages — as opposed to the derived
	// fields UnitProps carries. Catchup's witness-proof and hash-tree
	// responses transmit this form; ordinary validation never needs it
	// since phases 1-10 work entirely off the unit passed to Validate
	// (spec §4.7.1, §4.7.3).
	ReadFullUnit(ctx context.Context, unitID string) (*dag.Unit, bool, error)

	// ReadBallAtMCI returns the ball id committed at exactly mci, used by
	// the main-chain engine to resolve skiplist ball references to
	// power-of-ten MCI ancestors (spec §4.6.3).
	ReadBallAtMCI(ctx context.Context, mci int64) (ballID string, found bool, err error)

	ReadStaticProps(ctx context.Context, unitID string) (bestParent string, level int64, witnessedLevel int64, err error)
	ReadDefinitionByAddress(ctx context.Context, addr string, horizonMCI int64) (*Definition, bool, error)
	ReadAADefinition(ctx context.Context, addr string) (*Definition, bool, error)
	ReadOutputs(ctx context.Context, unitID string, messageIndex int) ([]Output, error)
	ReadInputs(ctx context.Context, unitID string) ([]Input, error)

	// ReadAuthorUnitsAfter supports conflict detection (spec §4.5.1 step 8):
	// units authored by addr with mci > afterLimci or mci NULL, bounded at
	// cap entries.
	ReadAuthorUnitsAfter(ctx context.Context, addr string, afterLimci int64, cap int) ([]string, error)

	ReadBall(ctx context.Context, ballID string) (*Ball, bool, error)
	LastStableMCI(ctx context.Context) (int64, error)

	// ReadBestChildren returns every unit that declared unitID as its best
	// parent — the main-chain engine's alternative-branch set at unitID
	// (spec §4.6.2: "best-children of u's best parent that are not u").
	ReadBestChildren(ctx context.Context, unitID string) ([]string, error)

	// ReadFreeTips returns every unit no other unit has yet chosen as its
	// best parent — the candidate starting points for main-chain selection
	// (spec §4.6.1 "starting from each free tip").
	ReadFreeTips(ctx context.Context) ([]string, error)

	// ReadDataFeed resolves the value a feed address published for key as of
	// horizonMCI — the evaluator's "in data feed" / "attested" operators
	// MUST consult this MCI-indexed view, never a "stable-now" view
	// (spec §4.4).
	ReadDataFeed(ctx context.Context, feedAddress, key string, horizonMCI int64) (value string, found bool, err error)
}

// Writer is the atomic mutation surface; every method below MUST only be
// invoked while the caller holds the arbiter's write lock (spec §4.2, §5).
type Writer interface {
	InsertUnit(ctx context.Context, props *UnitProps) error

	// InsertFullUnit persists the admitted unit body alongside its derived
	// UnitProps, mirroring the teacher's header/body storage split
	// (BlockStore.PutBlock keeping header bytes and full block bytes under
	// separate keys).
	InsertFullUnit(ctx context.Context, u *dag.Unit) error

	InsertOutput(ctx context.Context, out Output) error
	MarkOutputSpent(ctx context.Context, srcUnit string, srcMessageIndex, srcOutputIndex int) error
	BindDefinition(ctx context.Context, def Definition) error

	// MarkSequence updates an already-inserted unit's sequence state; used by
	// conflict resolution to demote a sibling to temp-bad in the same batch
	// that admits the unit which won the conflict (spec §4.5.1 step 8, 11).
	MarkSequence(ctx context.Context, unitID string, sequence string) error

	CommitBall(ctx context.Context, b Ball) error
	SetMCPosition(ctx context.Context, unitID string, mci int64, isOnMC bool) error

	// AdvanceLastStableMCI commits a batch of newly-stable balls and moves
	// last_stable_mci forward in one atomic step (spec §4.6.3).
	AdvanceLastStableMCI(ctx context.Context, newMCI int64, batch []Ball) error

	// PayCommission records a synthetic commission output accruing to
	// recipient at the unit where the ancestor became stable (spec §4.6.4).
	PayCommission(ctx context.Context, unitID string, recipient string, amount int64, kind string) error

	// PutDataFeed records a data-feed message's published value at the mci
	// it is admitted under (spec §4.5.1 step 9, data messages).
	PutDataFeed(ctx context.Context, feedAddress, key, value string, mci int64) error
}

// Batch groups a set of Writer calls that must all persist or none persist
// (spec §4.2, §5 "all writes within a single received unit's processing
// MUST be atomic"). A Batch embeds Writer directly; exactly one of Commit
// or Rollback must be called to close it.
type Batch interface {
	Writer
	Commit() error
	Rollback() error
}

// Store composes Reader with the ability to open atomic batches; it is the
// single dependency dag/validate, dag/mainchain, and dag/catchup take on
// persistence. OpenBatch MUST only be called while the caller holds the
// arbiter's write lock.
type Store interface {
	Reader
	OpenBatch(ctx context.Context) (Batch, error)
}

// PendingBall is one hash-tree entry awaiting confirmation by its full unit
// (spec §4.7.3).
type PendingBall struct {
	BallID        string
	UnitID        string
	ParentBalls   []string
	SkiplistBalls []string
	IsNonserial   bool
}

// HashTreeStore is the pending-ball table catchup's hash-tree protocol
// needs: a set distinguishable from committed balls, mutated only under the
// write lock and cleared on peer-validation failure (spec §4.7.3, §5).
type HashTreeStore interface {
	PutPendingBall(ctx context.Context, b PendingBall) error
	GetPendingBall(ctx context.Context, ballID string) (*PendingBall, bool, error)
	EvictPendingBall(ctx context.Context, ballID string) error
	CountPendingBalls(ctx context.Context) (int, error)

	// FindPendingBallByUnit supports the hash-tree gate phase (spec §4.5.1
	// step 6): a full unit arrives knowing only its own id, not the ball id
	// a prior hash-tree batch committed it under.
	FindPendingBallByUnit(ctx context.Context, unitID string) (*PendingBall, bool, error)
}
