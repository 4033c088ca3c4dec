// Package node wires the consensus core (C1-C8) and the wire protocol
// (C9, node/p2p) into a runnable witnessdag-node process: admission
// pipeline, main-chain advance, and the p2p.PeerHandler answering catchup,
// hash-tree, and light-wallet requests. Grounded on the teacher's
// node/sync.go SyncEngine, generalized from "drive header sync against one
// chain tip" to "drive unit admission and main-chain advance against a
// multi-parent DAG", and node/p2p_runtime.go's PeerManager, generalized
// from connection bookkeeping to dispatching into the consensus core.
package node

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"witnessdag.dev/core/crypto"
	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/catchup"
	"witnessdag.dev/core/dag/mainchain"
	"witnessdag.dev/core/dag/validate"
	"witnessdag.dev/core/node/arbiter"
	"witnessdag.dev/core/node/p2p"
	"witnessdag.dev/core/storage"
)

// Node bundles everything one running process needs to admit units,
// advance the main chain, and serve peers. Construction wires the
// dependency order C1-C9 describe: storage at the bottom, the arbiter
// guarding every mutation, validate and mainchain operating through it,
// and the p2p layer dispatching into this type last.
type Node struct {
	Config   Config
	Store    storage.Store
	HashTree storage.HashTreeStore
	Crypto   crypto.Provider
	Arbiter  *arbiter.Arbiter
	Engine   *mainchain.Engine
	Log      *logrus.Logger

	validateParams validate.Params
}

// New constructs a Node. aa may be nil (no AA support configured); log may
// be nil (defaults to logrus.StandardLogger()); registry may be nil (skips
// Prometheus registration, as node/arbiter.New already allows).
func New(cfg Config, store storage.Store, ht storage.HashTreeStore, cp crypto.Provider, aa mainchain.AATransitionRunner, log *logrus.Logger, registry prometheus.Registerer) *Node {
	if log == nil {
		log = logrus.StandardLogger()
	}
	arb := arbiter.New(log, registry, 0)
	engine := mainchain.NewEngine(store, cp, aa, cfg.MainchainParams())
	return &Node{
		Config:         cfg,
		Store:          store,
		HashTree:       ht,
		Crypto:         cp,
		Arbiter:        arb,
		Engine:         engine,
		Log:            log,
		validateParams: cfg.ValidateParams(),
	}
}

// IngestUnit runs one received unit through the admission pipeline spec
// §4.5/§4.8 describe: validate under the handle_joint lock (Validate
// itself commits the unit atomically on Accepted), then advance the main
// chain under the write lock. Non-Accepted outcomes return without ever
// acquiring the write lock, since nothing persistent changed (spec §4.5.2).
func (n *Node) IngestUnit(ctx context.Context, u *dag.Unit) (*validate.Outcome, error) {
	hjRelease, hjCtx := n.Arbiter.Lock(ctx, arbiter.HandleJoint, true)
	outcome := validate.Validate(hjCtx, validate.Deps{
		Store:    n.Store,
		HashTree: n.HashTree,
		Crypto:   n.Crypto,
		Params:   n.validateParams,
	}, u)
	hjRelease()

	if outcome.Kind != validate.Accepted {
		return outcome, nil
	}

	if err := n.advanceMainChain(ctx); err != nil {
		return outcome, fmt.Errorf("node: advance main chain after admitting %s: %w", u.UnitID, err)
	}
	return outcome, nil
}

// advanceMainChain runs one Engine.Advance step inside the write lock and
// its own atomic batch, mirroring the batch-then-commit-or-rollback shape
// dag/validate.Validate uses for admission.
func (n *Node) advanceMainChain(ctx context.Context) error {
	release, wCtx := n.Arbiter.Lock(ctx, arbiter.Write, true)
	defer release()

	batch, err := n.Store.OpenBatch(wCtx)
	if err != nil {
		return err
	}
	if _, err := n.Engine.Advance(wCtx, batch); err != nil {
		_ = batch.Rollback()
		return err
	}
	return batch.Commit()
}

// querier returns the store as a mainchain.Querier/storage.Reader for the catchup
// package's free functions, which take it directly rather than through a
// Node method.
func (n *Node) querier() mainchain.Querier {
	return n.Store
}

// OnCatchupRequest implements p2p.PeerHandler: serves a lagging peer's
// catchup-chain request under catchup_request's own lock bucket so one
// slow peer cannot starve admission of new units (spec §4.8).
func (n *Node) OnCatchupRequest(peer *p2p.Peer, req p2p.CatchupRequestPayload) (*p2p.CatchupChainPayload, error) {
	release, ctx := n.Arbiter.Lock(context.Background(), arbiter.CatchupRequest, false)
	defer release()

	resp, err := catchup.BuildWitnessProof(ctx, n.querier(), req.ToRequest())
	if err != nil {
		return nil, err
	}
	out := p2p.CatchupChainPayloadFromResponse(resp)
	return &out, nil
}

// OnGetHashTree implements p2p.PeerHandler: builds up to B_BALLS ball
// entries starting at req.FromMCI (spec §4.7.3).
func (n *Node) OnGetHashTree(peer *p2p.Peer, req p2p.GetHashTreePayload) (*p2p.HashTreeBatchPayload, error) {
	release, ctx := n.Arbiter.Lock(context.Background(), arbiter.CatchupRequest, false)
	defer release()

	balls, err := catchup.BuildHashTreeBatch(ctx, n.querier(), req.FromMCI, int(req.ToMCI-req.FromMCI))
	if err != nil {
		return nil, err
	}
	return &p2p.HashTreeBatchPayload{Balls: balls}, nil
}

// OnNewJoint implements p2p.PeerHandler: feeds an unsolicited pushed unit
// through the ordinary admission pipeline. NeedParents/NeedHashTree
// outcomes are not themselves errors — the caller is expected to follow up
// with a catchup_request or get_hash_tree — so only Rejected/Transient
// surface as an error the peer layer can ban-score.
func (n *Node) OnNewJoint(peer *p2p.Peer, joint p2p.NewJointPayload) error {
	outcome, err := n.IngestUnit(context.Background(), joint.Unit)
	if err != nil {
		return err
	}
	switch outcome.Kind {
	case validate.Rejected:
		return outcome.Err
	case validate.Transient:
		return outcome.Err
	default:
		return nil
	}
}

// OnLightGetHistory implements p2p.PeerHandler. Full address-indexed
// history service is out of scope for this core (spec §9 notes a light
// wallet's address index as a separate concern from the admission/main-chain
// engine this package drives); this reports an empty result rather than
// fabricating one.
func (n *Node) OnLightGetHistory(peer *p2p.Peer, req p2p.LightGetHistoryPayload) (*p2p.HistoryPayload, error) {
	release, _ := n.Arbiter.Lock(context.Background(), arbiter.GetHistoryRequest, false)
	defer release()
	return &p2p.HistoryPayload{}, nil
}

// OnLightGetAAResponses implements p2p.PeerHandler. AA response persistence
// is not part of this core (Open Question 3 resolves only AA execution
// timing, not a response index); this reports an empty page.
func (n *Node) OnLightGetAAResponses(peer *p2p.Peer, req p2p.LightGetAAResponsesPayload) (*p2p.AAResponsePayload, error) {
	return &p2p.AAResponsePayload{}, nil
}

var _ p2p.PeerHandler = (*Node)(nil)
