// Package catchup implements catchup & witness proof (C7): the
// catchup-chain protocol a lagging node and a synced peer run to agree on
// a provisional tip (§4.7.1), the lagger's witness-proof validation with
// its mandatory preliminary witness scan (§4.7.2), the hash-tree protocol
// for streaming stable balls ahead of their full units (§4.7.3), and the
// post-catchup headers-commission recalculation (§4.7.4). Grounded on the
// teacher's node/sync.go SyncEngine (HeaderSyncRequest's locator-driven
// peer exchange, ApplyBlock's snapshot-then-rollback-on-failure shape) and
// node/p2p/headers.go's batched, length-capped wire payloads, generalized
// from a single linear header chain to a DAG's witness-proof/hash-tree
// pair. dag/mainchain supplies the main-chain walk (SelectTip/PathToStable)
// this package's witness-proof builder reuses directly.
package catchup

// Protocol limits (spec §4.7).
const (
	// LChain is L_CHAIN, the maximum length of a ball proof chain returned
	// in one catchup-chain response.
	LChain = 1_000_000

	// BBalls is B_BALLS: the hash-tree protocol commits after at most this
	// many entries per transaction, bounding write-lock hold duration.
	BBalls = 100

	// BMax is B_MAX: the total number of pending hash-tree entries a node
	// will hold before refusing more, bounding memory under an adversarial
	// or just-very-far-behind peer.
	BMax = 10_000

	// BComm is B_COMM: headers-commission recalculation after catchup
	// proceeds in MCI-keyed batches of this size rather than loading the
	// full historical relation into memory.
	BComm = 1_000
)
