package p2p

// Command names are the wire-level command labels carried in the transport
// header (spec §6.2's contract labels plus the handshake/keepalive messages
// every peer connection needs regardless of protocol).
const (
	CmdVersion = "version"
	CmdVerack  = "verack"
	CmdReject  = "reject"
	CmdPing    = "ping"
	CmdPong    = "pong"

	CmdCatchupRequest = "catchup_request"
	CmdCatchupChain   = "catchup_chain"

	CmdGetHashTree    = "get_hash_tree"
	CmdHashTreeBatch  = "hash_tree_batch"

	CmdNewJoint = "new_joint"

	CmdLightGetHistory = "light_get_history"
	CmdHistoryPayload  = "history_payload"

	CmdLightGetAAResponses = "light_get_aa_responses"
	CmdAAResponsePayload   = "aa_response_payload"
)

// MaxRejectReasonBytes bounds the reason string in a RejectPayload so a
// malicious peer-supplied string can't be used to exhaust memory or pollute
// logs unbounded (spec §6.2 "unbounded peer-supplied data MUST NOT be
// echoed back into logs").
const MaxRejectReasonBytes = 200
