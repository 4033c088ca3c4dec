// Package p2p implements the wire envelope and peer message catalogue a
// witnessdag node exchanges with its peers (spec §6.2): catchup_request,
// get_hash_tree, new_joint, light_get_history and light_get_aa_responses,
// plus the version/verack/ping/pong handshake and reject/ban-score policy
// machinery that carries them.
//
// Grounded on the teacher's node/p2p package: the same fixed-size transport
// header (magic + 12-byte command + length + checksum), the same
// ReadError{Err, BanScoreDelta, Disconnect} policy shape for malformed
// input, and the same BanScore decay primitive. Where the teacher packs
// fixed binary layouts for a validated-length blockchain wire format, this
// package instead JSON-encodes each payload (mirroring node/store's choice
// of JSON over hand-packed binary for variable-shape structures) and relies
// on the envelope's length-prefixed framing for delimiting; it is never
// used as a hash preimage, so JSON's lack of canonical field ordering is
// harmless here — unlike dag's canonical encoder, which the wire format
// deliberately does NOT reuse (spec §6.1).
package p2p
