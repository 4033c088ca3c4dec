package p2p

import (
	"encoding/json"
	"errors"
	"fmt"

	"witnessdag.dev/core/dag/catchup"
	"witnessdag.dev/core/storage"
)

// HistoryMaxJoints bounds a single history_payload reply (spec §6.2
// `light_get_history(...) → history_payload | error("history too large")`).
// A request whose matching joint set exceeds this is rejected rather than
// answered, so a light wallet asking for an unbounded address set can't
// force this node to build an unbounded response.
const HistoryMaxJoints = 3000

// ErrHistoryTooLarge is returned by a history-serving handler when the
// requested address/joint set would exceed HistoryMaxJoints; the caller
// translates it into a RejectPayload rather than a transport-level ban,
// since this is a legitimate (if oversized) request, not misbehavior.
var ErrHistoryTooLarge = errors.New("p2p: light_get_history: history too large")

// LightGetHistoryPayload is the wire shape of spec §6.2's
// `light_get_history({addresses?, requested_joints?, witnesses, min_mci?,
// known_stable_units?})`.
type LightGetHistoryPayload struct {
	Addresses        []string `json:"addresses,omitempty"`
	RequestedJoints  []string `json:"requested_joints,omitempty"`
	Witnesses        []string `json:"witnesses"`
	MinMCI           int64    `json:"min_mci,omitempty"`
	KnownStableUnits []string `json:"known_stable_units,omitempty"`
}

func EncodeLightGetHistoryPayload(p LightGetHistoryPayload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: light_get_history: encode: %w", err)
	}
	return b, nil
}

func DecodeLightGetHistoryPayload(b []byte) (*LightGetHistoryPayload, error) {
	var p LightGetHistoryPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: light_get_history: decode: %w", err)
	}
	return &p, nil
}

// HistoryPayload answers a LightGetHistoryPayload: the matching full units
// (so the light wallet can verify hashes and signatures itself, same
// never-trust-the-peer posture as the witness proof) plus the ball chain
// proving their stability back to a unit the wallet already trusts.
type HistoryPayload struct {
	Joints     []catchup.Joint `json:"joints"`
	ProofChain []storage.Ball  `json:"proof_chain"`
}

func EncodeHistoryPayload(p HistoryPayload) ([]byte, error) {
	if len(p.Joints) > HistoryMaxJoints {
		return nil, ErrHistoryTooLarge
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: history_payload: encode: %w", err)
	}
	return b, nil
}

func DecodeHistoryPayload(b []byte) (*HistoryPayload, error) {
	var p HistoryPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: history_payload: decode: %w", err)
	}
	return &p, nil
}
