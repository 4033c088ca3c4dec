package p2p

import (
	"encoding/json"
	"fmt"
)

const (
	ProtocolVersionV1 = 1
	MaxUserAgentBytes = 256
)

// VersionPayload is the handshake's identity announcement. GenesisUnit
// anchors peers to the same DAG (the teacher's ChainID generalized to a
// genesis unit id, since witnessdag has no separate chain-id constant —
// the genesis unit already uniquely identifies a deployment per §3).
// WitnessListLockMCI carries the Open-Question-2 deployment parameter
// (spec §9). Handshake does not compare it and node.Config.PeerConfig does
// not fill it in, so peers whose values differ still complete the handshake.
type VersionPayload struct {
	ProtocolVersion    uint32 `json:"protocol_version"`
	GenesisUnit        string `json:"genesis_unit"`
	WitnessListLockMCI int64  `json:"witness_list_lock_mci"`
	PeerServices       uint64 `json:"peer_services"`
	Timestamp          int64  `json:"timestamp"`
	Nonce              uint64 `json:"nonce"`
	UserAgent          string `json:"user_agent"`
	Relay              bool   `json:"relay"`
}

func EncodeVersionPayload(v VersionPayload) ([]byte, error) {
	if v.ProtocolVersion != ProtocolVersionV1 {
		return nil, fmt.Errorf("p2p: version: unsupported protocol_version")
	}
	if len(v.UserAgent) > MaxUserAgentBytes {
		return nil, fmt.Errorf("p2p: version: user_agent too long")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("p2p: version: encode: %w", err)
	}
	return b, nil
}

func DecodeVersionPayload(b []byte) (*VersionPayload, error) {
	var v VersionPayload
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("p2p: version: decode: %w", err)
	}
	if len(v.UserAgent) > MaxUserAgentBytes {
		return nil, fmt.Errorf("p2p: version: user_agent too long")
	}
	return &v, nil
}
