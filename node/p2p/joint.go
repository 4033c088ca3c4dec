package p2p

import (
	"encoding/json"
	"fmt"

	"witnessdag.dev/core/dag"
)

// NewJointPayload is the wire shape of spec §6.2's unsolicited
// `new_joint(unit_joint)` push: a single full unit a peer believes this
// node hasn't seen yet.
type NewJointPayload struct {
	Unit *dag.Unit `json:"unit"`
}

func EncodeNewJointPayload(p NewJointPayload) ([]byte, error) {
	if p.Unit == nil {
		return nil, fmt.Errorf("p2p: new_joint: nil unit")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: new_joint: encode: %w", err)
	}
	return b, nil
}

func DecodeNewJointPayload(b []byte) (*NewJointPayload, error) {
	var p NewJointPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: new_joint: decode: %w", err)
	}
	if p.Unit == nil {
		return nil, fmt.Errorf("p2p: new_joint: missing unit")
	}
	return &p, nil
}
