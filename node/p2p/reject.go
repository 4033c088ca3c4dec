package p2p

import (
	"encoding/json"
	"fmt"

	"witnessdag.dev/core/dag"
)

// RejectPayload is the structured response the spec requires for
// peer-induced errors (§6.2 "peers receive a taxonomized code and a short
// message"). Code is one of dag's ErrorCode constants so rejects and
// internal diagnostics share one taxonomy instead of inventing a second,
// p2p-specific error enum.
type RejectPayload struct {
	Message string        `json:"message"` // command being rejected
	Code    dag.ErrorCode `json:"code"`
	Reason  string        `json:"reason"`
}

func EncodeRejectPayload(r RejectPayload) ([]byte, error) {
	if r.Message == "" {
		return nil, fmt.Errorf("p2p: reject: empty message")
	}
	if len(r.Reason) > MaxRejectReasonBytes {
		r.Reason = r.Reason[:MaxRejectReasonBytes]
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("p2p: reject: encode: %w", err)
	}
	return b, nil
}

func DecodeRejectPayload(b []byte) (*RejectPayload, error) {
	var r RejectPayload
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("p2p: reject: decode: %w", err)
	}
	if len(r.Reason) > MaxRejectReasonBytes {
		r.Reason = r.Reason[:MaxRejectReasonBytes]
	}
	return &r, nil
}
