package p2p

import (
	"encoding/json"
	"fmt"

	"witnessdag.dev/core/dag/catchup"
	"witnessdag.dev/core/storage"
)

// CatchupRequestPayload is the wire shape of catchup.Request (spec §6.2
// `catchup_request(last_stable_mci, last_known_mci, witnesses)`).
// LastKnownMCI is carried separately from catchup.Request.LastStableMCI so
// the peer can size its witness-proof walk without a second round trip;
// dag/catchup itself only needs LastStableMCI to build the proof.
type CatchupRequestPayload struct {
	LastStableMCI int64    `json:"last_stable_mci"`
	LastKnownMCI  int64    `json:"last_known_mci"`
	Witnesses     []string `json:"witnesses"`
}

// ToRequest projects p into a catchup.Request for dag/catchup.BuildWitnessProof.
func (p CatchupRequestPayload) ToRequest() catchup.Request {
	return catchup.Request{LastStableMCI: p.LastStableMCI, Witnesses: p.Witnesses}
}

func EncodeCatchupRequestPayload(p CatchupRequestPayload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: catchup_request: encode: %w", err)
	}
	return b, nil
}

func DecodeCatchupRequestPayload(b []byte) (*CatchupRequestPayload, error) {
	var p CatchupRequestPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: catchup_request: decode: %w", err)
	}
	return &p, nil
}

// CatchupChainPayload is the wire shape of catchup.Response.
type CatchupChainPayload struct {
	WitnessProof       []catchup.Joint `json:"witness_proof"`
	StableLastBallUnit string          `json:"stable_last_ball_unit"`
	BallChain          []storage.Ball  `json:"ball_chain"`
}

func CatchupChainPayloadFromResponse(r *catchup.Response) CatchupChainPayload {
	return CatchupChainPayload{
		WitnessProof:       r.WitnessProof,
		StableLastBallUnit: r.StableLastBallUnit,
		BallChain:          r.BallChain,
	}
}

func (p CatchupChainPayload) ToResponse() *catchup.Response {
	return &catchup.Response{
		WitnessProof:       p.WitnessProof,
		StableLastBallUnit: p.StableLastBallUnit,
		BallChain:          p.BallChain,
	}
}

func EncodeCatchupChainPayload(p CatchupChainPayload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: catchup_chain: encode: %w", err)
	}
	return b, nil
}

func DecodeCatchupChainPayload(b []byte) (*CatchupChainPayload, error) {
	var p CatchupChainPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: catchup_chain: decode: %w", err)
	}
	return &p, nil
}

// GetHashTreePayload is the wire shape of spec §6.2's
// `get_hash_tree(from_mci, to_mci)`. ToMCI is advisory: the peer still caps
// its reply at B_BALLS (dag/catchup.BBalls) regardless of the requested
// range.
type GetHashTreePayload struct {
	FromMCI int64 `json:"from_mci"`
	ToMCI   int64 `json:"to_mci"`
}

func EncodeGetHashTreePayload(p GetHashTreePayload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: get_hash_tree: encode: %w", err)
	}
	return b, nil
}

func DecodeGetHashTreePayload(b []byte) (*GetHashTreePayload, error) {
	var p GetHashTreePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: get_hash_tree: decode: %w", err)
	}
	return &p, nil
}

// HashTreeBatchPayload wraps dag/catchup.BuildHashTreeBatch's result.
type HashTreeBatchPayload struct {
	Balls []storage.Ball `json:"balls"`
}

func EncodeHashTreeBatchPayload(p HashTreeBatchPayload) ([]byte, error) {
	if len(p.Balls) > catchup.BBalls {
		return nil, fmt.Errorf("p2p: hash_tree_batch: %d balls exceeds B_BALLS=%d", len(p.Balls), catchup.BBalls)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: hash_tree_batch: encode: %w", err)
	}
	return b, nil
}

func DecodeHashTreeBatchPayload(b []byte) (*HashTreeBatchPayload, error) {
	var p HashTreeBatchPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: hash_tree_batch: decode: %w", err)
	}
	if len(p.Balls) > catchup.BBalls {
		return nil, fmt.Errorf("p2p: hash_tree_batch: %d balls exceeds B_BALLS=%d", len(p.Balls), catchup.BBalls)
	}
	return &p, nil
}
