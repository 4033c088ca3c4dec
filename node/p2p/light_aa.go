package p2p

import (
	"encoding/json"
	"fmt"
)

// AAResponsesPageSize is the hard cap on entries per reply (spec §6.2
// "up to 100 responses").
const AAResponsesPageSize = 100

// LightGetAAResponsesPayload is the wire shape of spec §6.2's
// `light_get_aa_responses({aas, min_mci?, max_mci?, order,
// last_aa_response_id?})`. The pagination cursor needs both MinMCI (or
// MaxMCI, depending on Order) and LastAAResponseID to disambiguate
// multiple responses landing at the same MCI (spec §6.2).
type LightGetAAResponsesPayload struct {
	AAs              []string `json:"aas"`
	MinMCI           *int64   `json:"min_mci,omitempty"`
	MaxMCI           *int64   `json:"max_mci,omitempty"`
	Order            string   `json:"order"` // "asc" | "desc"
	LastAAResponseID string   `json:"last_aa_response_id,omitempty"`
}

func EncodeLightGetAAResponsesPayload(p LightGetAAResponsesPayload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: light_get_aa_responses: encode: %w", err)
	}
	return b, nil
}

func DecodeLightGetAAResponsesPayload(b []byte) (*LightGetAAResponsesPayload, error) {
	var p LightGetAAResponsesPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: light_get_aa_responses: decode: %w", err)
	}
	return &p, nil
}

// AAResponse is a single autonomous-agent trigger outcome. A full AA
// language is out of scope (spec §9's Open Question 3 / Non-goals); this
// is the protocol-shape the catalogue commits to so a concrete
// AATransitionRunner (dag/mainchain.AATransitionRunner) has somewhere to
// publish its outcomes for light wallets to page through, without this
// package depending on any particular AA interpreter.
type AAResponse struct {
	AAAddress    string `json:"aa_address"`
	TriggerUnit  string `json:"trigger_unit"`
	MCI          int64  `json:"mci"`
	AAResponseID string `json:"aa_response_id"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// AAResponsePayload answers a LightGetAAResponsesPayload. NextCursor is nil
// once the caller has exhausted all matching responses.
type AAResponsePayload struct {
	Responses  []AAResponse         `json:"responses"`
	NextCursor *AAResponsesCursor   `json:"next_cursor,omitempty"`
}

// AAResponsesCursor is the pagination cursor spec §6.2 requires: MCI plus
// AAResponseID, since more than 100 responses can share one MCI.
type AAResponsesCursor struct {
	MCI          int64  `json:"mci"`
	AAResponseID string `json:"aa_response_id"`
}

func EncodeAAResponsePayload(p AAResponsePayload) ([]byte, error) {
	if len(p.Responses) > AAResponsesPageSize {
		return nil, fmt.Errorf("p2p: aa_response_payload: %d responses exceeds page size %d", len(p.Responses), AAResponsesPageSize)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("p2p: aa_response_payload: encode: %w", err)
	}
	return b, nil
}

func DecodeAAResponsePayload(b []byte) (*AAResponsePayload, error) {
	var p AAResponsePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("p2p: aa_response_payload: decode: %w", err)
	}
	if len(p.Responses) > AAResponsesPageSize {
		return nil, fmt.Errorf("p2p: aa_response_payload: %d responses exceeds page size %d", len(p.Responses), AAResponsesPageSize)
	}
	return &p, nil
}
