package dag

import "sort"

// SequenceState classifies a unit's place in a conflicting group once the
// main chain has stabilized past it (spec §3, §6.3).
type SequenceState string

const (
	SequenceGood       SequenceState = "good"
	SequenceFinalBad   SequenceState = "final-bad"
	SequenceTempBad    SequenceState = "temp-bad"
)

// Author is one signer of a unit: an address plus the per-message
// authentifiers it supplies to the definition evaluator (spec §4.4).
type Author struct {
	Address        string            `json:"address"`
	Authentifiers  map[string]string `json:"authentifiers"`
	Definition     any               `json:"definition,omitempty"`
}

// Payment is the "payment" message payload: an asset move with inputs and
// outputs (spec §3).
type Payment struct {
	Asset   string   `json:"asset,omitempty"`
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

// Input references a prior output being spent, or an issue/headers-commission
// claim; Type is empty for a plain transfer input.
type Input struct {
	Type     string `json:"type,omitempty"`
	UnitID   string `json:"unit,omitempty"`
	MessageIndex int `json:"message_index,omitempty"`
	OutputIndex  int `json:"output_index,omitempty"`
	Amount   int64  `json:"amount,omitempty"`
}

// Output is a payment destination.
type Output struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

// Message is one app-typed entry in a unit's message list (spec §3, §4.4).
type Message struct {
	App      string `json:"app"`
	Payload  any    `json:"payload,omitempty"`
	PayloadHash string `json:"payload_hash,omitempty"`
	PayloadLocation string `json:"payload_location,omitempty"` // "inline" | "uri" | "none"
}

// Unit is a DAG vertex: the atomic object authors broadcast and the
// validator, main-chain engine, and catchup protocol all operate on
// (spec §3, §4.1-§4.5).
type Unit struct {
	UnitID   string   `json:"unit,omitempty"`
	Version  string   `json:"version"`
	Alt      string   `json:"alt"`
	Parents  []string `json:"parent_units"`
	LastBallUnit string `json:"last_ball_unit,omitempty"`
	LastBall     string `json:"last_ball,omitempty"`
	WitnessListUnit string   `json:"witness_list_unit,omitempty"`
	Witnesses       []string `json:"witnesses,omitempty"`
	Authors  []Author  `json:"authors"`
	Messages []Message `json:"messages"`

	// Derived/volatile — never part of the hash preimage, populated once
	// the unit is admitted (spec §4.1 "strip derived/volatile fields").
	MainChainIndex   *int64         `json:"main_chain_index,omitempty"`
	Level            *int64         `json:"level,omitempty"`
	WitnessedLevel   *int64         `json:"witnessed_level,omitempty"`
	IsOnMainChain    bool           `json:"is_on_main_chain,omitempty"`
	IsStable         bool           `json:"is_stable,omitempty"`
	Sequence         SequenceState  `json:"sequence,omitempty"`

	// Author-declared; HashPreimage includes each of these when nonzero.
	Timestamp        int64          `json:"timestamp,omitempty"`
	HeadersCommission int64         `json:"headers_commission,omitempty"`
	PayloadCommission int64         `json:"payload_commission,omitempty"`
}

// HashPreimage builds the canonical object that UnitID is derived from:
// the authored fields above the "derived/volatile" line, plus timestamp
// and the two commission fields when nonzero (spec §4.1). Each message's
// payload is replaced by its payload_hash; with keepContent an inline
// payload is kept in its place instead. There is no content_hash form for
// archived units.
func (u *Unit) HashPreimage(keepContent bool) map[string]any {
	m := map[string]any{
		"version":       u.Version,
		"alt":           u.Alt,
		"parent_units":  stringsToAny(u.Parents),
		"authors":       authorsToAny(u.Authors),
		"messages":      messagesToAny(u.Messages, keepContent),
	}
	if u.LastBallUnit != "" {
		m["last_ball_unit"] = u.LastBallUnit
		m["last_ball"] = u.LastBall
	}
	if u.WitnessListUnit != "" {
		m["witness_list_unit"] = u.WitnessListUnit
	} else if len(u.Witnesses) > 0 {
		w := append([]string(nil), u.Witnesses...)
		sort.Strings(w)
		m["witnesses"] = stringsToAny(w)
	}
	if u.Timestamp != 0 {
		m["timestamp"] = u.Timestamp
	}
	if u.HeadersCommission != 0 {
		m["headers_commission"] = u.HeadersCommission
	}
	if u.PayloadCommission != 0 {
		m["payload_commission"] = u.PayloadCommission
	}
	return m
}

// DeriveUnitID computes UnitID from the unit's current field values using
// the supplied hash provider. Callers must have already validated shape
// before trusting the result.
func (u *Unit) DeriveUnitID(p HashProvider) (string, error) {
	return Hash(p, u.HashPreimage(false))
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// authorsToAny renders each author for the hash preimage WITHOUT its
// authentifiers: an authentifier is a proof over the unit id itself (spec
// §4.5.1 step 7 "evaluate... against the unit id"), so it cannot also be an
// input to computing that id. Only address and an inline definition reveal
// feed the hash.
func authorsToAny(authors []Author) []any {
	out := make([]any, len(authors))
	for i, a := range authors {
		entry := map[string]any{"address": a.Address}
		if a.Definition != nil {
			entry["definition"] = a.Definition
		}
		out[i] = entry
	}
	return out
}

func messagesToAny(msgs []Message, keepContent bool) []any {
	out := make([]any, len(msgs))
	for i, m := range msgs {
		entry := map[string]any{"app": m.App}
		switch {
		case keepContent && m.Payload != nil:
			entry["payload"] = m.Payload
		case m.PayloadHash != "":
			entry["payload_hash"] = m.PayloadHash
		}
		if m.PayloadLocation != "" {
			entry["payload_location"] = m.PayloadLocation
		}
		out[i] = entry
	}
	return out
}
