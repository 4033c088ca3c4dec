package validate

import (
	"context"
	"encoding/json"
	"fmt"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// messageWrite is the set of ledger side effects one payment message
// produces, carried from this phase to admission so the whole unit's
// outputs/spends persist in a single atomic batch (spec §4.5.1 step 11).
type messageWrite struct {
	messageIndex int
	spends       []storage.Input
	newOutputs   []storage.Output
	dataFeed     []dataFeedWrite
}

// dataFeedWrite is one key/value pair a "data_feed" message publishes,
// attributed to the unit's first author (spec §4.4 "in data feed" /
// "attested" operators consult exactly this per-address, per-key history).
type dataFeedWrite struct {
	feedAddress string
	key         string
	value       string
}

// checkMessages is phase 9 (spec §4.5.1 step 9): payment messages get
// input/output/fee validation and issuance policy; data/attestation/asset
// messages get payload-shape and nesting-depth checks. Unrecognized app
// types pass through unvalidated — the spec's message list ("payment,
// data, asset-definition, text, agent, etc.") is open-ended and only the
// enumerated payment/data/asset shapes get bespoke checks here.
func checkMessages(ctx context.Context, r storage.Reader, u *dag.Unit, horizonMCI int64) ([]messageWrite, error) {
	authorSet := make(map[string]struct{}, len(u.Authors))
	for _, a := range u.Authors {
		authorSet[a.Address] = struct{}{}
	}

	var feedAddress string
	if len(u.Authors) > 0 {
		feedAddress = u.Authors[0].Address
	}

	var writes []messageWrite
	for idx, msg := range u.Messages {
		switch msg.App {
		case "payment":
			w, err := checkPayment(ctx, r, idx, msg, authorSet)
			if err != nil {
				return nil, err
			}
			writes = append(writes, w)
		case "data_feed":
			w, err := checkDataFeed(idx, msg, feedAddress)
			if err != nil {
				return nil, err
			}
			writes = append(writes, w)
		case "data", "text", "definition", "asset", "attestation":
			if msg.Payload != nil {
				if _, err := dag.Canonicalize(msg.Payload); err != nil {
					return nil, &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("message %d payload: %v", idx, err)}
				}
			}
		}
	}
	return writes, nil
}

func checkDataFeed(idx int, msg dag.Message, feedAddress string) (messageWrite, error) {
	entries := make(map[string]string)
	if err := decodePayload(msg.Payload, &entries); err != nil {
		return messageWrite{}, &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("message %d: malformed data_feed payload: %v", idx, err)}
	}
	w := messageWrite{messageIndex: idx}
	for key, value := range entries {
		w.dataFeed = append(w.dataFeed, dataFeedWrite{feedAddress: feedAddress, key: key, value: value})
	}
	return w, nil
}

func checkPayment(ctx context.Context, r storage.Reader, idx int, msg dag.Message, authorSet map[string]struct{}) (messageWrite, error) {
	var payment dag.Payment
	if err := decodePayload(msg.Payload, &payment); err != nil {
		return messageWrite{}, &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("message %d: malformed payment payload: %v", idx, err)}
	}

	var totalIn, totalOut int64
	w := messageWrite{messageIndex: idx}

	for _, in := range payment.Inputs {
		switch in.Type {
		case "", "transfer":
			outs, err := r.ReadOutputs(ctx, in.UnitID, in.MessageIndex)
			if err != nil {
				return messageWrite{}, err
			}
			var src *storage.Output
			for i := range outs {
				if outs[i].OutputIndex == in.OutputIndex {
					src = &outs[i]
					break
				}
			}
			if src == nil {
				return messageWrite{}, &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("message %d: input references unknown output", idx)}
			}
			if src.IsSpent {
				return messageWrite{}, &dag.Error{Code: dag.ErrDoubleSpend, Msg: fmt.Sprintf("output %s[%d][%d] already spent", in.UnitID, in.MessageIndex, in.OutputIndex)}
			}
			if _, owned := authorSet[src.Address]; !owned {
				return messageWrite{}, &dag.Error{Code: dag.ErrMalformed, Msg: "input output is not owned by an author of this unit"}
			}
			if src.Asset != payment.Asset {
				return messageWrite{}, &dag.Error{Code: dag.ErrAssetPolicyViolation, Msg: "input asset does not match message asset"}
			}
			totalIn += src.Amount
			w.spends = append(w.spends, storage.Input{SrcUnit: in.UnitID, SrcMessageIndex: in.MessageIndex, SrcOutputIndex: in.OutputIndex, Amount: src.Amount})
		case "issue":
			// Per-asset issuance policy is out of this validator's scope
			// without a registered asset-policy store; a positive declared
			// amount is the only invariant enforceable here.
			if in.Amount <= 0 {
				return messageWrite{}, &dag.Error{Code: dag.ErrAssetPolicyViolation, Msg: "issue input must declare a positive amount"}
			}
			totalIn += in.Amount
		case "headers_commission", "witnessing":
			if in.Amount <= 0 {
				return messageWrite{}, &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("%s input must declare a positive amount", in.Type)}
			}
			totalIn += in.Amount
		default:
			return messageWrite{}, &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("unknown input type %q", in.Type)}
		}
	}

	for outIdx, out := range payment.Outputs {
		if out.Amount < 0 {
			return messageWrite{}, &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("message %d output %d has negative amount", idx, outIdx)}
		}
		if !dag.WellFormedAddress(out.Address) {
			return messageWrite{}, &dag.Error{Code: dag.ErrMalformed, Msg: fmt.Sprintf("message %d output %d has malformed address", idx, outIdx)}
		}
		totalOut += out.Amount
		w.newOutputs = append(w.newOutputs, storage.Output{
			MessageIndex: idx,
			OutputIndex:  outIdx,
			Address:      out.Address,
			Asset:        payment.Asset,
			Amount:       out.Amount,
		})
	}

	if totalIn < totalOut {
		return messageWrite{}, &dag.Error{Code: dag.ErrInsufficientInputs, Msg: fmt.Sprintf("message %d: inputs %d short of outputs %d", idx, totalIn, totalOut)}
	}
	return w, nil
}

// decodePayload adapts a message's untyped JSON-decoded payload into a
// concrete struct; payloads already arrive as generic map[string]any from
// the wire/storage decode path (node/store's encoding.go), so round-tripping
// through encoding/json is the cheapest correct conversion, not a new
// serialization concern needing its own library.
func decodePayload(payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
