package p2p

import (
	"testing"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/dag/catchup"
	"witnessdag.dev/core/storage"
)

func TestCatchupRequestPayloadRoundTrip(t *testing.T) {
	in := CatchupRequestPayload{LastStableMCI: 10, LastKnownMCI: 12, Witnesses: []string{"W1", "W2"}}
	b, err := EncodeCatchupRequestPayload(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeCatchupRequestPayload(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.LastStableMCI != in.LastStableMCI || out.LastKnownMCI != in.LastKnownMCI || len(out.Witnesses) != 2 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	req := out.ToRequest()
	if req.LastStableMCI != in.LastStableMCI {
		t.Fatalf("toRequest mismatch: %+v", req)
	}
}

func TestCatchupChainPayloadRoundTrip(t *testing.T) {
	resp := &catchup.Response{
		WitnessProof:       []catchup.Joint{{Unit: &dag.Unit{UnitID: "U1", Version: "1.0", Authors: []dag.Author{{Address: "A"}}}}},
		StableLastBallUnit: "U1",
		BallChain:          []storage.Ball{{BallID: "B1", UnitID: "U1"}},
	}
	in := CatchupChainPayloadFromResponse(resp)
	b, err := EncodeCatchupChainPayload(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeCatchupChainPayload(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	back := out.ToResponse()
	if back.StableLastBallUnit != "U1" || len(back.WitnessProof) != 1 || back.WitnessProof[0].Unit.UnitID != "U1" {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if len(back.BallChain) != 1 || back.BallChain[0].BallID != "B1" {
		t.Fatalf("ball chain round trip mismatch: %+v", back.BallChain)
	}
}

func TestHashTreeBatchPayloadRejectsOverBBalls(t *testing.T) {
	balls := make([]storage.Ball, catchup.BBalls+1)
	_, err := EncodeHashTreeBatchPayload(HashTreeBatchPayload{Balls: balls})
	if err == nil {
		t.Fatal("expected an error for a batch exceeding B_BALLS")
	}
}

func TestNewJointPayloadRejectsNilUnit(t *testing.T) {
	_, err := EncodeNewJointPayload(NewJointPayload{})
	if err == nil {
		t.Fatal("expected an error for a nil unit")
	}
}

func TestNewJointPayloadRoundTrip(t *testing.T) {
	in := NewJointPayload{Unit: &dag.Unit{UnitID: "U1", Version: "1.0"}}
	b, err := EncodeNewJointPayload(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeNewJointPayload(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Unit.UnitID != "U1" {
		t.Fatalf("round trip mismatch: %+v", out.Unit)
	}
}

func TestHistoryPayloadRejectsOverHistoryMax(t *testing.T) {
	joints := make([]catchup.Joint, HistoryMaxJoints+1)
	_, err := EncodeHistoryPayload(HistoryPayload{Joints: joints})
	if err == nil {
		t.Fatal("expected ErrHistoryTooLarge")
	}
}

func TestAAResponsePayloadRejectsOverPageSize(t *testing.T) {
	responses := make([]AAResponse, AAResponsesPageSize+1)
	_, err := EncodeAAResponsePayload(AAResponsePayload{Responses: responses})
	if err == nil {
		t.Fatal("expected an error for exceeding AAResponsesPageSize")
	}
}

func TestAAResponsePayloadRoundTripWithCursor(t *testing.T) {
	in := AAResponsePayload{
		Responses:  []AAResponse{{AAAddress: "AA1", TriggerUnit: "U1", MCI: 5, AAResponseID: "R1", Success: true}},
		NextCursor: &AAResponsesCursor{MCI: 5, AAResponseID: "R1"},
	}
	b, err := EncodeAAResponsePayload(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeAAResponsePayload(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.NextCursor == nil || out.NextCursor.AAResponseID != "R1" {
		t.Fatalf("cursor round trip mismatch: %+v", out.NextCursor)
	}
}

func TestRejectPayloadTruncatesOversizeReason(t *testing.T) {
	longReason := make([]byte, MaxRejectReasonBytes+50)
	for i := range longReason {
		longReason[i] = 'x'
	}
	b, err := EncodeRejectPayload(RejectPayload{Message: CmdNewJoint, Code: dag.ErrMalformed, Reason: string(longReason)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeRejectPayload(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Reason) != MaxRejectReasonBytes {
		t.Fatalf("expected reason truncated to %d bytes, got %d", MaxRejectReasonBytes, len(out.Reason))
	}
}
