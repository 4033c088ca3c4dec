package script

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"witnessdag.dev/core/crypto"
	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

type fakeReader struct {
	defs  map[string]*storage.Definition
	feeds map[string]string
}

func newFakeReader() *fakeReader {
	return &fakeReader{defs: map[string]*storage.Definition{}, feeds: map[string]string{}}
}

func (f *fakeReader) ReadUnitProps(context.Context, string) (*storage.UnitProps, bool, error) {
	return nil, false, nil
}
func (f *fakeReader) ReadUnitAuthors(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeReader) ReadStableUnitProps(context.Context, string) (*storage.StableUnitProps, bool, error) {
	return nil, false, nil
}
func (f *fakeReader) ReadBallAtMCI(context.Context, int64) (string, bool, error) { return "", false, nil }
func (f *fakeReader) ReadFullUnit(context.Context, string) (*dag.Unit, bool, error) { return nil, false, nil }
func (f *fakeReader) ReadStaticProps(context.Context, string) (string, int64, int64, error) {
	return "", 0, 0, nil
}
func (f *fakeReader) ReadDefinitionByAddress(_ context.Context, addr string, horizon int64) (*storage.Definition, bool, error) {
	d, ok := f.defs[addr]
	if !ok || d.BoundAtMCI > horizon {
		return nil, false, nil
	}
	return d, true, nil
}
func (f *fakeReader) ReadAADefinition(context.Context, string) (*storage.Definition, bool, error) {
	return nil, false, nil
}
func (f *fakeReader) ReadOutputs(context.Context, string, int) ([]storage.Output, error) {
	return nil, nil
}
func (f *fakeReader) ReadInputs(context.Context, string) ([]storage.Input, error) { return nil, nil }
func (f *fakeReader) ReadAuthorUnitsAfter(context.Context, string, int64, int) ([]string, error) {
	return nil, nil
}
func (f *fakeReader) ReadBall(context.Context, string) (*storage.Ball, bool, error) {
	return nil, false, nil
}
func (f *fakeReader) LastStableMCI(context.Context) (int64, error) { return 0, nil }
func (f *fakeReader) ReadDataFeed(_ context.Context, feedAddr, key string, horizon int64) (string, bool, error) {
	v, ok := f.feeds[feedAddr+"/"+key]
	return v, ok, nil
}
func (f *fakeReader) ReadBestChildren(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeReader) ReadFreeTips(context.Context) ([]string, error)             { return nil, nil }

func TestParseAndEvaluateSig(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	p := crypto.StdProvider{}

	def := []any{"sig", map[string]any{"pubkey": hex.EncodeToString(priv.PubKey().SerializeCompressed())}}
	node, err := ParseDefinition(def)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}

	unitID := "unit-abc"
	digest := p.SHA256([]byte(unitID))
	sig := btcecdsa.Sign(priv, digest[:])

	ec := &EvalContext{
		Ctx:           context.Background(),
		Store:         newFakeReader(),
		Crypto:        p,
		UnitID:        unitID,
		Authentifiers: map[string]string{"r": hex.EncodeToString(sig.Serialize())},
	}
	ok, err := Evaluate(node, ec)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Fatal("expected valid signature to authorize")
	}

	ec.Authentifiers["r"] = hex.EncodeToString(append(sig.Serialize()[:len(sig.Serialize())-1], 0x00))
	ok, err = Evaluate(node, ec)
	if err == nil && ok {
		t.Fatal("expected tampered signature to fail")
	}
}

func TestValidateDefinitionRejectsImpossibleSum(t *testing.T) {
	def := []any{"sum", map[string]any{
		"filter":   map[string]any{"what": "input", "asset": "base"},
		"at_least": float64(100),
		"at_most":  float64(50),
	}}
	_, err := ParseDefinition(def)
	if err == nil {
		t.Fatal("expected DefinitionMalformed for at_least > at_most")
	}
	e, ok := dag.AsError(err)
	if !ok || e.Code != dag.ErrDefinitionMalformed {
		t.Fatalf("expected ErrDefinitionMalformed, got %v", err)
	}
}

func TestValidateDefinitionRejectsReferenceUnderNoReferences(t *testing.T) {
	def := []any{"address", map[string]any{"address": "SOMEADDR"}}
	node, err := ParseDefinition(def)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if err := ValidateDefinition(node, true); err == nil {
		t.Fatal("expected reference rejection under bNoReferences")
	} else if !IsReferenceNotAllowed(err) {
		t.Fatalf("expected reference-not-allowed error, got %v", err)
	}
	if err := ValidateDefinition(node, false); err != nil {
		t.Fatalf("expected address operator allowed without bNoReferences: %v", err)
	}
}

func TestValidateDefinitionRejectsStaticQueryBudgetExceeded(t *testing.T) {
	set := make([]any, 0, QMax+1)
	for i := 0; i <= QMax; i++ {
		set = append(set, []any{"attested", map[string]any{"attestor_address": "A", "field": "x"}})
	}
	def := []any{"or", set}
	node, err := ParseDefinition(def)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	err = ValidateDefinition(node, false)
	if err == nil {
		t.Fatal("expected ComplexityExceeded for a definition requiring more than Q_MAX unit-reads")
	}
	e, ok := dag.AsError(err)
	if !ok || e.Code != dag.ErrComplexityExceeded {
		t.Fatalf("expected ErrComplexityExceeded, got %v", err)
	}
}

func TestEvaluateAndOrNot(t *testing.T) {
	reader := newFakeReader()
	reader.defs["INNER"] = &storage.Definition{Address: "INNER", Tree: []any{"this address", map[string]any{"address": "INNER"}}, BoundAtMCI: 1}

	def := []any{"and", []any{
		[]any{"this address", map[string]any{"address": "X"}},
		[]any{"not", []any{"this address", map[string]any{"address": "Y"}}},
	}}
	node, err := ParseDefinition(def)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	ec := &EvalContext{Ctx: context.Background(), Store: reader, ThisAddress: "X"}
	ok, err := Evaluate(node, ec)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Fatal("expected and(true, not(false)) to be true")
	}
}

func TestEvaluateROfSetThreshold(t *testing.T) {
	def := []any{"r of set", map[string]any{
		"required": float64(2),
		"set": []any{
			[]any{"this address", map[string]any{"address": "A"}},
			[]any{"this address", map[string]any{"address": "B"}},
			[]any{"this address", map[string]any{"address": "C"}},
		},
	}}
	node, err := ParseDefinition(def)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	ec := &EvalContext{Ctx: context.Background(), Store: newFakeReader(), ThisAddress: "A"}
	ok, err := Evaluate(node, ec)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Fatal("expected only 1 of 3 true, required 2, to fail")
	}
}

func TestEvaluateComplexityBudgetExceeded(t *testing.T) {
	reader := newFakeReader()
	reader.defs["loop"] = &storage.Definition{Address: "loop", Tree: []any{"address", map[string]any{"address": "loop"}}, BoundAtMCI: 0}

	def := []any{"address", map[string]any{"address": "loop"}}
	node, err := ParseDefinition(def)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	ec := &EvalContext{Ctx: context.Background(), Store: reader, HorizonMCI: 100}
	_, err = Evaluate(node, ec)
	if err == nil {
		t.Fatal("expected ComplexityExceeded from a self-referential address loop")
	}
	e, ok := dag.AsError(err)
	if !ok || e.Code != dag.ErrComplexityExceeded {
		t.Fatalf("expected ErrComplexityExceeded, got %v", err)
	}
}
