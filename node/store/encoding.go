package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Records are JSON-encoded rather than hand-packed binary (the teacher's
// BlockIndexEntry layout): unit props, definitions and balls carry
// variable-shape fields (definition trees, witness lists, parent sets)
// where a fixed binary layout would need its own variable-length framing
// anyway — JSON gets the same determinism-doesn't-matter-here property
// (these are local storage bytes, never hashed) for a fraction of the code.
func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return b, nil
}

func decodeJSON(b []byte, out any) error {
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

// outputKey orders lexicographically by (unit, message_index, output_index)
// so a bucket cursor can range-scan all outputs of one (unit, message_index)
// pair with Seek+prefix matching (teacher's encodeOutpointKey idiom).
func outputKey(unitID string, messageIndex, outputIndex int) []byte {
	k := make([]byte, 0, len(unitID)+1+4+4)
	k = append(k, []byte(unitID)...)
	k = append(k, 0) // NUL separator: unit ids never contain NUL.
	var idxBuf [8]byte
	binary.BigEndian.PutUint32(idxBuf[0:4], uint32(messageIndex))
	binary.BigEndian.PutUint32(idxBuf[4:8], uint32(outputIndex))
	return append(k, idxBuf[:]...)
}

func outputPrefix(unitID string, messageIndex int) []byte {
	k := make([]byte, 0, len(unitID)+1+4)
	k = append(k, []byte(unitID)...)
	k = append(k, 0)
	var idxBuf [4]byte
	binary.BigEndian.PutUint32(idxBuf[:], uint32(messageIndex))
	return append(k, idxBuf[:]...)
}
