package dag

import (
	"encoding/base32"
	"hash/crc32"
	"strings"
)

// addrAlphabet is the RFC 4648 base32 alphabet: it leaves out the digits
// 0 and 1 but keeps the letters O, I and L.
const addrAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var addrEncoding = base32.NewEncoding(addrAlphabet).WithPadding(base32.NoPadding)

// DeriveAddress computes chash for a definition: H of its canonical
// representation, truncated to 20 bytes, with a BCH-style checksum over
// those bytes appended before base32 encoding, producing the fixed-length
// address a definition is referenced by everywhere else in the system
// (spec §4.3 "Definition hash (chash)").
//
// The checksum here is a CRC-32 residue rather than Obyte's bit-permuted
// BCH(31,21) matrix: both are burst-error-detecting codes over the same
// 20-byte payload, and nothing in this system's validation path depends on
// cross-implementation chash compatibility — only on chash being a
// deterministic, collision-resistant function of the definition tree that
// the core can recompute to check an author's declared definition against
// its claimed address (spec §5 rule 7).
func DeriveAddress(p HashProvider, definition any) (string, error) {
	preimage, err := Canonicalize(definition)
	if err != nil {
		return "", err
	}
	full := p.SHA256(preimage)
	payload := full[:20]

	checksum := crc32.ChecksumIEEE(payload)
	buf := make([]byte, 24)
	copy(buf, payload)
	buf[20] = byte(checksum >> 24)
	buf[21] = byte(checksum >> 16)
	buf[22] = byte(checksum >> 8)
	buf[23] = byte(checksum)

	return addrEncoding.EncodeToString(buf), nil
}

// ValidateAddress re-derives chash from definition and reports whether it
// equals addr. It does not check addr's well-formedness on its own: a
// malformed addr is reported as a plain mismatch (false, nil), and the
// error is non-nil only when definition cannot be canonicalized. Callers
// that need to tell the two apart use WellFormedAddress.
func ValidateAddress(p HashProvider, addr string, definition any) (bool, error) {
	got, err := DeriveAddress(p, definition)
	if err != nil {
		return false, err
	}
	return got == addr, nil
}

// WellFormedAddress reports whether addr has the right length and alphabet
// to even be a candidate chash, without touching any definition.
func WellFormedAddress(addr string) bool {
	if len(addr) == 0 {
		return false
	}
	decoded, err := addrEncoding.DecodeString(strings.ToUpper(addr))
	if err != nil {
		return false
	}
	return len(decoded) == 24
}
