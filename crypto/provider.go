// Package crypto is the narrow hashing/signing interface the consensus
// packages depend on. Implementations may swap backends without the
// dag/storage/node packages knowing about it.
package crypto

// Provider is the crypto surface used by the consensus core: canonical
// hashing and the signature suite backing the "sig" definition operator.
type Provider interface {
	// SHA256 returns the 32-byte digest used for unit/ball ids and chash.
	SHA256(input []byte) [32]byte

	// VerifySecp256k1 checks an ECDSA/secp256k1 signature over digest32
	// against pubkey (33-byte compressed form). Used by the "sig" operator
	// and by author-authentifier verification.
	VerifySecp256k1(pubkey []byte, sig []byte, digest32 [32]byte) bool
}
