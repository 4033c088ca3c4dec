package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

// StdProvider is the default Provider: SHA3-256 for canonical hashing and
// secp256k1/ECDSA (DER-encoded signatures) for signature verification.
type StdProvider struct{}

func (StdProvider) SHA256(input []byte) [32]byte {
	return sha3.Sum256(input)
}

func (StdProvider) VerifySecp256k1(pubkeyBytes []byte, sigBytes []byte, digest32 [32]byte) bool {
	pubkey, err := btcec.ParsePubKey(pubkeyBytes)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	return sig.Verify(digest32[:], pubkey)
}
