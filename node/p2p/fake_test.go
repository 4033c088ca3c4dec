package p2p

import "crypto/sha256"

// fakeHash is a deterministic dag.HashProvider stand-in so tests don't need
// the real crypto package's secp256k1/sha3 machinery.
type fakeHash struct{}

func (fakeHash) SHA256(b []byte) [32]byte { return sha256.Sum256(b) }
