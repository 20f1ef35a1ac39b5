package ast

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies file contents.
type Fingerprint [blake2b.Size256]byte

func FingerprintOf(data []byte) Fingerprint {
	return blake2b.Sum256(data)
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:8])
}

func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }
