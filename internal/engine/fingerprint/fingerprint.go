// Package fingerprint derives content digests.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"unpack/internal/core/ports"
)

// SHA256 hashes the UTF-8 bytes of the text and returns lower-case hex.
type SHA256 struct{}

var _ ports.Fingerprinter = SHA256{}

func (SHA256) Compute(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
