package util

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUIDProvider issues random version 4 identifiers.
type UUIDProvider struct{}

func (UUIDProvider) NewID(string) string {
	return uuid.NewString()
}

// FingerprintIDProvider derives stable identifiers from the content hash so
// re-ingesting identical content yields the same ID.
type FingerprintIDProvider struct{}

func (FingerprintIDProvider) NewID(hash string) string {
	if hash == "" {
		return uuid.NewString()
	}
	return ShortID(hash)
}

// ShortID returns the first 16 characters of a hex digest.
func ShortID(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16]
}

// SequenceIDProvider issues "file-1", "file-2", ... for deterministic tests.
type SequenceIDProvider struct {
	n atomic.Int64
}

func (p *SequenceIDProvider) NewID(string) string {
	return fmt.Sprintf("file-%d", p.n.Add(1))
}
