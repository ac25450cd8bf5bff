// Package model defines the immutable, wire-stable records produced by the
// parsing and linking stages: Element trees, FileRecords, Projects, alias
// entries, call graphs, endpoints, call sites and full-stack traces.
package model

import (
	"fmt"

	"github.com/minio/highwayhash"
)

// stableIDKey is a fixed 32-byte key for the HighwayHash digest used to
// derive stable, cross-run element identities. It is not a secret; it only
// needs to be constant so identical content hashes identically every run.
var stableIDKey = []byte("tracecore-stable-id-key-32bytes!")

// Location pins a range of source text. Lines are 1-based and inclusive;
// bytes are 0-based, half-open [StartByte, EndByte).
type Location struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
	StartByte int `json:"-"`
	EndByte   int `json:"-"`
}

// Valid reports whether the location forms a well-formed, non-inverted range.
func (l Location) Valid() bool {
	return l.StartLine > 0 && l.StartLine <= l.EndLine
}

// StableID derives a content-addressed identity from the tuple the design
// notes recommend: relative path, qualified name, kind, and normalized
// content. It is stable across re-parses of byte-identical content and
// independent of in-memory pointer identity.
func StableID(relativePath, qualifiedName string, kind ElementKind, normalizedContent string) string {
	h, err := highwayhash.New64(stableIDKey)
	if err != nil {
		// stableIDKey is a fixed, valid 32-byte key; New64 cannot fail for it.
		panic(fmt.Sprintf("model: invalid stable id key: %v", err))
	}
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", relativePath, qualifiedName, kind, normalizedContent)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Checksum derives a whole-file content fingerprint using the same
// HighwayHash family as StableID, at its native 256-bit width (New,
// unlike StableID's truncated New64, since Checksum has a full 32-byte
// field to fill).
func Checksum(content []byte) [32]byte {
	h, err := highwayhash.New(stableIDKey)
	if err != nil {
		// stableIDKey is a fixed, valid 32-byte key; New cannot fail for it.
		panic(fmt.Sprintf("model: invalid checksum key: %v", err))
	}
	h.Write(content)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
