// Package hashutil provides the content-hashing and stack-safe numeric
// primitives shared by the provenance and search layers.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
)

// Prefix is the literal prefix every content hash in the system carries.
const Prefix = "sha256:"

// streamChunkSize bounds memory use when hashing files (spec: 64KiB chunks).
const streamChunkSize = 64 * 1024

// hashFormat matches "sha256:" followed by exactly 64 lowercase hex characters.
var hashFormat = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// ContentHash returns the prefixed SHA-256 digest of b.
func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return Prefix + hex.EncodeToString(sum[:])
}

// ContentHashString returns the prefixed SHA-256 digest of s.
func ContentHashString(s string) string {
	return ContentHash([]byte(s))
}

// FileHash streams path in fixed-size chunks and returns its prefixed
// SHA-256 digest without loading the whole file into memory.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashutil: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, streamChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashutil: read %s: %w", path, err)
	}

	return Prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// ValidFormat reports whether s is a well-formed content hash:
// the literal prefix "sha256:" followed by 64 lowercase hex characters.
func ValidFormat(s string) bool {
	return hashFormat.MatchString(s)
}

// ChainHash derives a provenance chain hash from a record's own content
// hash and its parent's chain hash (empty string for root records), per
// chain_hash = SHA-256(content_hash || "|" || parent_chain_hash).
func ChainHash(contentHash, parentChainHash string) string {
	return ContentHashString(contentHash + "|" + parentChainHash)
}
