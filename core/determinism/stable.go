// Package determinism provides primitives for deterministic hashing and ordering.
// Price table snapshots and exports use these instead of ranging over Go maps.
package determinism

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// ContentHash is a SHA-256 hash for content integrity
type ContentHash [32]byte

// ComputeHash computes a content hash from bytes
func ComputeHash(data []byte) ContentHash {
	return sha256.Sum256(data)
}

// Hex returns the hash as a hex string
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 16 hex characters, used as a snapshot ID
func (h ContentHash) Short() string {
	return h.Hex()[:16]
}

// String implements Stringer
func (h ContentHash) String() string {
	return h.Short() + "..."
}

// IsZero reports whether the hash was never computed
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

// SortedKeys returns map keys ordered by their printed form
func SortedKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	return keys
}

// SortSlice sorts a slice in a stable, deterministic manner
func SortSlice[T any](slice []T, less func(a, b T) bool) {
	sort.SliceStable(slice, func(i, j int) bool {
		return less(slice[i], slice[j])
	})
}
