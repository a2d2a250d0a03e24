package model

import (
	"hash/fnv"
	"strings"
)

// NounHash returns the deterministic 32-bit hash of a noun name, used as
// the catalog lookup key and the mirror's per-noun table discriminator.
// Hashing is case-insensitive: noun names are uppercased first, mirroring
// the source element graph's convention that noun identity ignores case.
//
// This is a stable string-hash, not a cryptographic one — callers needing
// a dehash (hash -> name) must keep the forward mapping in a lookup table
// built at catalog load time (see pkg/catalog), since fnv32a is one-way.
func NounHash(noun string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToUpper(noun)))
	return h.Sum32()
}
