package catalog

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/pdmscore/graphcore/pkg/model"
)

// CataHash digests a stable string representation of noun into an opaque
// catalog-variant identifier, the same string-then-hash pattern the
// source element graph uses for its geometry hashes, applied here to
// catalog content instead: a PE's cata_hash identifies which catalog
// revision produced it, so the digest must change whenever the noun's
// attribute set (names, declared types, offsets) changes.
func CataHash(noun string, attrs map[string]AttrInfo) string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	s := noun
	for _, name := range names {
		info := attrs[name]
		s += fmt.Sprintf("_%s:%d:%s", name, info.Offset, info.AttType)
	}

	sum := blake2b.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum[:16])
}

// NounHashString is the string form of model.NounHash(noun), used where
// the hash is serialized as catalog-style text (e.g. as a
// noun_attr_info_map key).
func NounHashString(noun string) string {
	return fmt.Sprintf("%d", model.NounHash(noun))
}
