// Package catalog loads and serves the per-noun attribute-info catalog:
// the two-level noun -> attribute -> metadata mapping that every backend
// adapter and query service consults for defaults, declared types, and
// analytical-mirror schema generation.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pdmscore/graphcore/pkg/model"
)

// AttrInfo is one attribute's catalog entry: its name, stable hash,
// storage offset (0 means "explicit/always-present", matching the source
// element graph's convention used by FillExplicitDefaultValues), declared
// type, and default value.
type AttrInfo struct {
	Name       string              `json:"name"`
	Hash       int32               `json:"hash"`
	Offset     int32               `json:"offset"`
	DefaultVal json.RawMessage     `json:"default_val"`
	AttType    model.DeclaredType  `json:"att_type"`
}

// rawCatalog mirrors the bit-exact JSON shape of §6.2: both maps are
// optional, and when both are present they describe the same data keyed
// two different ways (by noun name, and by noun hash).
type rawCatalog struct {
	NamedAttrInfoMap map[string]map[string]AttrInfo `json:"named_attr_info_map"`
	NounAttrInfoMap  map[string]map[string]AttrInfo `json:"noun_attr_info_map"`
}

// Catalog is the compiled, read-only attribute catalog. It is safe for
// concurrent reads from multiple goroutines; there is no mutation API —
// callers needing a different catalog (e.g. in tests) construct a second
// instance via Load rather than mutating a shared one, per the
// global-catalog-state guidance of keeping the catalog process-wide and
// read-mostly.
type Catalog struct {
	byNoun map[string]map[string]AttrInfo // noun -> attr name -> info
	hashToNoun map[uint32]string
}

// Load reads the attribute-info JSON at path and compiles it into a
// Catalog. A missing noun in the source JSON is not an error — lookups
// for a noun absent from the catalog return an empty per-noun map, since
// the catalog itself is permissive and never fails after a successful
// Load.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes compiles a Catalog from raw JSON bytes, the same format Load
// reads from disk.
func LoadBytes(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	byNoun := raw.NamedAttrInfoMap
	if byNoun == nil {
		byNoun = make(map[string]map[string]AttrInfo)
	}

	// Merge in noun_attr_info_map, which is keyed by noun hash rather
	// than noun name; we can only merge entries whose attributes carry
	// a recognizable noun via their own fields, so we trust
	// named_attr_info_map as authoritative when both are present and use
	// noun_attr_info_map only to fill nouns missing from the name-keyed
	// map (matched by scanning hashes against model.NounHash of every
	// known noun name is not possible without the name, so unmatched
	// hash-only entries are kept under their literal hash-string key).
	for hashKey, attrs := range raw.NounAttrInfoMap {
		if _, ok := findNounByHashKey(byNoun, hashKey); ok {
			continue
		}
		if _, exists := byNoun[hashKey]; !exists {
			byNoun[hashKey] = attrs
		}
	}

	c := &Catalog{
		byNoun:     byNoun,
		hashToNoun: make(map[uint32]string, len(byNoun)),
	}
	for noun := range byNoun {
		c.hashToNoun[model.NounHash(noun)] = noun
	}
	return c, nil
}

func findNounByHashKey(byNoun map[string]map[string]AttrInfo, hashKey string) (string, bool) {
	for noun := range byNoun {
		if fmt.Sprintf("%d", model.NounHash(noun)) == hashKey {
			return noun, true
		}
	}
	return "", false
}

// Nouns returns every noun name in the catalog, sorted.
func (c *Catalog) Nouns() []string {
	out := make([]string, 0, len(c.byNoun))
	for n := range c.byNoun {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Attrs returns the attribute-info map for noun, or an empty map if the
// noun is not in the catalog — the catalog never errors on an unknown
// noun, by design.
func (c *Catalog) Attrs(noun string) map[string]AttrInfo {
	if m, ok := c.byNoun[strings.ToUpper(noun)]; ok {
		return m
	}
	if m, ok := c.byNoun[noun]; ok {
		return m
	}
	return map[string]AttrInfo{}
}

// AttrInfo returns one attribute's metadata for a noun.
func (c *Catalog) AttrInfo(noun, attr string) (AttrInfo, bool) {
	info, ok := c.Attrs(noun)[attr]
	return info, ok
}

// NounByHash resolves a noun hash back to its name (the "dehash" half of
// the hash<->name table); returns "" if unknown.
func (c *Catalog) NounByHash(hash uint32) string {
	return c.hashToNoun[hash]
}

// ExplicitDefaults returns name -> default AttrValue for every
// offset == 0 ("explicit") attribute of noun, decoded via the catalog's
// declared att_type. Used by NamedAttrMap.FillExplicitDefaultValues.
func (c *Catalog) ExplicitDefaults(noun string) map[string]model.AttrValue {
	out := make(map[string]model.AttrValue)
	for name, info := range c.Attrs(noun) {
		if info.Offset != 0 {
			continue
		}
		out[name] = decodeDefault(info)
	}
	return out
}

func decodeDefault(info AttrInfo) model.AttrValue {
	if len(info.DefaultVal) == 0 {
		return model.Invalid()
	}
	var raw any
	if err := json.Unmarshal(info.DefaultVal, &raw); err != nil {
		return model.Invalid()
	}
	return model.FromDeclared(raw, info.AttType)
}

// CataHash returns the opaque catalog-variant digest for noun, computed
// over its currently-loaded attribute set.
func (c *Catalog) CataHash(noun string) string {
	return CataHash(noun, c.Attrs(noun))
}

// Coerce decodes a raw value against noun/attr's catalog-declared type,
// the single conversion funnel used at ingestion (no ad-hoc per-site
// coercion). Attributes absent from the catalog decode using the fallback
// type supplied by the caller (typically model.DeclString).
func (c *Catalog) Coerce(noun, attr string, raw any, fallback model.DeclaredType) model.AttrValue {
	if info, ok := c.AttrInfo(noun, attr); ok {
		return model.FromDeclared(raw, info.AttType)
	}
	return model.FromDeclared(raw, fallback)
}
