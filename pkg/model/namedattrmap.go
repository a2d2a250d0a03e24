package model

import (
	"math"
	"sort"
	"strings"
)

// NamedAttrMap is an ordered name -> AttrValue map for one PE's attribute
// set. Keys are catalog attribute names (e.g. "POS", "DESC"), plus the
// reserved keys "TYPE" (set by NewNamedAttrMap) and "REFNO" (present only
// when a caller sets it).
//
// Iteration order follows insertion order via the keys slice; this matters
// for the UI projection layer, which renders attributes in catalog-declared
// order rather than alphabetically.
type NamedAttrMap struct {
	keys   []string
	values map[string]AttrValue
}

// NewNamedAttrMap returns an empty map tagged with the given noun's TYPE
// attribute.
func NewNamedAttrMap(noun string) *NamedAttrMap {
	m := &NamedAttrMap{values: make(map[string]AttrValue)}
	m.Set("TYPE", StringVal(noun))
	return m
}

// Set inserts or overwrites an attribute, preserving first-insertion order.
func (m *NamedAttrMap) Set(name string, v AttrValue) {
	if m.values == nil {
		m.values = make(map[string]AttrValue)
	}
	if _, exists := m.values[name]; !exists {
		m.keys = append(m.keys, name)
	}
	m.values[name] = v
}

// Get returns the attribute value and whether it is present.
func (m *NamedAttrMap) Get(name string) (AttrValue, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Has reports whether name is present in the map.
func (m *NamedAttrMap) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Delete removes an attribute, if present.
func (m *NamedAttrMap) Delete(name string) {
	if _, ok := m.values[name]; !ok {
		return
	}
	delete(m.values, name)
	for i, k := range m.keys {
		if k == name {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns attribute names in insertion order.
func (m *NamedAttrMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of attributes.
func (m *NamedAttrMap) Len() int { return len(m.keys) }

// TypeStr returns the TYPE (noun) attribute, or "" if absent.
func (m *NamedAttrMap) TypeStr() string {
	if v, ok := m.Get("TYPE"); ok {
		if s, ok := v.AsStr(); ok {
			return s
		}
	}
	return ""
}

// Refno returns the REFNO attribute, or Unset if absent/unparseable.
func (m *NamedAttrMap) Refno() Refno {
	if v, ok := m.Get("REFNO"); ok {
		if r, ok := v.AsRefno(); ok {
			return r
		}
	}
	return Unset
}

// Owner returns the OWNER attribute, or Unset if absent/unparseable.
func (m *NamedAttrMap) Owner() Refno {
	if v, ok := m.Get("OWNER"); ok {
		if r, ok := v.AsRefno(); ok {
			return r
		}
	}
	return Unset
}

// GetStr returns a string attribute, or "" if absent or not string-typed.
func (m *NamedAttrMap) GetStr(name string) string {
	if v, ok := m.Get(name); ok {
		if s, ok := v.AsStr(); ok {
			return s
		}
	}
	return ""
}

// GetF32 returns a float attribute, or 0 if absent or not numeric.
func (m *NamedAttrMap) GetF32(name string) float32 {
	if v, ok := m.Get(name); ok {
		if f, ok := v.AsF32(); ok {
			return f
		}
	}
	return 0
}

// GetVec3 returns a Vec3-valued attribute.
func (m *NamedAttrMap) GetVec3(name string) (Vec3, bool) {
	if v, ok := m.Get(name); ok {
		return v.AsVec3()
	}
	return Vec3{}, false
}

// UDAKeys returns the names of every user-defined attribute: any key
// prefixed "UDA:" (§3.5's catalog-overflow convention for attributes not
// present in the compiled catalog).
func (m *NamedAttrMap) UDAKeys() []string {
	var out []string
	for _, k := range m.keys {
		if strings.HasPrefix(k, "UDA:") {
			out = append(out, k)
		}
	}
	return out
}

// SetUDA stores a user-defined attribute under its "UDA:" prefixed key.
func (m *NamedAttrMap) SetUDA(name string, v AttrValue) {
	if !strings.HasPrefix(name, "UDA:") {
		name = "UDA:" + name
	}
	m.Set(name, v)
}

// GetMatrix derives a position+orientation transform from the POS (3-vector
// position) and ORI (3-vector of X/Y/Z rotation angles in degrees)
// attributes, applied Z*Y*X like the source element graph's orientation
// convention. Returns false if either attribute is absent.
func (m *NamedAttrMap) GetMatrix() (pos Vec3, rotZYX Vec3, ok bool) {
	p, okP := m.GetVec3("POS")
	o, okO := m.GetVec3("ORI")
	if !okP || !okO {
		return Vec3{}, Vec3{}, false
	}
	return p, o, true
}

// degToRad is used by callers composing a rotation matrix from GetMatrix's
// ORI output; kept here since Vec3 angle units are always degrees on read.
func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

// FillExplicitDefaultValues inserts the catalog's declared default value for
// every attribute the noun defines but this map omits, plus a blank "TYPEX"
// if absent. attrDefaults maps attribute name -> default AttrValue for this
// map's noun, typically sourced from pkg/catalog.
func (m *NamedAttrMap) FillExplicitDefaultValues(attrDefaults map[string]AttrValue) {
	names := make([]string, 0, len(attrDefaults))
	for name := range attrDefaults {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !m.Has(name) {
			m.Set(name, attrDefaults[name])
		}
	}
	if !m.Has("TYPEX") {
		m.Set("TYPEX", StringVal(""))
	}
}

// Clone returns a deep-enough copy (attribute values are immutable value
// types, so only the key order and map need duplicating).
func (m *NamedAttrMap) Clone() *NamedAttrMap {
	out := &NamedAttrMap{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]AttrValue, len(m.values)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}
