package model

import "fmt"

// Op records the lifecycle operation a PE revision represents, carried
// alongside Deleted so sync consumers can distinguish a delete from an
// ordinary update without diffing attribute sets.
type Op int

const (
	OpNone Op = iota
	OpCreate
	OpUpdate
	OpDelete
	OpMove
)

// PE is one revision of a plant element: the hierarchy/versioning envelope
// (Refno, Owner, Noun, Dbnum, Sesno, lock/delete/status flags) plus its
// attribute bag. PE is the unit every backend adapter reads and writes.
type PE struct {
	Refno      Refno
	Owner      Refno
	Name       string
	Noun       string
	Dbnum      int32
	Sesno      int32
	StatusCode string
	CataHash   string
	Lock       bool
	Deleted    bool
	Op         Op
	// Typex is the extended type id, populated by ExtractTypex from the
	// attribute map's UDTYPE or TYPEX attribute. Nil means neither was set.
	Typex *int32

	Attrs *NamedAttrMap
}

// NewPE constructs an empty PE for the given noun, with a freshly
// initialized attribute map carrying just the TYPE attribute.
func NewPE(refno Refno, noun string) *PE {
	return &PE{
		Refno: refno,
		Noun:  noun,
		Attrs: NewNamedAttrMap(noun),
	}
}

// HistoryKey returns the store key for this specific (refno, sesno)
// revision: "pe:<refno>_<sesno>".
func (p *PE) HistoryKey() string {
	return fmt.Sprintf("pe:%d_%d", uint64(p.Refno), p.Sesno)
}

// LatestKey returns the store key for the always-current revision:
// "pe:<refno>", independent of sesno.
func (p *PE) LatestKey() string {
	return p.Refno.ToTableKey("pe")
}

// TypeStr returns the noun (element type name).
func (p *PE) TypeStr() string { return p.Noun }

// ExtractTypex fills p.Typex from the attribute map, preferring UDTYPE
// over TYPEX over leaving it unset. Call this after populating Attrs from
// raw catalog-typed attribute data.
func (p *PE) ExtractTypex() {
	if p.Attrs == nil {
		p.Typex = nil
		return
	}
	if v, ok := p.Attrs.Get("UDTYPE"); ok {
		if i, ok := v.AsI32(); ok {
			p.Typex = &i
			return
		}
	}
	if v, ok := p.Attrs.Get("TYPEX"); ok {
		if i, ok := v.AsI32(); ok {
			p.Typex = &i
			return
		}
	}
	p.Typex = nil
}

// NounHash returns the db1-style hash of the uppercased noun, used as the
// catalog lookup key and as the mirror's per-noun table discriminator.
func (p *PE) NounHash() uint32 {
	return NounHash(p.Noun)
}
