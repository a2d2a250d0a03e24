// Package model holds the plant-element data types shared by every backend
// adapter and query service: reference identity, the typed attribute value
// sum type, the PE record, and the NamedAttrMap.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Refno is a 64-bit composite identifier packing a 32-bit database number
// in the high word and a 32-bit element number in the low word.
//
// A zero element number denotes "unset" — Valid reports false for it.
// Refno carries no type information; the owning PE's Noun field does that.
type Refno uint64

// Unset is the zero refno: db=0, elno=0.
const Unset Refno = 0

// NewRefno packs a database number and element number into a Refno.
func NewRefno(dbnum, elno uint32) Refno {
	return Refno(uint64(dbnum)<<32 | uint64(elno))
}

// Dbnum returns the database-number (high 32 bits).
func (r Refno) Dbnum() uint32 {
	return uint32(uint64(r) >> 32)
}

// Elno returns the element-number (low 32 bits).
func (r Refno) Elno() uint32 {
	return uint32(uint64(r))
}

// Valid reports whether the element number is non-zero.
func (r Refno) Valid() bool {
	return r.Elno() != 0
}

// String formats the refno in the human-readable "<db>/<elno>" form.
func (r Refno) String() string {
	return fmt.Sprintf("%d/%d", r.Dbnum(), r.Elno())
}

// FileSafe formats the refno in the file-safe "<db>_<elno>" form.
func (r Refno) FileSafe() string {
	return fmt.Sprintf("%d_%d", r.Dbnum(), r.Elno())
}

// Opaque formats the refno as its raw decimal u64 value.
func (r Refno) Opaque() string {
	return strconv.FormatUint(uint64(r), 10)
}

// ToTableKey formats the refno as a store key for the given table name,
// e.g. ToTableKey("pe") -> "pe:<u64>".
func (r Refno) ToTableKey(table string) string {
	return fmt.Sprintf("%s:%d", table, uint64(r))
}

// ParseError reports a refno that could not be parsed from text.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("refno: cannot parse %q", e.Input)
}

// ParseRefno parses any of the three canonical textual forms:
// "<db>/<elno>", "<db>_<elno>", or a plain decimal u64.
func ParseRefno(s string) (Refno, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unset, &ParseError{Input: s}
	}

	if sep := strings.IndexAny(s, "/_"); sep >= 0 {
		dbPart, elPart := s[:sep], s[sep+1:]
		db, err1 := strconv.ParseUint(dbPart, 10, 32)
		el, err2 := strconv.ParseUint(elPart, 10, 32)
		if err1 != nil || err2 != nil {
			return Unset, &ParseError{Input: s}
		}
		return NewRefno(uint32(db), uint32(el)), nil
	}

	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Unset, &ParseError{Input: s}
	}
	return Refno(u), nil
}

// NounRef wraps a refno with an advisory textual type tag so writers can
// emit typed table keys (e.g. mirror relation edges that need the target
// noun to pick a table). Two NounRefs compare equal iff their refnos are
// equal; the tag never participates in equality.
type NounRef struct {
	Refno Refno
	Noun  string
}

// Equal compares two noun-tagged references by refno only.
func (n NounRef) Equal(other NounRef) bool {
	return n.Refno == other.Refno
}

// RefList is a reference-id-valued attribute list that dedups on push, the
// same "append is a no-op if already present" behavior as a reference-list
// slot in the source element graph.
type RefList []Refno

// Push appends r unless it is already present.
func (l *RefList) Push(r Refno) {
	for _, existing := range *l {
		if existing == r {
			return
		}
	}
	*l = append(*l, r)
}

// Contains reports whether r is present in the list.
func (l RefList) Contains(r Refno) bool {
	for _, existing := range l {
		if existing == r {
			return true
		}
	}
	return false
}
