package model

import "fmt"

// Kind identifies which variant of AttrValue is inhabited.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindLong
	KindFloat
	KindString
	KindWord
	KindElement
	KindBool
	KindVec3
	KindFloatVec
	KindIntVec
	KindStringVec
	KindBoolVec
	KindRefno
	KindRefnoVec
	KindNounRef
)

// DeclaredType is the catalog's att_type tag (§6.2), distinct from Kind:
// DeclaredType governs coercion at ingestion, Kind is the value's actual
// representation at rest.
type DeclaredType string

const (
	DeclInteger     DeclaredType = "INTEGER"
	DeclDouble      DeclaredType = "DOUBLE"
	DeclBool        DeclaredType = "BOOL"
	DeclString      DeclaredType = "STRING"
	DeclWord        DeclaredType = "WORD"
	DeclElement     DeclaredType = "ELEMENT"
	DeclPosition    DeclaredType = "POSITION"
	DeclOrientation DeclaredType = "ORIENTATION"
	DeclDirection   DeclaredType = "DIRECTION"
	DeclDoubleVec   DeclaredType = "DOUBLEVEC"
	DeclIntVec      DeclaredType = "INTVEC"
	DeclFloatVec    DeclaredType = "FLOATVEC"
	DeclVec3        DeclaredType = "Vec3Type"
	DeclRefU64Vec   DeclaredType = "RefU64Vec"
)

// Vec3 is a 3-component float vector, used for positions, orientations and
// directions.
type Vec3 [3]float64

// AttrValue is a closed sum type over every representable attribute value.
// Exactly one field is meaningful per value, selected by Kind; the zero
// value is KindInvalid.
type AttrValue struct {
	kind Kind

	i    int32
	l    int64
	f    float32
	s    string
	b    bool
	v3   Vec3
	fv   []float32
	iv   []int32
	sv   []string
	bv   []bool
	ref  Refno
	refv []Refno
	nref NounRef
}

// Kind returns the variant this value holds.
func (a AttrValue) Kind() Kind { return a.kind }

// Invalid returns the Invalid-variant AttrValue.
func Invalid() AttrValue { return AttrValue{kind: KindInvalid} }

func IntVal(v int32) AttrValue       { return AttrValue{kind: KindInt, i: v} }
func LongVal(v int64) AttrValue      { return AttrValue{kind: KindLong, l: v} }
func FloatVal(v float32) AttrValue   { return AttrValue{kind: KindFloat, f: v} }
func StringVal(v string) AttrValue   { return AttrValue{kind: KindString, s: v} }
func WordVal(v string) AttrValue     { return AttrValue{kind: KindWord, s: v} }
func ElementVal(v string) AttrValue  { return AttrValue{kind: KindElement, s: v} }
func BoolVal(v bool) AttrValue       { return AttrValue{kind: KindBool, b: v} }
func Vec3Val(v Vec3) AttrValue       { return AttrValue{kind: KindVec3, v3: v} }
func FloatVecVal(v []float32) AttrValue  { return AttrValue{kind: KindFloatVec, fv: v} }
func IntVecVal(v []int32) AttrValue      { return AttrValue{kind: KindIntVec, iv: v} }
func StringVecVal(v []string) AttrValue  { return AttrValue{kind: KindStringVec, sv: v} }
func BoolVecVal(v []bool) AttrValue      { return AttrValue{kind: KindBoolVec, bv: v} }
func RefnoVal(v Refno) AttrValue         { return AttrValue{kind: KindRefno, ref: v} }
func RefnoVecVal(v []Refno) AttrValue    { return AttrValue{kind: KindRefnoVec, refv: v} }
func NounRefVal(v NounRef) AttrValue     { return AttrValue{kind: KindNounRef, nref: v} }

// AsI32 coerces to int32. Accepts KindInt and KindLong (when in range).
func (a AttrValue) AsI32() (int32, bool) {
	switch a.kind {
	case KindInt:
		return a.i, true
	case KindLong:
		return int32(a.l), true
	}
	return 0, false
}

// AsF32 coerces to float32. Accepts KindFloat, KindInt, and KindLong.
func (a AttrValue) AsF32() (float32, bool) {
	switch a.kind {
	case KindFloat:
		return a.f, true
	case KindInt:
		return float32(a.i), true
	case KindLong:
		return float32(a.l), true
	}
	return 0, false
}

// AsBool coerces to bool. Accepts only KindBool.
func (a AttrValue) AsBool() (bool, bool) {
	if a.kind == KindBool {
		return a.b, true
	}
	return false, false
}

// AsStr coerces to string. Accepts KindString, KindWord, and KindElement
// (element-valued attributes are interchangeable with strings for reading,
// per §3.3(b)).
func (a AttrValue) AsStr() (string, bool) {
	switch a.kind {
	case KindString, KindWord, KindElement:
		return a.s, true
	}
	return "", false
}

// AsVec3 coerces to a Vec3. Accepts KindVec3 directly, and KindFloatVec of
// length 3 per §3.3(a) (Position/Orientation/Direction accept either
// representation).
func (a AttrValue) AsVec3() (Vec3, bool) {
	switch a.kind {
	case KindVec3:
		return a.v3, true
	case KindFloatVec:
		if len(a.fv) == 3 {
			return Vec3{float64(a.fv[0]), float64(a.fv[1]), float64(a.fv[2])}, true
		}
	}
	return Vec3{}, false
}

// AsRefno coerces to a Refno. Accepts KindRefno, KindElement (parsed),
// and KindNounRef, per §3.3(b) — element/reference-id/noun-tagged
// reference are interchangeable for reading.
func (a AttrValue) AsRefno() (Refno, bool) {
	switch a.kind {
	case KindRefno:
		return a.ref, true
	case KindNounRef:
		return a.nref.Refno, true
	case KindElement:
		if r, err := ParseRefno(a.s); err == nil {
			return r, true
		}
	}
	return Unset, false
}

// AsRefnoList coerces to a []Refno. Accepts KindRefnoVec only.
func (a AttrValue) AsRefnoList() ([]Refno, bool) {
	if a.kind == KindRefnoVec {
		return a.refv, true
	}
	return nil, false
}

// AsFloatList coerces to []float32.
func (a AttrValue) AsFloatList() ([]float32, bool) {
	if a.kind == KindFloatVec {
		return a.fv, true
	}
	return nil, false
}

// AsIntList coerces to []int32.
func (a AttrValue) AsIntList() ([]int32, bool) {
	if a.kind == KindIntVec {
		return a.iv, true
	}
	return nil, false
}

// AsStringList coerces to []string.
func (a AttrValue) AsStringList() ([]string, bool) {
	if a.kind == KindStringVec {
		return a.sv, true
	}
	return nil, false
}

// AsBoolList coerces to []bool.
func (a AttrValue) AsBoolList() ([]bool, bool) {
	if a.kind == KindBoolVec {
		return a.bv, true
	}
	return nil, false
}

// FromDeclared is the single coercion funnel: (raw value, declared type)
// -> AttrValue. A declared type from the catalog takes precedence over
// whatever Go type raw happens to be (§3.3(c)); conversion failures return
// Invalid rather than panicking (§4.3).
func FromDeclared(raw any, declared DeclaredType) AttrValue {
	switch declared {
	case DeclInteger:
		if i, ok := toInt32(raw); ok {
			return IntVal(i)
		}
	case DeclDouble:
		if f, ok := toFloat32(raw); ok {
			return FloatVal(f)
		}
	case DeclBool:
		if b, ok := raw.(bool); ok {
			return BoolVal(b)
		}
	case DeclString:
		if s, ok := raw.(string); ok {
			return StringVal(s)
		}
	case DeclWord:
		if s, ok := raw.(string); ok {
			return WordVal(s)
		}
	case DeclElement:
		if s, ok := raw.(string); ok {
			return ElementVal(s)
		}
	case DeclPosition, DeclOrientation, DeclDirection, DeclVec3:
		if v3, ok := toVec3(raw); ok {
			return Vec3Val(v3)
		}
	case DeclDoubleVec, DeclFloatVec:
		if fv, ok := toFloat32Slice(raw); ok {
			return FloatVecVal(fv)
		}
	case DeclIntVec:
		if iv, ok := toInt32Slice(raw); ok {
			return IntVecVal(iv)
		}
	case DeclRefU64Vec:
		if rv, ok := toRefnoSlice(raw); ok {
			return RefnoVecVal(rv)
		}
	}
	return Invalid()
}

func toInt32(raw any) (int32, bool) {
	switch v := raw.(type) {
	case int32:
		return v, true
	case int:
		return int32(v), true
	case int64:
		return int32(v), true
	case float64:
		return int32(v), true
	}
	return 0, false
}

func toFloat32(raw any) (float32, bool) {
	switch v := raw.(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int:
		return float32(v), true
	case int32:
		return float32(v), true
	case int64:
		return float32(v), true
	}
	return 0, false
}

func toVec3(raw any) (Vec3, bool) {
	switch v := raw.(type) {
	case Vec3:
		return v, true
	case [3]float64:
		return Vec3(v), true
	case []float64:
		if len(v) == 3 {
			return Vec3{v[0], v[1], v[2]}, true
		}
	case []any:
		if len(v) == 3 {
			var out Vec3
			for i, e := range v {
				f, ok := toFloat32(e)
				if !ok {
					return Vec3{}, false
				}
				out[i] = float64(f)
			}
			return out, true
		}
	}
	return Vec3{}, false
}

func toFloat32Slice(raw any) ([]float32, bool) {
	switch v := raw.(type) {
	case []float32:
		return v, true
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, 0, len(v))
		for _, e := range v {
			f, ok := toFloat32(e)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}

func toInt32Slice(raw any) ([]int32, bool) {
	switch v := raw.(type) {
	case []int32:
		return v, true
	case []any:
		out := make([]int32, 0, len(v))
		for _, e := range v {
			i, ok := toInt32(e)
			if !ok {
				return nil, false
			}
			out = append(out, i)
		}
		return out, true
	}
	return nil, false
}

func toRefnoSlice(raw any) ([]Refno, bool) {
	switch v := raw.(type) {
	case []Refno:
		return v, true
	case []string:
		out := make([]Refno, 0, len(v))
		for _, s := range v {
			r, err := ParseRefno(s)
			if err != nil {
				return nil, false
			}
			out = append(out, r)
		}
		return out, true
	case []any:
		out := make([]Refno, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			r, err := ParseRefno(s)
			if err != nil {
				return nil, false
			}
			out = append(out, r)
		}
		return out, true
	}
	return nil, false
}

// String renders the value for logging/diagnostics; it is not the ":unset"
// UI projection form (that lives in pkg/query).
func (a AttrValue) String() string {
	switch a.kind {
	case KindInvalid:
		return "<invalid>"
	case KindInt:
		return fmt.Sprintf("%d", a.i)
	case KindLong:
		return fmt.Sprintf("%d", a.l)
	case KindFloat:
		return fmt.Sprintf("%g", a.f)
	case KindString, KindWord, KindElement:
		return a.s
	case KindBool:
		return fmt.Sprintf("%t", a.b)
	case KindVec3:
		return fmt.Sprintf("%g %g %g", a.v3[0], a.v3[1], a.v3[2])
	case KindRefno:
		return a.ref.String()
	case KindNounRef:
		return a.nref.Refno.String()
	default:
		return fmt.Sprintf("<%v>", a.kind)
	}
}
