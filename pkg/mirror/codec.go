package mirror

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdmscore/graphcore/pkg/catalog"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

// udaKindPrefix tags a non-catalog (UDA) attribute property with its
// AttrValue Kind, since the mirror's typed columns only know how to
// decode attributes the catalog describes; UDA columns fall back to the
// same kind-tag trick pkg/docstore uses.
const udaKindPrefix = "__uda_kind__:"

// peEnvelopeToNode encodes the fixed core-PE-table columns (§6.3),
// independent of noun-specific attributes.
func peEnvelopeToNode(pe *model.PE) *storage.Node {
	props := map[string]any{
		"refno":     int64(uint64(pe.Refno)),
		"name":      pe.Name,
		"noun":      pe.Noun,
		"dbnum":     pe.Dbnum,
		"sesno":     pe.Sesno,
		"cata_hash": pe.CataHash,
		"deleted":   pe.Deleted,
		"lock":      pe.Lock,
	}
	if pe.Typex != nil {
		props["typex"] = *pe.Typex
	}
	return &storage.Node{
		ID:         peNodeID(pe.Refno),
		Labels:     []string{"PE", pe.Noun},
		Properties: props,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func peNodeToEnvelope(node *storage.Node) (*model.PE, error) {
	refno, ok := refnoFromPENodeID(node.ID)
	if !ok {
		return nil, fmt.Errorf("mirror: malformed PE node id %q", node.ID)
	}
	pe := model.NewPE(refno, stringProp(node.Properties, "noun"))
	pe.Name = stringProp(node.Properties, "name")
	pe.Dbnum = int32(intProp(node.Properties, "dbnum"))
	pe.Sesno = int32(intProp(node.Properties, "sesno"))
	pe.CataHash = stringProp(node.Properties, "cata_hash")
	pe.Deleted = boolProp(node.Properties, "deleted")
	pe.Lock = boolProp(node.Properties, "lock")
	if v, ok := node.Properties["typex"]; ok {
		i := int32(intPropRaw(v))
		pe.Typex = &i
	}
	return pe, nil
}

// attrMapToProperties encodes attrs into the Attr_<NOUN> node's typed
// property set, using cat's declared types to pick the mirror column
// type (§6.3's att_type table) for catalog-known attributes, and a
// kind-tagged fallback for UDA/unknown attributes.
func attrMapToProperties(cat *catalog.Catalog, noun string, attrs *model.NamedAttrMap) map[string]any {
	props := map[string]any{}
	for _, name := range attrs.Keys() {
		if name == "TYPE" || name == "REFNO" {
			continue
		}
		v, _ := attrs.Get(name)
		if info, ok := cat.AttrInfo(noun, name); ok {
			encodeTypedAttr(props, name, v, info.AttType)
			continue
		}
		encodeUDAAttr(props, name, v)
	}
	return props
}

func encodeTypedAttr(props map[string]any, name string, v model.AttrValue, declared model.DeclaredType) {
	switch declared {
	case model.DeclInteger:
		i, _ := v.AsI32()
		props[name] = i
	case model.DeclDouble:
		f, _ := v.AsF32()
		props[name] = float64(f)
	case model.DeclBool:
		b, _ := v.AsBool()
		props[name] = b
	case model.DeclString, model.DeclWord:
		s, _ := v.AsStr()
		props[name] = s
	case model.DeclElement:
		if r, ok := v.AsRefno(); ok {
			props[name] = int64(uint64(r))
		} else {
			props[name] = int64(0)
		}
	case model.DeclPosition, model.DeclOrientation, model.DeclDirection, model.DeclVec3:
		if vec, ok := v.AsVec3(); ok {
			props[name] = []float64{vec[0], vec[1], vec[2]}
		}
	case model.DeclDoubleVec, model.DeclFloatVec:
		fv, _ := v.AsFloatList()
		out := make([]float64, len(fv))
		for i, f := range fv {
			out[i] = float64(f)
		}
		props[name] = out
	case model.DeclIntVec:
		iv, _ := v.AsIntList()
		props[name] = iv
	case model.DeclRefU64Vec:
		rv, _ := v.AsRefnoList()
		out := make([]int64, len(rv))
		for i, r := range rv {
			out[i] = int64(uint64(r))
		}
		props[name] = out
	default:
		encodeUDAAttr(props, name, v)
	}
}

func encodeUDAAttr(props map[string]any, name string, v model.AttrValue) {
	props[udaKindPrefix+name] = int(v.Kind())
	switch v.Kind() {
	case model.KindInt:
		i, _ := v.AsI32()
		props[name] = i
	case model.KindLong:
		props[name] = v.String()
	case model.KindFloat:
		f, _ := v.AsF32()
		props[name] = float64(f)
	case model.KindString, model.KindWord, model.KindElement:
		s, _ := v.AsStr()
		props[name] = s
	case model.KindBool:
		b, _ := v.AsBool()
		props[name] = b
	case model.KindVec3:
		vec, _ := v.AsVec3()
		props[name] = []float64{vec[0], vec[1], vec[2]}
	case model.KindRefno, model.KindNounRef:
		r, _ := v.AsRefno()
		props[name] = int64(uint64(r))
	}
}

// propertiesToAttrMap decodes an Attr_<NOUN> node's properties back into
// a NamedAttrMap, using cat's declared types for catalog-known columns
// and the UDA kind tag for everything else.
func propertiesToAttrMap(cat *catalog.Catalog, noun string, props map[string]any, includeUDA bool) *model.NamedAttrMap {
	m := model.NewNamedAttrMap(noun)
	catalogAttrs := cat.Attrs(noun)
	for key, raw := range props {
		if strings.HasPrefix(key, udaKindPrefix) {
			continue
		}
		if info, ok := catalogAttrs[key]; ok {
			m.Set(key, model.FromDeclared(rawForDecode(info.AttType, raw), info.AttType))
			continue
		}
		if !includeUDA {
			continue
		}
		kind := model.Kind(intPropRaw(props[udaKindPrefix+key]))
		m.Set(key, decodeUDAAttr(kind, raw))
	}
	return m
}

// rawForDecode reverses the ELEMENT int64->string detour so
// model.FromDeclared's string-only DeclElement branch can parse it back.
func rawForDecode(declared model.DeclaredType, raw any) any {
	if declared == model.DeclElement {
		r := model.Refno(uint64(intPropRaw(raw)))
		return r.Opaque()
	}
	return raw
}

func decodeUDAAttr(kind model.Kind, raw any) model.AttrValue {
	switch kind {
	case model.KindInt:
		return model.IntVal(int32(intPropRaw(raw)))
	case model.KindLong:
		if s, ok := raw.(string); ok {
			i, _ := strconv.ParseInt(s, 10, 64)
			return model.LongVal(i)
		}
		return model.LongVal(intPropRaw(raw))
	case model.KindFloat:
		return model.FloatVal(float32(floatPropRaw(raw)))
	case model.KindString:
		return model.StringVal(fmt.Sprint(raw))
	case model.KindWord:
		return model.WordVal(fmt.Sprint(raw))
	case model.KindElement:
		return model.ElementVal(fmt.Sprint(raw))
	case model.KindBool:
		b, _ := raw.(bool)
		return model.BoolVal(b)
	case model.KindVec3:
		if vs, ok := raw.([]float64); ok && len(vs) == 3 {
			return model.Vec3Val(model.Vec3{vs[0], vs[1], vs[2]})
		}
		return model.Invalid()
	case model.KindRefno:
		return model.RefnoVal(model.Refno(uint64(intPropRaw(raw))))
	case model.KindNounRef:
		return model.NounRefVal(model.NounRef{Refno: model.Refno(uint64(intPropRaw(raw)))})
	default:
		return model.Invalid()
	}
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func boolProp(props map[string]any, key string) bool {
	if v, ok := props[key]; ok {
		b, _ := v.(bool)
		return b
	}
	return false
}

func intProp(props map[string]any, key string) int64 {
	v, ok := props[key]
	if !ok {
		return 0
	}
	return intPropRaw(v)
}

func intPropRaw(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	}
	return 0
}

func floatPropRaw(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
