package docstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

// peToNode encodes a PE's envelope fields and attribute map into a
// storage.Node. The envelope fields (name, noun, dbnum, sesno,
// cata_hash, lock, deleted, op, typex) are stored under fixed property
// keys alongside the attribute properties, mirroring
// SPdmsElement::gen_sur_json's flat single-record JSON shape.
func peToNode(pe *model.PE) *storage.Node {
	props := map[string]any{
		"name":       pe.Name,
		"noun":       pe.Noun,
		"dbnum":      pe.Dbnum,
		"sesno":      pe.Sesno,
		"status_code": pe.StatusCode,
		"cata_hash":  pe.CataHash,
		"lock":       pe.Lock,
		"deleted":    pe.Deleted,
		"op":         int(pe.Op),
		"owner":      pe.Owner.Opaque(),
	}
	if pe.Typex != nil {
		props["typex"] = *pe.Typex
	}
	if pe.Attrs != nil {
		for _, name := range pe.Attrs.Keys() {
			v, _ := pe.Attrs.Get(name)
			encodeAttr(props, name, v)
		}
	}

	return &storage.Node{
		ID:         latestNodeID(pe.Refno),
		Labels:     []string{pe.Noun},
		Properties: props,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func nodeToPE(node *storage.Node) (*model.PE, error) {
	refno, ok := refnoFromNodeID(node.ID)
	if !ok {
		return nil, fmt.Errorf("docstore: malformed node id %q", node.ID)
	}
	pe := model.NewPE(refno, stringProp(node.Properties, "noun"))
	pe.Name = stringProp(node.Properties, "name")
	pe.Dbnum = int32(intProp(node.Properties, "dbnum"))
	pe.Sesno = int32(intProp(node.Properties, "sesno"))
	pe.StatusCode = stringProp(node.Properties, "status_code")
	pe.CataHash = stringProp(node.Properties, "cata_hash")
	pe.Lock = boolProp(node.Properties, "lock")
	pe.Deleted = boolProp(node.Properties, "deleted")
	pe.Op = model.Op(intProp(node.Properties, "op"))
	if ownerStr := stringProp(node.Properties, "owner"); ownerStr != "" {
		if r, err := model.ParseRefno(ownerStr); err == nil {
			pe.Owner = r
		}
	}
	if v, ok := node.Properties["typex"]; ok {
		i := int32(intPropRaw(v))
		pe.Typex = &i
	}

	pe.Attrs = propertiesToAttrMap(node.Properties, true)
	return pe, nil
}

// envelopeKeys lists the fixed PE-envelope properties, excluded when
// decoding the remaining properties back into attribute values.
var envelopeKeys = map[string]bool{
	"name": true, "noun": true, "dbnum": true, "sesno": true,
	"status_code": true, "cata_hash": true, "lock": true, "deleted": true,
	"op": true, "owner": true, "typex": true,
}

func encodeAttr(props map[string]any, name string, v model.AttrValue) {
	props[propKindPrefix+name] = int(v.Kind())
	switch v.Kind() {
	case model.KindInt:
		i, _ := v.AsI32()
		props[name] = i
	case model.KindLong:
		// long has no dedicated accessor beyond AsI32's truncation; it is
		// stored as its decimal String() form so the full 64-bit value
		// survives, and decodeAttr parses it back with strconv.ParseInt.
		props[name] = v.String()
	case model.KindFloat:
		f, _ := v.AsF32()
		props[name] = f
	case model.KindString, model.KindWord, model.KindElement:
		s, _ := v.AsStr()
		props[name] = s
	case model.KindBool:
		b, _ := v.AsBool()
		props[name] = b
	case model.KindVec3:
		vec, _ := v.AsVec3()
		props[name] = []float64{vec[0], vec[1], vec[2]}
	case model.KindFloatVec:
		fv, _ := v.AsFloatList()
		props[name] = fv
	case model.KindIntVec:
		iv, _ := v.AsIntList()
		props[name] = iv
	case model.KindStringVec:
		sv, _ := v.AsStringList()
		props[name] = sv
	case model.KindBoolVec:
		bv, _ := v.AsBoolList()
		props[name] = bv
	case model.KindRefno:
		r, _ := v.AsRefno()
		props[name] = r.Opaque()
	case model.KindRefnoVec:
		rv, _ := v.AsRefnoList()
		strs := make([]string, len(rv))
		for i, r := range rv {
			strs[i] = r.Opaque()
		}
		props[name] = strs
	case model.KindNounRef:
		r, _ := v.AsRefno()
		props[name] = r.Opaque()
	}
}

func propertiesToAttrMap(props map[string]any, includeUDA bool) *model.NamedAttrMap {
	m := model.NewNamedAttrMap(stringProp(props, "noun"))
	for key, raw := range props {
		if envelopeKeys[key] || strings.HasPrefix(key, propKindPrefix) {
			continue
		}
		if strings.HasPrefix(key, "UDA:") && !includeUDA {
			continue
		}
		kind := model.Kind(intPropRaw(props[propKindPrefix+key]))
		m.Set(key, decodeAttr(kind, raw))
	}
	return m
}

func decodeAttr(kind model.Kind, raw any) model.AttrValue {
	switch kind {
	case model.KindInt:
		return model.IntVal(int32(intPropRaw(raw)))
	case model.KindLong:
		if s, ok := raw.(string); ok {
			i, _ := strconv.ParseInt(s, 10, 64)
			return model.LongVal(i)
		}
		return model.LongVal(int64(intPropRaw(raw)))
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
	case model.KindFloatVec:
		if vs, ok := raw.([]float32); ok {
			return model.FloatVecVal(vs)
		}
		return model.Invalid()
	case model.KindIntVec:
		if vs, ok := raw.([]int32); ok {
			return model.IntVecVal(vs)
		}
		return model.Invalid()
	case model.KindStringVec:
		if vs, ok := raw.([]string); ok {
			return model.StringVecVal(vs)
		}
		return model.Invalid()
	case model.KindBoolVec:
		if vs, ok := raw.([]bool); ok {
			return model.BoolVecVal(vs)
		}
		return model.Invalid()
	case model.KindRefno:
		if r, err := model.ParseRefno(fmt.Sprint(raw)); err == nil {
			return model.RefnoVal(r)
		}
		return model.Invalid()
	case model.KindRefnoVec:
		if strs, ok := raw.([]string); ok {
			rv := make([]model.Refno, 0, len(strs))
			for _, s := range strs {
				if r, err := model.ParseRefno(s); err == nil {
					rv = append(rv, r)
				}
			}
			return model.RefnoVecVal(rv)
		}
		return model.Invalid()
	case model.KindNounRef:
		if r, err := model.ParseRefno(fmt.Sprint(raw)); err == nil {
			return model.NounRefVal(model.NounRef{Refno: r})
		}
		return model.Invalid()
	default:
		return model.Invalid()
	}
}

func mergeAttrsIntoProperties(props map[string]any, attrs *model.NamedAttrMap) {
	if attrs == nil {
		return
	}
	for _, name := range attrs.Keys() {
		v, _ := attrs.Get(name)
		encodeAttr(props, name, v)
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
