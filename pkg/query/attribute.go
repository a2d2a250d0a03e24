package query

import (
	"math"
	"strconv"
	"strings"

	"context"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/catalog"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
)

// GetNamedAttmap returns refno's explicit attributes only, no UDA merge.
// Cached for attrTTL.
func (s *Service) GetNamedAttmap(ctx context.Context, refno model.Refno) (*model.NamedAttrMap, error) {
	key := opKey(s.attrCache, "get_named_attmap", refno)
	if v, ok := s.attrCache.Get(key); ok {
		return v.(*model.NamedAttrMap).Clone(), nil
	}
	attrs, err := s.pb.AttributesQuery(refno).FetchOne(ctx)
	if err != nil {
		return nil, err
	}
	s.attrCache.PutWithRefnos(key, attrs, []model.Refno{refno})
	return attrs.Clone(), nil
}

// GetNamedAttmapWithUDA returns get_named_attmap's result merged with
// §4.6.1's UDA layer: every visible, applicable descriptor's default
// under its ":{UDNA}"/":{DYUDNA}" key, then the PE's own stored UDA
// overrides (already present in the attribute map under the same
// convention) winning over the default. Cached for attrTTL.
func (s *Service) GetNamedAttmapWithUDA(ctx context.Context, refno model.Refno) (*model.NamedAttrMap, error) {
	key := opKey(s.attrCache, "get_named_attmap_with_uda", refno)
	if v, ok := s.attrCache.Get(key); ok {
		return v.(*model.NamedAttrMap).Clone(), nil
	}
	attrs, err := s.a.GetAttrMapWithUDA(ctx, refno, adapter.DefaultQueryContext())
	if err != nil {
		return nil, err
	}
	s.mergeUDADefaults(attrs)
	s.attrCache.PutWithRefnos(key, attrs, []model.Refno{refno})
	return attrs.Clone(), nil
}

// mergeUDADefaults fills in every applicable descriptor default that
// attrs doesn't already carry an override for. Overrides (already present
// under the "UDA:<name>" key from the backend's stored value) always win.
func (s *Service) mergeUDADefaults(attrs *model.NamedAttrMap) {
	if len(s.uda) == 0 {
		return
	}
	defaults := catalog.ApplicableUDADefaults(s.uda, attrs.TypeStr())
	for mergeKey, v := range defaults {
		name := strings.TrimPrefix(mergeKey, ":")
		if attrs.Has("UDA:" + name) {
			continue
		}
		attrs.SetUDA(name, v)
	}
}

// GetUINamedAttmap is get_named_attmap_with_uda plus §4.6.2's UI
// projections: reference-id attributes resolve to full names, ORI/POS*
// become canonical direction/position strings, DESP reverse-looks-up its
// UNIPAR-tagged entries, and every Invalid-typed or unresolved value
// becomes "unset". SESNO and the now-consumed UNIPAR are removed.
func (s *Service) GetUINamedAttmap(ctx context.Context, refno model.Refno) (*model.NamedAttrMap, error) {
	attrs, err := s.GetNamedAttmapWithUDA(ctx, refno)
	if err != nil {
		return nil, err
	}
	if s.cat != nil {
		attrs.FillExplicitDefaultValues(s.cat.ExplicitDefaults(attrs.TypeStr()))
	}

	unip, _ := attrs.Get("UNIPAR")
	unipVals, _ := unip.AsIntList()

	var refFields, refKeys []string
	var refnos []model.Refno

	for _, k := range attrs.Keys() {
		v, _ := attrs.Get(k)
		switch k {
		case "REFNO":
			attrs.Set(k, model.StringVal(v.String()))
			continue
		case "UNIPAR", "SESNO":
			continue
		}

		switch v.Kind() {
		case model.KindRefno, model.KindNounRef, model.KindElement:
			r, ok := v.AsRefno()
			if ok && r.Valid() {
				refnos = append(refnos, r)
				refFields = append(refFields, k)
				refKeys = append(refKeys, k)
			} else {
				attrs.Set(k, model.StringVal("unset"))
			}
		case model.KindVec3:
			vec, _ := v.AsVec3()
			switch {
			case k == "ORI":
				attrs.Set(k, model.StringVal(oriToDirectionString(vec)))
			case strings.Contains(k, "POS"):
				attrs.Set(k, model.StringVal(vec3ToXYZString(vec)))
			default:
				attrs.Set(k, model.StringVal(vec3ToXYZString(vec)))
			}
		case model.KindFloatVec:
			if k == "DESP" {
				fv, _ := v.AsFloatList()
				attrs.Set(k, model.StringVecVal(projectDESP(s.cat, fv, unipVals)))
			}
		case model.KindInvalid:
			attrs.Set(k, model.StringVal("unset"))
		}
	}

	if len(refnos) > 0 {
		names, err := s.QueryFullNames(ctx, refnos)
		if err != nil {
			return nil, err
		}
		for i, k := range refKeys {
			name := names[i]
			if name == "" {
				name = "unset"
			}
			attrs.Set(k, model.StringVal(name))
		}
	}
	_ = refFields

	attrs.Delete("UNIPAR")
	attrs.Delete("SESNO")
	return attrs, nil
}

func vec3ToXYZString(v model.Vec3) string {
	return "X " + trimFloat(v[0]) + " Y " + trimFloat(v[1]) + " Z " + trimFloat(v[2])
}

// oriToDirectionString converts an ORI Euler-angle triple (degrees,
// applied Z*Y*X per NamedAttrMap.GetMatrix's documented convention) into
// the canonical "X .. Y .. Z .." direction string, by rotating the unit
// X axis through the same Z*Y*X composition.
func oriToDirectionString(v model.Vec3) string {
	rx, ry, rz := degToRad(v[0]), degToRad(v[1]), degToRad(v[2])

	// Unit X axis rotated by Rz * Ry * Rx.
	x, y, z := 1.0, 0.0, 0.0

	// Rx
	y, z = y*math.Cos(rx)-z*math.Sin(rx), y*math.Sin(rx)+z*math.Cos(rx)
	// Ry
	x, z = x*math.Cos(ry)+z*math.Sin(ry), -x*math.Sin(ry)+z*math.Cos(ry)
	// Rz
	x, y = x*math.Cos(rz)-y*math.Sin(rz), x*math.Sin(rz)+y*math.Cos(rz)

	return vec3ToXYZString(model.Vec3{x, y, z})
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 4, 64)
}

// projectDESP reverse-looks-up DESP entries whose paired UNIPAR code is
// 623723 (the source schema's "noun hash" tag) against cat's hash table;
// every other entry is stringified in place.
func projectDESP(cat *catalog.Catalog, desp []float32, unipar []int32) []string {
	out := make([]string, len(desp))
	for i, v := range desp {
		if cat != nil && i < len(unipar) && unipar[i] == 623723 {
			if name := cat.NounByHash(uint32(int32(v))); name != "" {
				out[i] = name
				continue
			}
		}
		out[i] = trimFloat(float64(v))
	}
	return out
}

// GetAncestorAttmaps returns the attribute maps of refno's ancestors,
// nearest first, parallel to QueryAncestorRefnos.
func (s *Service) GetAncestorAttmaps(ctx context.Context, refno model.Refno) ([]*model.NamedAttrMap, error) {
	ancestors, err := s.QueryAncestorRefnos(ctx, refno)
	if err != nil {
		return nil, err
	}
	out := make([]*model.NamedAttrMap, 0, len(ancestors))
	for _, a := range ancestors {
		attrs, err := s.GetNamedAttmap(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, attrs)
	}
	return out, nil
}

// GetChildrenNamedAttmaps returns the attribute maps of refno's direct
// children. Cached for attrTTL.
func (s *Service) GetChildrenNamedAttmaps(ctx context.Context, refno model.Refno) ([]*model.NamedAttrMap, error) {
	key := opKey(s.attrCache, "get_children_named_attmaps", refno)
	if v, ok := s.attrCache.Get(key); ok {
		return v.([]*model.NamedAttrMap), nil
	}
	children, err := s.GetChildrenRefnos(ctx, refno)
	if err != nil {
		return nil, err
	}
	out := make([]*model.NamedAttrMap, 0, len(children))
	for _, c := range children {
		attrs, err := s.GetNamedAttmap(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, attrs)
	}
	tags := append(append([]model.Refno{}, children...), refno)
	s.attrCache.PutWithRefnos(key, out, tags)
	return out, nil
}

// QuerySingleByPaths fetches one attribute map by following a dotted
// owner/reference path from refno, keeping only the requested fields
// when fields is non-empty.
func (s *Service) QuerySingleByPaths(ctx context.Context, refno model.Refno, path []string, fields []string) (*model.NamedAttrMap, error) {
	current := refno
	for _, step := range path {
		switch step {
		case "owner", "OWNER":
			pe, err := s.a.GetPE(ctx, current, adapter.DefaultQueryContext())
			if err != nil {
				return nil, err
			}
			if pe == nil || !pe.Owner.Valid() {
				return nil, coreerr.New(coreerr.NotFound, "query_single_by_paths: no owner at %s", current).WithRefno(current)
			}
			current = pe.Owner
		default:
			attrs, err := s.GetNamedAttmap(ctx, current)
			if err != nil {
				return nil, err
			}
			v, ok := attrs.Get(strings.ToUpper(step))
			if !ok {
				return nil, coreerr.New(coreerr.NotFound, "query_single_by_paths: no field %s at %s", step, current).WithRefno(current)
			}
			r, ok := v.AsRefno()
			if !ok {
				return nil, coreerr.New(coreerr.QueryError, "query_single_by_paths: field %s at %s is not a reference", step, current).WithRefno(current)
			}
			current = r
		}
	}

	attrs, err := s.GetNamedAttmap(ctx, current)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return attrs, nil
	}
	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	out := model.NewNamedAttrMap(attrs.TypeStr())
	for _, k := range attrs.Keys() {
		if keep[k] {
			v, _ := attrs.Get(k)
			out.Set(k, v)
		}
	}
	return out, nil
}
