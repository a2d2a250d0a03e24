package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdmscore/graphcore/pkg/model"
)

// mirrorType maps a catalog-declared attribute type to its analytical
// mirror column type, per §6.3.
func mirrorType(t model.DeclaredType) string {
	switch t {
	case model.DeclInteger:
		return "INT32"
	case model.DeclDouble:
		return "DOUBLE"
	case model.DeclBool:
		return "BOOLEAN"
	case model.DeclString, model.DeclWord:
		return "STRING"
	case model.DeclElement:
		return "INT64"
	case model.DeclPosition, model.DeclOrientation, model.DeclDirection, model.DeclVec3:
		return "DOUBLE[]"
	case model.DeclDoubleVec, model.DeclFloatVec:
		return "DOUBLE[]"
	case model.DeclIntVec:
		return "INT32[]"
	case model.DeclRefU64Vec:
		return "INT64[]"
	default:
		return "STRING"
	}
}

// CorePETableDDL returns the fixed core PE node table definition shared
// by every noun, independent of the catalog's attribute content.
func CorePETableDDL() string {
	return `CREATE NODE TABLE PE(
  refno INT64 PRIMARY KEY,
  name STRING, noun STRING, dbnum INT32, sesno INT32,
  cata_hash STRING, deleted BOOLEAN DEFAULT false,
  lock BOOLEAN DEFAULT false, typex INT32
)`
}

// CorePEIndexDDL returns the index statements required alongside the core
// PE table: typex, noun, and cata_hash.
func CorePEIndexDDL() []string {
	return []string{
		"CREATE INDEX ON PE(typex)",
		"CREATE INDEX ON PE(noun)",
		"CREATE INDEX ON PE(cata_hash)",
	}
}

// AttrTableDDL generates the "Attr_<NOUN>(refno INT64 PRIMARY KEY, ...)"
// table definition for one noun, deriving each column's mirror type from
// the catalog's declared att_type (with an overlay override taking
// precedence, if present). Columns are emitted in sorted attribute-name
// order for deterministic output across runs.
func (c *Catalog) AttrTableDDL(noun string, overlay *Overlay) string {
	table := overlay.TableName(noun)
	attrs := c.Attrs(noun)

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if name == "TYPE" || name == "REFNO" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE NODE TABLE %s(\n  refno INT64 PRIMARY KEY", table)
	for _, name := range names {
		info := attrs[name]
		colType := mirrorType(info.AttType)
		if override, ok := overlay.FieldOverride(noun, name); ok {
			colType = override
		}
		fmt.Fprintf(&b, ",\n  %s %s", strings.ToUpper(name), colType)
	}
	b.WriteString("\n)")
	return b.String()
}

// RelationTableDDLs generates the fixed relation tables every mirror
// schema needs: OWNS (parent->child hierarchy edge) and a per-noun
// REFERS_TO edge family for every ELEMENT-typed attribute in
// the catalog, so attribute-sourced references become traversable edges
// rather than opaque foreign-key columns.
func (c *Catalog) RelationTableDDLs() []string {
	ddls := []string{
		"CREATE REL TABLE OWNS(FROM PE TO PE)",
		"CREATE REL TABLE REFERS_TO(FROM PE TO PE, field STRING)",
	}
	for _, noun := range c.Nouns() {
		for name, info := range c.Attrs(noun) {
			if info.AttType != model.DeclElement {
				continue
			}
			ddls = append(ddls, fmt.Sprintf(
				"CREATE REL TABLE %s_%s(FROM %s TO PE)",
				strings.ToUpper(noun), strings.ToUpper(name), overlayOrDefaultTable(noun),
			))
		}
	}
	return ddls
}

func overlayOrDefaultTable(noun string) string {
	return "Attr_" + strings.ToUpper(noun)
}

// InferTargetNoun applies §6.3's suffix/prefix rules to guess the noun an
// ELEMENT-typed attribute field refers to, used to label the mirror's
// attribute-sourced reference edges. The rules, in order: an exact-name
// match for the well-known reference fields, then a generic "_REFNO"
// suffix strip, then a fallback of the generic "ELEMENT" noun.
func InferTargetNoun(field string) string {
	f := strings.ToUpper(field)
	switch f {
	case "CREF":
		return "CATALOGUE"
	case "SREF", "SPRE":
		return "SPEC"
	case "MREF":
		return "MATERIAL"
	case "OWNE", "OWNER":
		return "ELEMENT"
	}
	if strings.HasSuffix(f, "_REFNO") {
		return strings.TrimSuffix(f, "_REFNO")
	}
	return "ELEMENT"
}

// FullMirrorSchemaDDL generates the complete set of DDL statements for
// the analytical mirror: the core PE table and indices, then one
// Attr_<NOUN> table per catalog noun, then relation tables.
func (c *Catalog) FullMirrorSchemaDDL(overlay *Overlay) []string {
	ddls := []string{CorePETableDDL()}
	ddls = append(ddls, CorePEIndexDDL()...)
	for _, noun := range c.Nouns() {
		ddls = append(ddls, c.AttrTableDDL(noun, overlay))
	}
	ddls = append(ddls, c.RelationTableDDLs()...)
	return ddls
}
