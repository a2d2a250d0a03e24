package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// tableOverlay is a per-noun mirror-table override, the YAML equivalent
// of an AttrTableSpec: lets an operator rename the generated Attr_<NOUN>
// table or force a column's mirror type without touching the JSON
// catalog itself.
type tableOverlay struct {
	Noun   string         `yaml:"noun"`
	Table  string         `yaml:"table"`
	Fields []fieldOverlay `yaml:"fields"`
}

type fieldOverlay struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Edge     string `yaml:"edge"`
}

// Overlay holds every per-noun table override loaded from a directory of
// YAML files, keyed by noun.
type Overlay struct {
	byNoun map[string]tableOverlay
}

// LoadOverlayDir loads every *.yaml file in dir into an Overlay. A
// missing directory is not an error — overlays are optional, and their
// absence just means every noun uses the catalog's inferred mirror
// schema as-is.
func LoadOverlayDir(dir string) (*Overlay, error) {
	o := &Overlay{byNoun: make(map[string]tableOverlay)}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return o, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read overlay dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: read overlay %s: %w", path, err)
		}
		var spec tableOverlay
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("catalog: parse overlay %s: %w", path, err)
		}
		if spec.Table == "" {
			spec.Table = "Attr_" + strings.ToUpper(spec.Noun)
		}
		o.byNoun[strings.ToUpper(spec.Noun)] = spec
	}
	return o, nil
}

// TableName returns the mirror table name for noun, honoring an overlay
// override if one exists, else the default "Attr_<NOUN>" convention.
func (o *Overlay) TableName(noun string) string {
	if o == nil {
		return "Attr_" + strings.ToUpper(noun)
	}
	if spec, ok := o.byNoun[strings.ToUpper(noun)]; ok && spec.Table != "" {
		return spec.Table
	}
	return "Attr_" + strings.ToUpper(noun)
}

// FieldOverride returns an explicit mirror column type for noun/attr, if
// an overlay declares one.
func (o *Overlay) FieldOverride(noun, attr string) (string, bool) {
	if o == nil {
		return "", false
	}
	spec, ok := o.byNoun[strings.ToUpper(noun)]
	if !ok {
		return "", false
	}
	for _, f := range spec.Fields {
		if strings.EqualFold(f.Name, attr) {
			return f.Type, true
		}
	}
	return "", false
}
