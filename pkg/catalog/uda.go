package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pdmscore/graphcore/pkg/model"
)

// UDADescriptor is one user-defined-attribute descriptor: the UDA table
// row the original element graph keeps alongside the compiled catalog
// (UDNA/DYUDNA/UTYP/DFLT/UHIDE/ELEL in the source schema). It is loaded
// separately from the attribute-info catalog since UDAs are late-bound —
// added by a site's administrators rather than compiled into the noun
// catalog — and a deployment may have none at all.
type UDADescriptor struct {
	// UDNA is the administrator-assigned name; DYUDNA is the fallback
	// "dynamic" name used when UDNA is blank.
	UDNA   string `json:"udna"`
	DYUDNA string `json:"dyudna"`
	// UTYP is the descriptor's declared value type.
	UTYP model.DeclaredType `json:"utyp"`
	// DFLT is the default value, decoded per UTYP.
	DFLT json.RawMessage `json:"dflt"`
	// Hidden excludes the descriptor from the merge entirely.
	Hidden bool `json:"uhide"`
	// Nouns lists the element nouns this descriptor applies to (the
	// source schema's ELEL list); empty means "every noun".
	Nouns []string `json:"elel"`
}

// key returns the descriptor's merge key: UDNA if non-empty, else
// DYUDNA, per §4.6.1.
func (d UDADescriptor) key() string {
	if d.UDNA != "" {
		return d.UDNA
	}
	return d.DYUDNA
}

// appliesTo reports whether the descriptor applies to noun. An empty
// Nouns list applies universally.
func (d UDADescriptor) appliesTo(noun string) bool {
	if len(d.Nouns) == 0 {
		return true
	}
	for _, n := range d.Nouns {
		if strings.EqualFold(n, noun) {
			return true
		}
	}
	return false
}

func (d UDADescriptor) defaultValue() model.AttrValue {
	if len(d.DFLT) == 0 {
		return model.Invalid()
	}
	var raw any
	if err := json.Unmarshal(d.DFLT, &raw); err != nil {
		return model.Invalid()
	}
	return model.FromDeclared(raw, d.UTYP)
}

// isMergeSentinel reports whether key is one of the §4.6.1 sentinel keys
// ignored during UDA merge regardless of source (descriptor default or
// PE override).
func isMergeSentinel(key string) bool {
	return key == "" || key == ":NONE" || key == ":unset"
}

// LoadUDADescriptors reads a JSON array of UDA descriptors from path. A
// missing file is not an error — UDA descriptors are optional, and a
// deployment without one simply merges no descriptor defaults (PE-level
// UDA overrides, which live in the PE's own attribute map, still merge
// normally).
func LoadUDADescriptors(path string) ([]UDADescriptor, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read uda descriptors %s: %w", path, err)
	}
	var descs []UDADescriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		return nil, fmt.Errorf("catalog: decode uda descriptors: %w", err)
	}
	return descs, nil
}

// ApplicableUDADefaults returns merge-key -> default value for every
// visible descriptor that applies to noun, skipping sentinel keys.
func ApplicableUDADefaults(descs []UDADescriptor, noun string) map[string]model.AttrValue {
	out := make(map[string]model.AttrValue)
	for _, d := range descs {
		if d.Hidden || !d.appliesTo(noun) {
			continue
		}
		name := d.key()
		if name == "" {
			continue
		}
		key := ":" + name
		if isMergeSentinel(key) {
			continue
		}
		out[key] = d.defaultValue()
	}
	return out
}
