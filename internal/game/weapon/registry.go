package weapon

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownWeapon is returned when a definition ID is not registered.
var ErrUnknownWeapon = errors.New("unknown weapon")

// Registry holds weapon definitions keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates def and adds it, replacing any definition with the same ID.
//
// Precondition: def must not be nil.
// Postcondition: Get(def.ID) returns def on success.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every definition sorted by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(r.defs) }

// ParseDef decodes one YAML document on top of DefaultDef. Unknown keys are rejected.
//
// Postcondition: returns a validated Def or an error.
func ParseDef(data []byte) (*Def, error) {
	def := DefaultDef()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, err
	}
	if def.Ranged != nil {
		ranged := DefaultRangedDef()
		// Re-decode the ranged block over its defaults so omitted keys keep stock values.
		var raw struct {
			Ranged yaml.Node `yaml:"ranged"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if err := raw.Ranged.Decode(&ranged); err != nil {
			return nil, err
		}
		def.Ranged = &ranged
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDirectory reads every *.yaml file in dir and returns a populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error naming the first bad file.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading weapon dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		def, err := ParseDef(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("registering %q: %w", path, err)
		}
	}
	return reg, nil
}
