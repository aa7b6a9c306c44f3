// Package food models eaten food: immediate restoration plus timed buffs that
// raise max pools, damage and defense and regenerate health and stamina.
package food

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFood is returned when a food ID is not registered.
var ErrUnknownFood = errors.New("unknown food")

// Def is the static definition of a food item, loaded from YAML.
type Def struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	HealthRestore  float64 `yaml:"health_restore"`
	StaminaRestore float64 `yaml:"stamina_restore"`
	KiRestore      float64 `yaml:"ki_restore"`

	// BuffDuration is in seconds; 0 means the food has no lasting buff.
	BuffDuration     float64 `yaml:"buff_duration"`
	MaxHealthBonus   float64 `yaml:"max_health_bonus"`
	MaxStaminaBonus  float64 `yaml:"max_stamina_bonus"`
	HealthRegenRate  float64 `yaml:"health_regen_rate"`
	StaminaRegenRate float64 `yaml:"stamina_regen_rate"`
	// DamageBonus and DefenseBonus are fractions, e.g. 0.05 for +5%.
	DamageBonus  float64 `yaml:"damage_bonus"`
	DefenseBonus float64 `yaml:"defense_bonus"`
}

// Validate checks the definition invariants.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	for name, v := range map[string]float64{
		"health_restore":     d.HealthRestore,
		"stamina_restore":    d.StaminaRestore,
		"ki_restore":         d.KiRestore,
		"buff_duration":      d.BuffDuration,
		"health_regen_rate":  d.HealthRegenRate,
		"stamina_regen_rate": d.StaminaRegenRate,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return fmt.Errorf("food %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// Registry holds all known food definitions keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates def and adds it, overwriting any entry with the same ID.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the definition for id, or ErrUnknownFood.
func (r *Registry) Get(id string) (*Def, error) {
	d, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFood, id)
	}
	return d, nil
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

// LoadDirectory reads every *.yaml file in dir, parses each as a Def, and
// returns a populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading food dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&def); err != nil {
			return nil, fmt.Errorf("registering %q: %w", path, err)
		}
	}
	return reg, nil
}
