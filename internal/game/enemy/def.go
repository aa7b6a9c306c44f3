// Package enemy provides regular enemy definitions and countdown respawning.
package enemy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
)

// ErrUnknownEnemy is returned when an enemy ID is not registered.
var ErrUnknownEnemy = errors.New("unknown enemy")

// DefaultHonorReward is awarded for a kill that is not honorable.
const DefaultHonorReward = 5

// Def is a reusable enemy archetype loaded from YAML.
type Def struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	MaxHealth   float64            `yaml:"max_health"`
	MaxStamina  float64            `yaml:"max_stamina"`
	Resistances damage.Resistances `yaml:"resistances"`
	// Weapon is a weapon definition ID; empty leaves the enemy unarmed.
	Weapon string `yaml:"weapon"`
	// LootTable is a loot table ID; empty drops nothing.
	LootTable   string `yaml:"loot_table"`
	HonorReward int    `yaml:"honor_reward"`
	// PerceptionRange bounds how far the enemy looks for a target.
	PerceptionRange float64 `yaml:"perception_range"`
	// RespawnDelay is in seconds; 0 means the enemy does not respawn.
	RespawnDelay float64 `yaml:"respawn_delay"`
}

// DefaultDef returns the stock values every definition file starts from.
func DefaultDef() Def {
	cfg := vitals.EnemyDefaults()
	return Def{
		MaxHealth:       cfg.MaxHealth,
		MaxStamina:      cfg.MaxStamina,
		HonorReward:     DefaultHonorReward,
		PerceptionRange: 800,
	}
}

// VitalsConfig returns the pool configuration for an instance of d.
func (d *Def) VitalsConfig() vitals.Config {
	cfg := vitals.EnemyDefaults()
	cfg.MaxHealth = d.MaxHealth
	cfg.MaxStamina = d.MaxStamina
	cfg.Resistances = d.Resistances
	return cfg
}

// Validate checks that the definition satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHealth > 0 and
// every other number is non-negative.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.MaxHealth <= 0 {
		errs = append(errs, fmt.Errorf("max_health must be > 0, got %v", d.MaxHealth))
	}
	if d.MaxStamina < 0 || d.PerceptionRange < 0 || d.RespawnDelay < 0 {
		errs = append(errs, errors.New("max_stamina, perception_range and respawn_delay must be >= 0"))
	}
	if d.HonorReward < 0 {
		errs = append(errs, fmt.Errorf("honor_reward must be >= 0, got %d", d.HonorReward))
	}
	if len(errs) > 0 {
		return fmt.Errorf("enemy %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// Registry holds the loaded enemy definitions keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates def and adds it.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the definition for id, or ErrUnknownEnemy.
func (r *Registry) Get(id string) (*Def, error) {
	d, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnemy, id)
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

// ParseDef decodes one definition on top of DefaultDef, rejecting unknown keys.
func ParseDef(data []byte) (*Def, error) {
	def := DefaultDef()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing enemy YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDirectory reads all *.yaml files in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns every definition or an error on the first parse or
// validate failure; on error, the partial result is discarded.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		def, err := ParseDef(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
