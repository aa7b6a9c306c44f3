// Package boss provides boss definitions and the encounter state machine:
// ordered health-threshold phases, a one-time enrage and challenge runs.
package boss

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

// ErrUnknownBoss is returned when a boss ID is not registered.
var ErrUnknownBoss = errors.New("unknown boss")

// Type identifies one of the boss archetypes.
type Type string

const (
	TypeKitsuneNoOkami   Type = "kitsune_no_okami"
	TypeMizuchi          Type = "mizuchi"
	TypeDaitengu         Type = "daitengu"
	TypeOmukade          Type = "omukade"
	TypeShutenDoji       Type = "shuten_doji"
	TypeGashadokuroTitan Type = "gashadokuro_titan"
	TypeYamataNoOrochi   Type = "yamata_no_orochi"
)

var validTypes = map[Type]bool{
	TypeKitsuneNoOkami: true, TypeMizuchi: true, TypeDaitengu: true, TypeOmukade: true,
	TypeShutenDoji: true, TypeGashadokuroTitan: true, TypeYamataNoOrochi: true,
}

// Challenge is a self-imposed restriction whose completion earns bonus honor.
type Challenge string

const (
	ChallengeNone         Challenge = "none"
	ChallengeNoArmor      Challenge = "no_armor"
	ChallengeKatanaOnly   Challenge = "katana_only"
	ChallengeNoHealing    Challenge = "no_healing"
	ChallengePerfectDodge Challenge = "perfect_dodge"
	ChallengePacifist     Challenge = "pacifist"
	ChallengeSpeedRun     Challenge = "speed_run"
)

// ParseChallenge maps a challenge name to its Challenge. "" maps to ChallengeNone.
func ParseChallenge(s string) (Challenge, error) {
	switch c := Challenge(s); c {
	case "":
		return ChallengeNone, nil
	case ChallengeNone, ChallengeNoArmor, ChallengeKatanaOnly, ChallengeNoHealing,
		ChallengePerfectDodge, ChallengePacifist, ChallengeSpeedRun:
		return c, nil
	default:
		return ChallengeNone, fmt.Errorf("unknown challenge %q", s)
	}
}

// Def is the immutable template of a boss.
type Def struct {
	ID    string `yaml:"id"`
	Type  Type   `yaml:"type"`
	Title string `yaml:"title"`

	MaxHealth   float64            `yaml:"max_health"`
	MaxStamina  float64            `yaml:"max_stamina"`
	Resistances damage.Resistances `yaml:"resistances"`

	// AttackDamage is the base damage of every boss strike. It replaces the
	// weapon's BaseDamage; 0 keeps the weapon's own.
	AttackDamage float64 `yaml:"attack_damage"`
	// HonorReward is paid to the challenger on a first defeat.
	HonorReward int `yaml:"honor_reward"`

	// PhaseThresholds are health fractions, strictly decreasing.
	PhaseThresholds []float64 `yaml:"phase_thresholds"`

	EnrageThreshold        float64 `yaml:"enrage_threshold"`
	EnrageDamageMultiplier float64 `yaml:"enrage_damage_multiplier"`
	EnrageSpeedMultiplier  float64 `yaml:"enrage_speed_multiplier"`

	ArenaRadius float64 `yaml:"arena_radius"`

	// Weapon is the weapon definition ID the boss fights with.
	Weapon string `yaml:"weapon"`
	// Script names the Lua zone holding this boss's hooks.
	Script string `yaml:"script"`
	// LootTable names the loot table rolled when the boss dies.
	LootTable string `yaml:"loot_table"`
}

// DefaultDef returns the stock boss values every definition file starts from.
func DefaultDef() Def {
	return Def{
		MaxHealth:              1000,
		MaxStamina:             200,
		AttackDamage:           40,
		HonorReward:            50,
		PhaseThresholds:        []float64{0.75, 0.5, 0.25},
		EnrageThreshold:        0.2,
		EnrageDamageMultiplier: 1.5,
		EnrageSpeedMultiplier:  1.3,
		ArenaRadius:            2000,
	}
}

// VitalsConfig returns the pool configuration for a boss built from d.
func (d *Def) VitalsConfig() vitals.Config {
	cfg := vitals.BossDefaults()
	cfg.MaxHealth = d.MaxHealth
	cfg.MaxStamina = d.MaxStamina
	cfg.Resistances = d.Resistances
	return cfg
}

// StrikeWeapon returns the weapon definition the boss fights with: wd with
// its base damage replaced by AttackDamage. wd is returned unchanged when
// AttackDamage is 0.
//
// Precondition: wd must not be nil.
func (d *Def) StrikeWeapon(wd *weapon.Def) *weapon.Def {
	if d.AttackDamage <= 0 || wd.BaseDamage == d.AttackDamage {
		return wd
	}
	strike := *wd
	strike.BaseDamage = d.AttackDamage
	return &strike
}

// Validate checks the definition invariants.
//
// Postcondition: returns nil iff all fields are valid, or one error naming every violation.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if !validTypes[d.Type] {
		errs = append(errs, fmt.Errorf("unknown type %q", d.Type))
	}
	if d.MaxHealth <= 0 {
		errs = append(errs, fmt.Errorf("max_health must be > 0, got %v", d.MaxHealth))
	}
	if d.AttackDamage < 0 {
		errs = append(errs, fmt.Errorf("attack_damage must be >= 0, got %v", d.AttackDamage))
	}
	if d.HonorReward < 0 {
		errs = append(errs, fmt.Errorf("honor_reward must be >= 0, got %d", d.HonorReward))
	}
	for i, th := range d.PhaseThresholds {
		if th <= 0 || th > 1 {
			errs = append(errs, fmt.Errorf("phase_thresholds[%d] must be in (0, 1], got %v", i, th))
		}
		if i > 0 && th >= d.PhaseThresholds[i-1] {
			errs = append(errs, fmt.Errorf("phase_thresholds must be strictly decreasing at index %d", i))
		}
	}
	if d.EnrageThreshold < 0 || d.EnrageThreshold > 1 {
		errs = append(errs, fmt.Errorf("enrage_threshold must be in [0, 1], got %v", d.EnrageThreshold))
	}
	if d.EnrageDamageMultiplier <= 0 || d.EnrageSpeedMultiplier <= 0 {
		errs = append(errs, errors.New("enrage multipliers must be > 0"))
	}
	if d.ArenaRadius <= 0 {
		errs = append(errs, fmt.Errorf("arena_radius must be > 0, got %v", d.ArenaRadius))
	}
	if len(errs) > 0 {
		return fmt.Errorf("boss %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// Registry holds boss definitions keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates def and adds it, replacing any definition with the same ID.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the definition for id, or ErrUnknownBoss.
func (r *Registry) Get(id string) (*Def, error) {
	d, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoss, id)
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

// ParseDef decodes one YAML document on top of DefaultDef. Unknown keys are rejected.
func ParseDef(data []byte) (*Def, error) {
	def := DefaultDef()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDirectory reads every *.yaml file in dir and returns a populated Registry.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading boss dir %q: %w", dir, err)
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
