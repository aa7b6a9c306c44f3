// Package weapon provides weapon definitions loaded from YAML and the mutable
// weapon instance that computes damage, tracks durability and combo, and
// deduplicates hits within a swing.
package weapon

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/yomi/internal/game/damage"
)

// Tier is the material grade of a weapon.
type Tier string

const (
	TierNone   Tier = "none"
	TierBamboo Tier = "bamboo"
	TierIron   Tier = "iron"
	TierSteel  Tier = "steel"
	TierSpirit Tier = "spirit"
)

// Class is the weapon family.
type Class string

const (
	ClassSword      Class = "sword"
	ClassGreatSword Class = "greatsword"
	ClassSpear      Class = "spear"
	ClassPolearm    Class = "polearm"
	ClassDagger     Class = "dagger"
	ClassClub       Class = "club"
	ClassChain      Class = "chain"
	ClassStaff      Class = "staff"
	ClassBow        Class = "bow"
	ClassThrown     Class = "thrown"
	ClassBlowgun    Class = "blowgun"
	ClassFirearm    Class = "firearm"
)

var validTiers = map[Tier]bool{TierNone: true, TierBamboo: true, TierIron: true, TierSteel: true, TierSpirit: true}

var validClasses = map[Class]bool{
	ClassSword: true, ClassGreatSword: true, ClassSpear: true, ClassPolearm: true,
	ClassDagger: true, ClassClub: true, ClassChain: true, ClassStaff: true,
	ClassBow: true, ClassThrown: true, ClassBlowgun: true, ClassFirearm: true,
}

// BrokenPenaltyThreshold is the durability fraction below which damage is halved.
const BrokenPenaltyThreshold = 0.2

// DegradedDamageMultiplier is applied when durability is below BrokenPenaltyThreshold.
const DegradedDamageMultiplier = 0.5

// Def is the immutable template of a weapon.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Tier        Tier   `yaml:"tier"`
	Class       Class  `yaml:"class"`

	BaseDamage  float64 `yaml:"base_damage"`
	AttackSpeed float64 `yaml:"attack_speed"`
	Range       float64 `yaml:"range"`
	StaminaCost float64 `yaml:"stamina_cost"`
	KiCost      float64 `yaml:"ki_cost"`

	PrimaryKind     damage.Kind `yaml:"primary_kind"`
	SecondaryKind   damage.Kind `yaml:"secondary_kind"`
	SecondaryDamage float64     `yaml:"secondary_damage"`
	Knockback       float64     `yaml:"knockback"`

	CanBlock       bool    `yaml:"can_block"`
	BlockReduction float64 `yaml:"block_reduction"`

	StealthBonus      bool    `yaml:"stealth_bonus"`
	StealthMultiplier float64 `yaml:"stealth_multiplier"`

	MaxDurability int `yaml:"max_durability"`
	// RepairCost lists the materials consumed to restore full durability.
	RepairCost map[string]int `yaml:"repair_cost,omitempty"`

	MaxCombo         int     `yaml:"max_combo"`
	ComboWindow      float64 `yaml:"combo_window"`
	ComboBonusPerHit float64 `yaml:"combo_bonus_per_hit"`
	HeavyMultiplier  float64 `yaml:"heavy_multiplier"`

	// Ranged is set for bows, thrown weapons, blowguns and firearms.
	Ranged *RangedDef `yaml:"ranged,omitempty"`
}

// RangedDef holds the projectile parameters of a ranged weapon.
type RangedDef struct {
	ProjectileSpeed  float64 `yaml:"projectile_speed"`
	MaxChargeTime    float64 `yaml:"max_charge_time"`
	ChargeMultiplier float64 `yaml:"charge_multiplier"`
	RequiresAmmo     bool    `yaml:"requires_ammo"`
	MaxAmmo          int     `yaml:"max_ammo"`
	CanCharge        bool    `yaml:"can_charge"`
	ReloadTime       float64 `yaml:"reload_time"`
	ProjectileLife   float64 `yaml:"projectile_life"`
	Sticks           bool    `yaml:"sticks"`
}

// DefaultDef returns a Def populated with the stock values every definition
// file starts from.
func DefaultDef() Def {
	return Def{
		Tier:              TierNone,
		Class:             ClassSword,
		BaseDamage:        10,
		AttackSpeed:       1,
		Range:             150,
		StaminaCost:       10,
		PrimaryKind:       damage.Physical,
		SecondaryKind:     damage.None,
		Knockback:         100,
		CanBlock:          true,
		BlockReduction:    0.5,
		StealthMultiplier: 1,
		MaxDurability:     100,
		MaxCombo:          3,
		ComboWindow:       1.5,
		ComboBonusPerHit:  0.15,
		HeavyMultiplier:   2,
	}
}

// DefaultRangedDef returns the stock projectile parameters.
func DefaultRangedDef() RangedDef {
	return RangedDef{
		ProjectileSpeed:  3000,
		MaxChargeTime:    2,
		ChargeMultiplier: 2,
		MaxAmmo:          30,
		CanCharge:        true,
		ReloadTime:       1,
		ProjectileLife:   5,
	}
}

// IsRanged reports whether the weapon fires projectiles.
func (d *Def) IsRanged() bool { return d.Ranged != nil }

// Validate checks the definition invariants.
//
// Postcondition: returns nil iff all fields are valid, or one error naming every violation.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !validTiers[d.Tier] {
		errs = append(errs, fmt.Errorf("unknown tier %q", d.Tier))
	}
	if !validClasses[d.Class] {
		errs = append(errs, fmt.Errorf("unknown class %q", d.Class))
	}
	if d.BaseDamage < 0 {
		errs = append(errs, fmt.Errorf("base_damage must be >= 0, got %v", d.BaseDamage))
	}
	if d.AttackSpeed <= 0 {
		errs = append(errs, fmt.Errorf("attack_speed must be > 0, got %v", d.AttackSpeed))
	}
	if d.StaminaCost < 0 || d.KiCost < 0 {
		errs = append(errs, errors.New("stamina_cost and ki_cost must be >= 0"))
	}
	if d.BlockReduction < 0 || d.BlockReduction > 1 {
		errs = append(errs, fmt.Errorf("block_reduction must be in [0, 1], got %v", d.BlockReduction))
	}
	if d.MaxDurability < 0 {
		errs = append(errs, fmt.Errorf("max_durability must be >= 0, got %d", d.MaxDurability))
	}
	if d.MaxCombo < 0 {
		errs = append(errs, fmt.Errorf("max_combo must be >= 0, got %d", d.MaxCombo))
	}
	if d.SecondaryDamage < 0 {
		errs = append(errs, fmt.Errorf("secondary_damage must be >= 0, got %v", d.SecondaryDamage))
	}
	for item, n := range d.RepairCost {
		if item == "" || n <= 0 {
			errs = append(errs, fmt.Errorf("repair_cost entry %q must name an item with a positive quantity", item))
		}
	}
	if r := d.Ranged; r != nil {
		if r.ProjectileSpeed <= 0 {
			errs = append(errs, fmt.Errorf("ranged.projectile_speed must be > 0, got %v", r.ProjectileSpeed))
		}
		if r.RequiresAmmo && r.MaxAmmo <= 0 {
			errs = append(errs, errors.New("ranged.max_ammo must be > 0 when ammo is required"))
		}
		if r.ReloadTime < 0 || r.MaxChargeTime < 0 {
			errs = append(errs, errors.New("ranged.reload_time and ranged.max_charge_time must be >= 0"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}
