// Package vitals implements the health, stamina and energy pools owned by
// every combatant, including regeneration, resistances and the one-way death
// transition.
package vitals

import (
	"math"

	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/event"
)

// Config holds the static parameters for a Vitals instance. Rates are per second.
type Config struct {
	MaxHealth        float64 `yaml:"max_health"`
	MaxStamina       float64 `yaml:"max_stamina"`
	MaxEnergy        float64 `yaml:"max_energy"`
	HealthRegenRate  float64 `yaml:"health_regen_rate"`
	StaminaRegenRate float64 `yaml:"stamina_regen_rate"`
	EnergyRegenRate  float64 `yaml:"energy_regen_rate"`
	// StaminaRegenDelay is armed by every successful ConsumeStamina; 0 disables it.
	StaminaRegenDelay float64            `yaml:"stamina_regen_delay"`
	Resistances       damage.Resistances `yaml:"resistances"`
}

// CharacterDefaults returns the baseline pools shared by non-player combatants.
func CharacterDefaults() Config {
	return Config{
		MaxHealth:        100,
		MaxStamina:       100,
		HealthRegenRate:  1,
		StaminaRegenRate: 15,
	}
}

// PlayerDefaults returns the player pools: character baseline plus Ki and the
// post-spend stamina delay.
func PlayerDefaults() Config {
	c := CharacterDefaults()
	c.MaxEnergy = 50
	c.EnergyRegenRate = 3
	c.StaminaRegenDelay = 1
	return c
}

// EnemyDefaults returns the pools for a regular enemy. Enemies do not regenerate.
func EnemyDefaults() Config {
	return Config{
		MaxHealth:  50,
		MaxStamina: 50,
	}
}

// BossDefaults returns the pools for a boss.
func BossDefaults() Config {
	c := CharacterDefaults()
	c.MaxHealth = 1000
	c.MaxStamina = 200
	return c
}

// Vitals is the pool model for one combatant.
//
// Invariant: 0 <= current <= max for every pool.
// Invariant: once dead, no operation changes health and Died is never published again.
//
// Vitals is not safe for concurrent use; the simulation serialises access.
type Vitals struct {
	id   string
	sink event.Sink

	health, maxHealth   float64
	stamina, maxStamina float64
	energy, maxEnergy   float64

	healthRegen, staminaRegen, energyRegen float64
	healthScale, staminaScale, energyScale float64

	staminaDelay      float64
	staminaDelayTimer float64

	resist       damage.Resistances
	defenseBonus float64

	dead        bool
	lastSource  string
	onDamaged   []func(amount float64, source string)
	beforeDeath []func(source string)
}

// New creates full pools for id from cfg.
//
// Precondition: cfg.MaxHealth > 0; sink may be nil to discard events.
// Postcondition: every pool is at its maximum and the combatant is alive.
func New(id string, cfg Config, sink event.Sink) *Vitals {
	if sink == nil {
		sink = event.Discard
	}
	resist := make(damage.Resistances, len(cfg.Resistances))
	for k, r := range cfg.Resistances {
		resist[k] = r
	}
	return &Vitals{
		id:           id,
		sink:         sink,
		health:       math.Max(cfg.MaxHealth, 0),
		maxHealth:    math.Max(cfg.MaxHealth, 0),
		stamina:      math.Max(cfg.MaxStamina, 0),
		maxStamina:   math.Max(cfg.MaxStamina, 0),
		energy:       math.Max(cfg.MaxEnergy, 0),
		maxEnergy:    math.Max(cfg.MaxEnergy, 0),
		healthRegen:  cfg.HealthRegenRate,
		staminaRegen: cfg.StaminaRegenRate,
		energyRegen:  cfg.EnergyRegenRate,
		healthScale:  1,
		staminaScale: 1,
		energyScale:  1,
		staminaDelay: cfg.StaminaRegenDelay,
		resist:       resist,
	}
}

func (v *Vitals) ID() string { return v.id }
func (v *Vitals) Health() float64 { return v.health }
func (v *Vitals) MaxHealth() float64 { return v.maxHealth }
func (v *Vitals) Stamina() float64 { return v.stamina }
func (v *Vitals) MaxStamina() float64 { return v.maxStamina }
func (v *Vitals) Energy() float64 { return v.energy }
func (v *Vitals) MaxEnergy() float64 { return v.maxEnergy }
func (v *Vitals) IsAlive() bool { return !v.dead }
func (v *Vitals) IsDead() bool { return v.dead }
func (v *Vitals) LastDamageSource() string { return v.lastSource }

// HealthFraction returns health/maxHealth, or 0 when maxHealth is 0.
func (v *Vitals) HealthFraction() float64 {
	if v.maxHealth <= 0 {
		return 0
	}
	return v.health / v.maxHealth
}

// StaminaRegenDelayRemaining reports the seconds left before stamina regenerates.
func (v *Vitals) StaminaRegenDelayRemaining() float64 { return v.staminaDelayTimer }

// OnDamaged registers fn to run on every hit that lands, with the
// post-mitigation amount, before a killing blow's death transition.
func (v *Vitals) OnDamaged(fn func(amount float64, source string)) {
	v.onDamaged = append(v.onDamaged, fn)
}

// OnBeforeDeath registers fn to run after the death transition but before the
// Died notification is published. source is the entity that dealt the killing blow.
func (v *Vitals) OnBeforeDeath(fn func(source string)) {
	v.beforeDeath = append(v.beforeDeath, fn)
}

// Heal restores amount health.
//
// Postcondition: no-op if amount <= 0 or dead; otherwise health is clamped to
// max and HealthChanged is published.
func (v *Vitals) Heal(amount float64) {
	if amount <= 0 || v.dead {
		return
	}
	v.health = math.Min(v.health+amount, v.maxHealth)
	v.publishHealth()
}

// RestoreStamina adds amount stamina, clamped to max. No-op if amount <= 0.
func (v *Vitals) RestoreStamina(amount float64) {
	if amount <= 0 {
		return
	}
	v.stamina = math.Min(v.stamina+amount, v.maxStamina)
	v.publishStamina()
}

// ConsumeStamina spends amount stamina.
//
// Postcondition: returns false and leaves state unchanged if stamina < amount.
// On success the stamina regeneration delay is armed.
func (v *Vitals) ConsumeStamina(amount float64) bool {
	if amount <= 0 {
		return true
	}
	if v.stamina < amount {
		return false
	}
	v.stamina = math.Max(0, v.stamina-amount)
	v.staminaDelayTimer = v.staminaDelay
	v.publishStamina()
	return true
}

// RestoreEnergy adds amount energy, clamped to max. No-op if amount <= 0.
func (v *Vitals) RestoreEnergy(amount float64) {
	if amount <= 0 {
		return
	}
	v.energy = math.Min(v.energy+amount, v.maxEnergy)
	v.publishEnergy()
}

// ConsumeEnergy spends amount energy. Returns false without mutation if energy < amount.
func (v *Vitals) ConsumeEnergy(amount float64) bool {
	if amount <= 0 {
		return true
	}
	if v.energy < amount {
		return false
	}
	v.energy = math.Max(0, v.energy-amount)
	v.publishEnergy()
	return true
}

// ApplyDamage mitigates amount by the resistance for kind and subtracts it from health.
//
// Postcondition: returns 0 with no mutation if dead or amount <= 0. Otherwise
// returns the post-mitigation damage, publishes HealthChanged and DamageTaken,
// runs the OnDamaged callbacks and performs the death transition if health
// reached 0.
func (v *Vitals) ApplyDamage(amount float64, kind damage.Kind, source string) float64 {
	if v.dead || amount <= 0 {
		return 0
	}
	final := damage.Mitigate(amount, v.Resistance(kind))
	v.health = math.Max(0, v.health-final)
	v.lastSource = source
	v.publishHealth()
	v.sink.Publish(event.Event{
		Kind:       event.DamageTaken,
		Subject:    v.id,
		Source:     source,
		Amount:     final,
		DamageKind: kind,
	})
	for _, fn := range v.onDamaged {
		fn(final, source)
	}
	if v.health <= 0 {
		v.die(source)
	}
	return final
}

// Resistance returns the effective, clamped resistance for kind.
func (v *Vitals) Resistance(kind damage.Kind) float64 {
	return v.resist.Of(kind, v.defenseBonus)
}

// SetResistance stores the raw resistance for kind. The clamp applies on use.
func (v *Vitals) SetResistance(kind damage.Kind, r float64) {
	v.resist[kind] = r
}

// SetDefenseBonus sets a flat resistance bonus added to every kind before clamping.
func (v *Vitals) SetDefenseBonus(bonus float64) {
	v.defenseBonus = bonus
}

// SetMaxHealth changes the health ceiling, clamping current health into range.
func (v *Vitals) SetMaxHealth(maxHealth float64) {
	v.maxHealth = math.Max(maxHealth, 0)
	v.health = math.Min(v.health, v.maxHealth)
	v.publishHealth()
}

// SetMaxStamina changes the stamina ceiling, clamping current stamina into range.
func (v *Vitals) SetMaxStamina(maxStamina float64) {
	v.maxStamina = math.Max(maxStamina, 0)
	v.stamina = math.Min(v.stamina, v.maxStamina)
	v.publishStamina()
}

// SetRegenScale multiplies the configured regeneration rates. 1 restores normal regen.
func (v *Vitals) SetRegenScale(health, stamina, energy float64) {
	v.healthScale, v.staminaScale, v.energyScale = health, stamina, energy
}

// Tick advances regeneration by dt seconds. Dead combatants do not regenerate.
func (v *Vitals) Tick(dt float64) {
	if v.dead || dt <= 0 {
		return
	}
	if v.health < v.maxHealth && v.healthRegen > 0 {
		v.Heal(v.healthRegen * v.healthScale * dt)
	}
	if v.staminaDelayTimer > 0 {
		v.staminaDelayTimer = math.Max(0, v.staminaDelayTimer-dt)
	} else if v.stamina < v.maxStamina && v.staminaRegen > 0 {
		v.RestoreStamina(v.staminaRegen * v.staminaScale * dt)
	}
	if v.energy < v.maxEnergy && v.energyRegen > 0 {
		v.RestoreEnergy(v.energyRegen * v.energyScale * dt)
	}
}

func (v *Vitals) die(source string) {
	if v.dead {
		return
	}
	v.dead = true
	for _, fn := range v.beforeDeath {
		fn(source)
	}
	v.sink.Publish(event.Event{Kind: event.Died, Subject: v.id, Source: source})
}

func (v *Vitals) publishHealth() {
	v.sink.Publish(event.Event{Kind: event.HealthChanged, Subject: v.id, Current: v.health, Max: v.maxHealth})
}

func (v *Vitals) publishStamina() {
	v.sink.Publish(event.Event{Kind: event.StaminaChanged, Subject: v.id, Current: v.stamina, Max: v.maxStamina})
}

func (v *Vitals) publishEnergy() {
	v.sink.Publish(event.Event{Kind: event.EnergyChanged, Subject: v.id, Current: v.energy, Max: v.maxEnergy})
}
