package food

import (
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
)

// MaxBuffSlots is the number of food buffs that may be active at once.
const MaxBuffSlots = 3

// ActiveBuff tracks one eaten food's remaining buff time.
type ActiveBuff struct {
	Def       *Def
	Remaining float64
}

// Bonuses is the sum of every active buff's lasting effects.
type Bonuses struct {
	MaxHealth  float64
	MaxStamina float64
	Damage     float64
	Defense    float64
}

// DamageBooster receives the summed damage bonus fraction.
type DamageBooster interface {
	SetDamageBonus(b float64)
}

// Buffs tracks the food buffs on one combatant and keeps the combatant's
// pools and multipliers in step with them.
// It is not safe for concurrent use; the caller must serialise access.
type Buffs struct {
	v       *vitals.Vitals
	damage  DamageBooster
	sink    event.Sink
	active  []*ActiveBuff
	applied Bonuses
}

// NewBuffs creates an empty buff set for v. damage may be nil.
//
// Precondition: v must not be nil.
func NewBuffs(v *vitals.Vitals, damage DamageBooster, sink event.Sink) *Buffs {
	if sink == nil {
		sink = event.Discard
	}
	return &Buffs{v: v, damage: damage, sink: sink}
}

// Consume eats def: health, stamina and Ki are restored immediately and a
// positive BuffDuration adds a buff.
//
// Precondition: def must not be nil.
// Postcondition: returns false with no effect when every slot is taken or
// the eater is dead.
func (b *Buffs) Consume(def *Def) bool {
	if len(b.active) >= MaxBuffSlots || b.v.IsDead() {
		return false
	}
	b.v.Heal(def.HealthRestore)
	b.v.RestoreStamina(def.StaminaRestore)
	b.v.RestoreEnergy(def.KiRestore)
	if def.BuffDuration > 0 {
		b.active = append(b.active, &ActiveBuff{Def: def, Remaining: def.BuffDuration})
		b.recalculate()
	}
	b.sink.Publish(event.Event{Kind: event.FoodConsumed, Subject: b.v.ID(), Name: def.ID})
	return true
}

// Tick counts down every buff, applies per-second regeneration and removes
// expired buffs.
//
// Postcondition: the returned IDs are the foods whose buffs expired this tick.
func (b *Buffs) Tick(dt float64) []string {
	if dt <= 0 || len(b.active) == 0 {
		return nil
	}
	var expired []string
	kept := b.active[:0]
	for _, ab := range b.active {
		ab.Remaining -= dt
		if ab.Def.HealthRegenRate > 0 {
			b.v.Heal(ab.Def.HealthRegenRate * dt)
		}
		if ab.Def.StaminaRegenRate > 0 {
			b.v.RestoreStamina(ab.Def.StaminaRegenRate * dt)
		}
		if ab.Remaining <= 0 {
			expired = append(expired, ab.Def.ID)
			continue
		}
		kept = append(kept, ab)
	}
	clear(b.active[len(kept):])
	b.active = kept
	if len(expired) > 0 {
		b.recalculate()
		for _, id := range expired {
			b.sink.Publish(event.Event{Kind: event.BuffExpired, Subject: b.v.ID(), Name: id})
		}
	}
	return expired
}

// recalculate removes the previously applied bonuses and applies the new sum.
func (b *Buffs) recalculate() {
	var next Bonuses
	for _, ab := range b.active {
		next.MaxHealth += ab.Def.MaxHealthBonus
		next.MaxStamina += ab.Def.MaxStaminaBonus
		next.Damage += ab.Def.DamageBonus
		next.Defense += ab.Def.DefenseBonus
	}
	b.v.SetMaxHealth(b.v.MaxHealth() - b.applied.MaxHealth + next.MaxHealth)
	b.v.SetMaxStamina(b.v.MaxStamina() - b.applied.MaxStamina + next.MaxStamina)
	b.v.SetDefenseBonus(next.Defense)
	if b.damage != nil {
		b.damage.SetDamageBonus(next.Damage)
	}
	b.applied = next
}

// Bonuses returns the currently applied sum.
func (b *Buffs) Bonuses() Bonuses { return b.applied }

// Len returns the number of active buffs.
func (b *Buffs) Len() int { return len(b.active) }

// All returns copies of the active buffs in the order they were eaten.
func (b *Buffs) All() []ActiveBuff {
	out := make([]ActiveBuff, len(b.active))
	for i, ab := range b.active {
		out[i] = *ab
	}
	return out
}
