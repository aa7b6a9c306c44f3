package combat

import (
	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

// Ki ability names carried on AbilityUsed events.
const (
	AbilityDash        = "dash"
	AbilityPowerStrike = "power_strike"
	AbilitySpiritArrow = "spirit_arrow"
)

// KiPowerStrike spends PowerStrikeCost energy on a special-damage swing with
// a fixed cooldown.
//
// Postcondition: refused under the same gates as a melee attack or when
// energy is short.
func (d *Director) KiPowerStrike() bool {
	if !d.canStartAttack() || d.weapon.IsRanged() {
		return false
	}
	if !d.vitals.ConsumeEnergy(d.cfg.PowerStrikeCost) {
		return false
	}
	d.attacking = true
	d.swing = weapon.SwingSpecial
	d.attackTimer = d.cfg.PowerStrikeCooldown
	d.weapon.BeginSwing(weapon.SwingSpecial, d.stealth)
	d.sink.Publish(event.Event{Kind: event.AbilityUsed, Subject: d.owner, Name: AbilityPowerStrike, Amount: d.cfg.PowerStrikeCost})
	d.sink.Publish(event.Event{Kind: event.AttackStarted, Subject: d.owner, Name: weapon.SwingSpecial.String()})
	return true
}

// KiDash spends DashCost energy. Movement is resolved by the simulation.
func (d *Director) KiDash() bool {
	if !d.vitals.IsAlive() || !d.vitals.ConsumeEnergy(d.cfg.DashCost) {
		return false
	}
	d.sink.Publish(event.Event{Kind: event.AbilityUsed, Subject: d.owner, Name: AbilityDash, Amount: d.cfg.DashCost})
	return true
}

// KiSpiritArrow spends SpiritArrowCost energy and queues a Spirit projectile.
func (d *Director) KiSpiritArrow() bool {
	if !d.vitals.IsAlive() || d.blocking || !d.vitals.ConsumeEnergy(d.cfg.SpiritArrowCost) {
		return false
	}
	d.queueShot(weapon.Shot{
		Damage:     d.cfg.SpiritArrowDamage,
		Kind:       damage.Spirit,
		Speed:      d.cfg.SpiritArrowSpeed,
		LifeSpan:   d.cfg.SpiritArrowLifeSpan,
		Multiplier: 1,
	})
	d.sink.Publish(event.Event{Kind: event.AbilityUsed, Subject: d.owner, Name: AbilitySpiritArrow, Amount: d.cfg.SpiritArrowCost})
	return true
}
