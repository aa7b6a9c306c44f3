// Package combat implements the real-time melee/ranged combat core: the
// Combatant composition and the per-combatant Director state machine.
package combat

import (
	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
)

// Kind distinguishes the roles a combatant can play.
type Kind int

const (
	KindPlayer Kind = iota
	KindEnemy
	KindBoss
	KindCompanion
)

// String returns a lower-case label for the kind.
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	case KindBoss:
		return "boss"
	case KindCompanion:
		return "companion"
	default:
		return "unknown"
	}
}

// Damageable is anything that can receive damage and die.
type Damageable interface {
	ID() string
	ReceiveDamage(amount float64, kind damage.Kind, source string) float64
	IsAlive() bool
}

// Attacker is anything that can start attacks.
type Attacker interface {
	ExecuteLightAttack() bool
	ExecuteHeavyAttack() bool
	ExecuteSpecialAttack() bool
}

// Regenerating is anything advanced by the tick pass.
type Regenerating interface {
	Tick(dt float64)
}

// Combatant composes a Vitals model with an optional Director. A combatant
// without a Director can be damaged but never attacks.
type Combatant struct {
	id       string
	kind     Kind
	vitals   *vitals.Vitals
	director *Director
}

// NewCombatant builds a combatant.
//
// Precondition: v must not be nil; d may be nil and, when set, must wrap v.
func NewCombatant(kind Kind, v *vitals.Vitals, d *Director) *Combatant {
	return &Combatant{id: v.ID(), kind: kind, vitals: v, director: d}
}

func (c *Combatant) ID() string { return c.id }
func (c *Combatant) Kind() Kind { return c.kind }
func (c *Combatant) Vitals() *vitals.Vitals { return c.vitals }
func (c *Combatant) Director() *Director { return c.director }
func (c *Combatant) IsAlive() bool { return c.vitals.IsAlive() }
func (c *Combatant) CanAttack() bool { return c.director != nil }
func (c *Combatant) IsPlayer() bool { return c.kind == KindPlayer }

// Attacker returns the combatant's attack capability, if it has one.
func (c *Combatant) Attacker() (Attacker, bool) {
	if c.director == nil {
		return nil, false
	}
	return c.director, true
}

// ReceiveDamage routes incoming damage through the Director's block and parry
// handling when present, otherwise straight to the vitals.
//
// Postcondition: returns the health actually removed.
func (c *Combatant) ReceiveDamage(amount float64, kind damage.Kind, source string) float64 {
	if c.director != nil {
		return c.director.ReceiveDamage(amount, kind, source)
	}
	return c.vitals.ApplyDamage(amount, kind, source)
}

// Tick advances regeneration and, when present, the Director's timers.
func (c *Combatant) Tick(dt float64) {
	c.vitals.Tick(dt)
	if c.director != nil {
		c.director.Tick(dt)
	}
}
