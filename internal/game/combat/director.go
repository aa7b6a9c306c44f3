package combat

import (
	"math"

	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

// Config holds the Director tunables.
type Config struct {
	ParryWindow               float64
	BlockStaminaCost          float64
	HeavyStaminaMultiplier    float64
	HeavyCooldownMultiplier   float64
	SpecialCooldownMultiplier float64
	LockOnRange               float64
	LockOnTurnSpeed           float64

	DashCost            float64
	PowerStrikeCost     float64
	PowerStrikeCooldown float64
	SpiritArrowCost     float64
	SpiritArrowDamage   float64
	SpiritArrowSpeed    float64
	SpiritArrowLifeSpan float64
}

// DefaultConfig returns the standard tunables.
func DefaultConfig() Config {
	return Config{
		ParryWindow:               0.2,
		BlockStaminaCost:          15,
		HeavyStaminaMultiplier:    1.5,
		HeavyCooldownMultiplier:   1.5,
		SpecialCooldownMultiplier: 2.0,
		LockOnRange:               1500,
		LockOnTurnSpeed:           10,
		DashCost:                  15,
		PowerStrikeCost:           25,
		PowerStrikeCooldown:       1.0,
		SpiritArrowCost:           20,
		SpiritArrowDamage:         25,
		SpiritArrowSpeed:          3000,
		SpiritArrowLifeSpan:       5,
	}
}

// Targeting answers the spatial questions lock-on needs.
type Targeting interface {
	// NearestAlive returns the closest living combatant other than self within maxRange.
	NearestAlive(self string, maxRange float64) (string, bool)
	// IsAlive reports whether id still names a living combatant.
	IsAlive(id string) bool
	// Bearing returns the angle in radians from one combatant to another.
	Bearing(from, to string) (float64, bool)
}

// Director is the per-combatant combat state machine.
//
// States: Idle, Attacking (timed by the attack cooldown) and Blocking.
// Attacking and Blocking are mutually exclusive; each refuses to start while
// the other is active.
//
// Director is not safe for concurrent use.
type Director struct {
	cfg    Config
	owner  string
	vitals *vitals.Vitals
	sink   event.Sink

	weapon *weapon.Weapon

	attacking   bool
	attackTimer float64
	swing       weapon.SwingKind

	blocking   bool
	parryTimer float64

	targeting  Targeting
	lockTarget string
	facing     float64

	stealth          bool
	damageMultiplier float64
	damageBonus      float64
	speedMultiplier  float64

	shots   []weapon.Shot
	onParry []func()
}

// NewDirector creates an idle Director driving v.
//
// Precondition: v must not be nil; sink may be nil.
func NewDirector(v *vitals.Vitals, cfg Config, sink event.Sink) *Director {
	if sink == nil {
		sink = event.Discard
	}
	return &Director{
		cfg:              cfg,
		owner:            v.ID(),
		vitals:           v,
		sink:             sink,
		damageMultiplier: 1,
		speedMultiplier:  1,
	}
}

func (d *Director) Owner() string { return d.owner }
func (d *Director) Weapon() *weapon.Weapon { return d.weapon }
func (d *Director) IsAttacking() bool { return d.attacking }
func (d *Director) IsBlocking() bool { return d.blocking }
func (d *Director) IsParryWindowOpen() bool { return d.blocking && d.parryTimer > 0 }
func (d *Director) AttackCooldown() float64 { return d.attackTimer }
func (d *Director) CurrentSwing() weapon.SwingKind { return d.swing }
func (d *Director) SpeedMultiplier() float64 { return d.speedMultiplier }

// SetTargeting installs the spatial collaborator used by lock-on.
func (d *Director) SetTargeting(t Targeting) { d.targeting = t }

// SetStealth marks subsequent swings as stealth attacks.
func (d *Director) SetStealth(on bool) { d.stealth = on }

// OnParry registers fn to run after every successful parry.
func (d *Director) OnParry(fn func()) { d.onParry = append(d.onParry, fn) }

// Equip hands w to this combatant, unequipping any current weapon. A weapon
// held by another Director is taken from it first. Any attack or block in
// progress ends.
func (d *Director) Equip(w *weapon.Weapon) {
	d.Unequip()
	if w == nil {
		return
	}
	w.Hold(d.owner, func() {
		if d.weapon == w {
			d.Unequip()
		}
	})
	d.weapon = w
}

// Unequip releases the current weapon and returns it, or nil.
func (d *Director) Unequip() *weapon.Weapon {
	w := d.weapon
	if w == nil {
		return nil
	}
	d.endAttack()
	d.StopBlocking()
	w.CancelCharge()
	w.Drop()
	d.weapon = nil
	return w
}

func (d *Director) canStartAttack() bool {
	return d.vitals.IsAlive() && !d.attacking && !d.blocking && d.weapon != nil && !d.weapon.IsBroken()
}

// ExecuteLightAttack starts a light attack costing the weapon's stamina cost.
//
// Postcondition: returns false with no state change when attacking, blocking,
// unarmed, broken, or short of stamina.
func (d *Director) ExecuteLightAttack() bool {
	if !d.canStartAttack() {
		return false
	}
	return d.startAttack(weapon.SwingLight, d.weapon.Def().StaminaCost, 1)
}

// ExecuteHeavyAttack starts a heavy attack costing 1.5× the light stamina cost
// with a 1.5× longer cooldown.
func (d *Director) ExecuteHeavyAttack() bool {
	if !d.canStartAttack() {
		return false
	}
	cost := d.weapon.Def().StaminaCost * d.cfg.HeavyStaminaMultiplier
	return d.startAttack(weapon.SwingHeavy, cost, d.cfg.HeavyCooldownMultiplier)
}

// ExecuteSpecialAttack starts a special attack. When the weapon has a Ki cost
// the attack is gated on energy instead of stamina.
func (d *Director) ExecuteSpecialAttack() bool {
	if !d.canStartAttack() {
		return false
	}
	def := d.weapon.Def()
	if def.KiCost > 0 && d.vitals.Energy() < def.KiCost {
		return false
	}
	if d.weapon.IsRanged() {
		shot, res := d.weapon.PressSpecial()
		if res != weapon.Fired {
			return false
		}
		d.vitals.ConsumeEnergy(def.KiCost)
		d.queueShot(shot)
		d.beginCooldown(weapon.SwingSpecial, d.cfg.SpecialCooldownMultiplier)
		return true
	}
	d.vitals.ConsumeEnergy(def.KiCost)
	d.beginCooldown(weapon.SwingSpecial, d.cfg.SpecialCooldownMultiplier)
	d.weapon.BeginSwing(weapon.SwingSpecial, d.stealth)
	return true
}

func (d *Director) startAttack(kind weapon.SwingKind, staminaCost, cooldownMult float64) bool {
	if d.vitals.Stamina() < staminaCost {
		return false
	}
	if d.weapon.IsRanged() {
		var (
			shot weapon.Shot
			res  weapon.FireResult
		)
		if kind == weapon.SwingHeavy {
			shot, res = d.weapon.PressHeavy()
		} else {
			shot, res = d.weapon.PressLight()
		}
		if res == weapon.Refused {
			return false
		}
		d.vitals.ConsumeStamina(staminaCost)
		if res == weapon.Fired {
			d.queueShot(shot)
		}
		d.beginCooldown(kind, cooldownMult)
		return true
	}
	d.vitals.ConsumeStamina(staminaCost)
	d.beginCooldown(kind, cooldownMult)
	d.weapon.BeginSwing(kind, d.stealth)
	return true
}

func (d *Director) beginCooldown(kind weapon.SwingKind, mult float64) {
	d.attacking = true
	d.swing = kind
	d.attackTimer = (1 / d.weapon.Def().AttackSpeed) * mult
	d.sink.Publish(event.Event{Kind: event.AttackStarted, Subject: d.owner, Name: kind.String()})
}

func (d *Director) endAttack() {
	if !d.attacking {
		return
	}
	d.attacking = false
	d.attackTimer = 0
	if d.weapon != nil {
		d.weapon.EndSwing()
	}
	d.sink.Publish(event.Event{Kind: event.AttackEnded, Subject: d.owner, Name: d.swing.String()})
}

// ReleaseCharge fires a held ranged charge.
func (d *Director) ReleaseCharge() bool {
	if d.weapon == nil {
		return false
	}
	shot, res := d.weapon.ReleaseCharge()
	if res != weapon.Fired {
		return false
	}
	d.queueShot(shot)
	return true
}

func (d *Director) queueShot(s weapon.Shot) {
	s.Damage *= d.OutgoingMultiplier()
	s.FirerID = d.owner
	d.shots = append(d.shots, s)
}

// TakeShots returns and clears the shots fired since the last call.
func (d *Director) TakeShots() []weapon.Shot {
	out := d.shots
	d.shots = nil
	return out
}

// StartBlocking raises the weapon and opens the parry window.
//
// Postcondition: refused while attacking, unarmed, dead, or when the weapon
// cannot block.
func (d *Director) StartBlocking() bool {
	if d.blocking || d.attacking || d.weapon == nil || !d.vitals.IsAlive() {
		return false
	}
	if !d.weapon.StartBlock() {
		return false
	}
	d.blocking = true
	d.parryTimer = d.cfg.ParryWindow
	return true
}

// StopBlocking lowers the guard and closes the parry window.
func (d *Director) StopBlocking() {
	if !d.blocking {
		return
	}
	d.blocking = false
	d.parryTimer = 0
	if d.weapon != nil {
		d.weapon.StopBlock()
	}
}

// ReceiveDamage applies incoming damage through the guard.
//
// Inside the parry window the hit is negated entirely, one ParrySuccessful
// event fires and the parry callbacks run. Outside it a raised guard always
// reduces the hit by the weapon's BlockReduction and spends BlockStaminaCost
// when that much stamina is left.
//
// Postcondition: returns the health actually removed.
func (d *Director) ReceiveDamage(amount float64, kind damage.Kind, source string) float64 {
	if amount <= 0 || !d.vitals.IsAlive() {
		return 0
	}
	if d.blocking {
		if d.parryTimer > 0 {
			d.sink.Publish(event.Event{Kind: event.ParrySuccessful, Subject: d.owner, Source: source, Amount: amount, DamageKind: kind})
			for _, fn := range d.onParry {
				fn()
			}
			return 0
		}
		// an exhausted guard still holds; the stamina spend is skipped
		d.vitals.ConsumeStamina(d.cfg.BlockStaminaCost)
		reduced := amount * (1 - d.weapon.Def().BlockReduction)
		d.sink.Publish(event.Event{Kind: event.Blocked, Subject: d.owner, Source: source, Amount: amount - reduced, DamageKind: kind})
		return d.vitals.ApplyDamage(reduced, kind, source)
	}
	return d.vitals.ApplyDamage(amount, kind, source)
}

// SetDamageMultiplier sets the persistent outgoing damage factor, used by enrage.
func (d *Director) SetDamageMultiplier(m float64) { d.damageMultiplier = m }

// SetDamageBonus sets the additive outgoing damage fraction, used by food.
func (d *Director) SetDamageBonus(b float64) { d.damageBonus = b }

// SetSpeedMultiplier sets the movement speed factor.
func (d *Director) SetSpeedMultiplier(m float64) { d.speedMultiplier = m }

// OutgoingMultiplier is the factor applied to every hit this combatant lands.
func (d *Director) OutgoingMultiplier() float64 {
	return d.damageMultiplier * (1 + d.damageBonus)
}

// Tick advances the parry window, attack cooldown, weapon timers and lock-on.
func (d *Director) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	if d.parryTimer > 0 {
		d.parryTimer = max(0, d.parryTimer-dt)
	}
	if d.attacking {
		d.attackTimer -= dt
		if d.attackTimer <= 0 {
			d.endAttack()
		}
	}
	if d.weapon != nil {
		d.weapon.Tick(dt)
	}
	d.tickLockOn(dt)
}

// Facing returns the current facing angle in radians.
func (d *Director) Facing() float64 { return d.facing }

// SetFacing overrides the facing angle, normalized into [-π, π).
func (d *Director) SetFacing(angle float64) { d.facing = normalizeAngle(angle) }

func normalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
