package weapon

import "github.com/cory-johannsen/yomi/internal/game/damage"

// Multipliers used by the ranged attack entry points.
const (
	lightShotMultiplier = 1.0
	heavyShotMultiplier = 1.5
	minChargeMultiplier = 0.5
)

type rangedState struct {
	ammo        int
	charging    bool
	chargeTime  float64
	reloadTimer float64
}

// FireResult reports what a ranged entry point did.
type FireResult int

const (
	// Refused means nothing happened: broken, out of ammo, reloading, or not ranged.
	Refused FireResult = iota
	// Charging means a press-and-hold charge began.
	Charging
	// Fired means a Shot was produced.
	Fired
)

// Shot describes a projectile to spawn. Position and heading are the
// simulation's concern.
type Shot struct {
	Damage   float64
	Kind     damage.Kind
	Speed    float64
	LifeSpan float64
	Sticks   bool
	FirerID  string
	// Multiplier is the charge or attack-kind factor applied to damage and speed.
	Multiplier float64
}

// IsRanged reports whether this instance fires projectiles.
func (w *Weapon) IsRanged() bool { return w.ranged != nil }

// Ammo returns the current ammunition, or 0 for melee weapons.
func (w *Weapon) Ammo() int {
	if w.ranged == nil {
		return 0
	}
	return w.ranged.ammo
}

// IsCharging reports whether a charge is being held.
func (w *Weapon) IsCharging() bool { return w.ranged != nil && w.ranged.charging }

// IsReloading reports whether the reload cooldown is running.
func (w *Weapon) IsReloading() bool { return w.ranged != nil && w.ranged.reloadTimer > 0 }

// ChargeFraction returns held/MaxChargeTime in [0, 1]; 1 when MaxChargeTime is 0.
func (w *Weapon) ChargeFraction() float64 {
	if w.ranged == nil {
		return 0
	}
	if w.def.Ranged.MaxChargeTime <= 0 {
		return 1
	}
	return min(max(w.ranged.chargeTime/w.def.Ranged.MaxChargeTime, 0), 1)
}

// AddAmmo adds n rounds, clamped at MaxAmmo.
func (w *Weapon) AddAmmo(n int) {
	if w.ranged == nil || n <= 0 {
		return
	}
	w.ranged.ammo = min(w.ranged.ammo+n, w.def.Ranged.MaxAmmo)
}

func (w *Weapon) canFire() bool {
	if w.ranged == nil || w.IsBroken() || w.ranged.reloadTimer > 0 {
		return false
	}
	return !w.def.Ranged.RequiresAmmo || w.ranged.ammo > 0
}

// PressLight begins a charge on chargeable weapons, otherwise fires at 1.0×.
func (w *Weapon) PressLight() (Shot, FireResult) {
	return w.press(lightShotMultiplier)
}

// PressHeavy begins a charge on chargeable weapons, otherwise fires at 1.5×.
func (w *Weapon) PressHeavy() (Shot, FireResult) {
	return w.press(heavyShotMultiplier)
}

// PressSpecial fires immediately at the full charge multiplier.
func (w *Weapon) PressSpecial() (Shot, FireResult) {
	if !w.canFire() {
		return Shot{}, Refused
	}
	return w.fire(w.def.Ranged.ChargeMultiplier), Fired
}

func (w *Weapon) press(mult float64) (Shot, FireResult) {
	if !w.canFire() || w.ranged.charging {
		return Shot{}, Refused
	}
	if w.def.Ranged.CanCharge {
		w.ranged.charging = true
		w.ranged.chargeTime = 0
		return Shot{}, Charging
	}
	return w.fire(mult), Fired
}

// ReleaseCharge fires the held charge at lerp(0.5, ChargeMultiplier, fraction).
// The charge is cleared whether or not the shot could be fired.
func (w *Weapon) ReleaseCharge() (Shot, FireResult) {
	if !w.IsCharging() {
		return Shot{}, Refused
	}
	frac := w.ChargeFraction()
	w.ranged.charging = false
	w.ranged.chargeTime = 0
	if !w.canFire() {
		return Shot{}, Refused
	}
	mult := minChargeMultiplier + (w.def.Ranged.ChargeMultiplier-minChargeMultiplier)*frac
	return w.fire(mult), Fired
}

// CancelCharge drops a held charge without firing.
func (w *Weapon) CancelCharge() {
	if w.ranged != nil {
		w.ranged.charging = false
		w.ranged.chargeTime = 0
	}
}

func (w *Weapon) fire(mult float64) Shot {
	r := w.def.Ranged
	if r.RequiresAmmo {
		w.ranged.ammo--
	}
	shot := Shot{
		Damage:     w.CalculateDamage(false, false) * mult,
		Kind:       w.def.PrimaryKind,
		Speed:      r.ProjectileSpeed * mult,
		LifeSpan:   r.ProjectileLife,
		Sticks:     r.Sticks,
		FirerID:    w.owner,
		Multiplier: mult,
	}
	w.ReduceDurability(1)
	w.ranged.reloadTimer = r.ReloadTime
	return shot
}

func (w *Weapon) tickRanged(dt float64) {
	r := w.ranged
	if r.charging {
		r.chargeTime = min(r.chargeTime+dt, w.def.Ranged.MaxChargeTime)
	}
	if r.reloadTimer > 0 {
		r.reloadTimer = max(0, r.reloadTimer-dt)
	}
}
