package combat

import "github.com/cory-johannsen/yomi/internal/game/event"

// LockOn targets the nearest living combatant within LockOnRange.
//
// Postcondition: returns false and leaves the current lock unchanged when no
// candidate is in range or no Targeting is installed.
func (d *Director) LockOn() bool {
	if d.targeting == nil || !d.vitals.IsAlive() {
		return false
	}
	id, ok := d.targeting.NearestAlive(d.owner, d.cfg.LockOnRange)
	if !ok {
		return false
	}
	d.setLock(id)
	return true
}

// ClearLockOn drops the current lock, if any.
func (d *Director) ClearLockOn() { d.setLock("") }

// LockTarget returns the locked combatant's ID, or "" when unlocked.
func (d *Director) LockTarget() string { return d.lockTarget }

func (d *Director) setLock(id string) {
	if d.lockTarget == id {
		return
	}
	d.lockTarget = id
	d.sink.Publish(event.Event{Kind: event.LockOnChanged, Subject: d.owner, Source: id})
}

func (d *Director) tickLockOn(dt float64) {
	if d.lockTarget == "" {
		return
	}
	if d.targeting == nil || !d.targeting.IsAlive(d.lockTarget) {
		d.ClearLockOn()
		return
	}
	bearing, ok := d.targeting.Bearing(d.owner, d.lockTarget)
	if !ok {
		d.ClearLockOn()
		return
	}
	diff := normalizeAngle(bearing - d.facing)
	step := min(1, d.cfg.LockOnTurnSpeed*dt)
	d.facing = normalizeAngle(d.facing + diff*step)
}

// Engage locks onto id directly, bypassing the nearest-candidate search.
//
// Postcondition: refused for self, "" or a combatant Targeting reports dead.
func (d *Director) Engage(id string) bool {
	if id == "" || id == d.owner {
		return false
	}
	if d.targeting != nil && !d.targeting.IsAlive(id) {
		return false
	}
	d.setLock(id)
	return true
}
