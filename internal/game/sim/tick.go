package sim

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/game/combat"
)

// maxSettleRounds bounds the drain and hook loop so a script that keeps
// provoking more hooks cannot stall the tick.
const maxSettleRounds = 16

// Tick advances the world by dt seconds.
//
// Order: enemy and boss decisions, melee contact, projectile launch and
// flight, combatant timers and regeneration, food buffs, encounter phases,
// respawns, then event dispatch and deferred script hooks.
//
// Postcondition: dead enemies have left the roster.
func (w *World) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.elapsed += dt
	w.ticks++
	w.index.Sync()

	for _, id := range w.order {
		if e := w.entities[id]; e.alive() {
			w.think(e, dt)
		}
	}
	for _, id := range w.order {
		if e := w.entities[id]; e.alive() {
			w.resolveMelee(e)
		}
	}
	for _, id := range w.order {
		w.launchShots(w.entities[id])
	}
	w.resolver.Tick(dt)
	for _, id := range w.order {
		e := w.entities[id]
		e.c.Tick(dt)
		if e.buffs != nil {
			e.buffs.Tick(dt)
		}
		if e.enc != nil {
			e.enc.Tick(dt)
		}
	}
	for _, r := range w.respawner.Tick(dt) {
		pos, ok := w.spawnPoints[r.SpawnID]
		if !ok {
			continue
		}
		if err := w.spawnEnemyLocked(r.DefID, r.SpawnID, pos); err != nil {
			w.logger.Warn("respawn skipped", zap.String("spawn", r.SpawnID), zap.Error(err))
		}
	}
	w.settle()
}

// think drives enemies toward the nearest hostile they perceive and bosses
// toward their challenger.
func (w *World) think(e *entity, dt float64) {
	d := e.director()
	if d == nil || d.Weapon() == nil {
		return
	}
	switch e.kind() {
	case combat.KindEnemy:
		target := d.LockTarget()
		if !w.isAlive(target) {
			pos, ok := w.index.Position(e.id())
			if !ok {
				return
			}
			id, _, found := w.index.Nearest(pos, e.enemyDef.PerceptionRange, w.hostileTo(e))
			if !found || !d.Engage(id) {
				return
			}
			target = id
		}
		w.pursue(e, target, dt)
	case combat.KindBoss:
		if e.enc == nil || !e.enc.IsActive() {
			return
		}
		w.pursue(e, e.enc.ChallengerID(), dt)
	}
}

// pursue closes on target and attacks once it is within weapon reach.
func (w *World) pursue(e *entity, target string, dt float64) {
	t, ok := w.entities[target]
	if !ok || !t.alive() {
		return
	}
	from, ok := w.index.Position(e.id())
	if !ok {
		return
	}
	to, ok := w.index.Position(target)
	if !ok {
		return
	}
	d := e.director()
	offset := to.Sub(from)
	d.SetFacing(math.Atan2(offset.Y, offset.X))

	wp := d.Weapon()
	reach := wp.Def().Range + t.radius/2
	if dist := offset.Length(); dist > reach {
		step := min(w.cfg.MoveSpeed*d.SpeedMultiplier()*dt, dist-reach)
		w.moveLocked(e, from.Add(offset.Normalize().Mult(step)))
		return
	}

	switch {
	case wp.IsCharging():
		if wp.ChargeFraction() >= 1 {
			d.ReleaseCharge()
		}
	case d.IsAttacking():
	case e.enc != nil && e.enc.Phase() > 0:
		if !d.ExecuteHeavyAttack() {
			d.ExecuteLightAttack()
		}
	default:
		d.ExecuteLightAttack()
	}
}

// resolveMelee lands the open swing of e on every hostile inside its reach
// and in front of it.
func (w *World) resolveMelee(e *entity) {
	wp := e.weapon()
	if wp == nil || !wp.IsSensing() {
		return
	}
	pos, ok := w.index.Position(e.id())
	if !ok {
		return
	}
	facing := e.director().Facing()
	hostile := w.hostileTo(e)
	inFront := func(id string) bool {
		if !hostile(id) {
			return false
		}
		p, ok := w.index.Position(id)
		if !ok {
			return false
		}
		off := p.Sub(pos)
		if off.Length() == 0 {
			return true
		}
		return math.Abs(angleDiff(math.Atan2(off.Y, off.X), facing)) <= w.cfg.MeleeArc
	}
	scale := e.director().OutgoingMultiplier()
	for _, id := range w.index.Within(pos, wp.Def().Range, inFront) {
		if _, landed := wp.Hit(w.entities[id].c, scale); landed {
			w.logger.Debug("melee hit", zap.String("attacker", e.id()), zap.String("target", id))
		}
	}
}

// launchShots hands queued shots to the projectile resolver.
func (w *World) launchShots(e *entity) {
	d := e.director()
	if d == nil {
		return
	}
	shots := d.TakeShots()
	if len(shots) == 0 {
		return
	}
	pos, ok := w.index.Position(e.id())
	if !ok {
		return
	}
	for _, s := range shots {
		w.resolver.Spawn(s, pos, d.Facing())
	}
}

// settle dispatches queued events and deferred hooks until both are quiet,
// then removes dead enemies.
func (w *World) settle() {
	for round := 0; ; round++ {
		n := w.bus.Drain()
		hooks := w.pendingHooks
		w.pendingHooks = nil
		for _, fn := range hooks {
			fn()
		}
		if n == 0 && len(hooks) == 0 {
			break
		}
		if round >= maxSettleRounds {
			w.logger.Warn("settle round limit reached", zap.Int("pending_hooks", len(w.pendingHooks)))
			break
		}
	}
	w.reap()
}

func (w *World) reap() {
	var dead []string
	for _, id := range w.order {
		if e := w.entities[id]; e.kind() == combat.KindEnemy && !e.alive() {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		w.removeLocked(id)
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d - math.Pi
}
