package sim

import (
	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/spatial"
)

// targeting answers a Director's lock-on queries against the world roster.
// Lock-on only ever selects hostile combatants.
type targeting struct {
	w    *World
	self string
}

func (t targeting) NearestAlive(self string, maxRange float64) (string, bool) {
	e, ok := t.w.entities[self]
	if !ok {
		return "", false
	}
	pos, ok := t.w.index.Position(self)
	if !ok {
		return "", false
	}
	id, _, found := t.w.index.Nearest(pos, maxRange, t.w.hostileTo(e))
	return id, found
}

func (t targeting) IsAlive(id string) bool { return t.w.isAlive(id) }

func (t targeting) Bearing(from, to string) (float64, bool) { return t.w.index.Bearing(from, to) }

// projectileTargets routes projectile hits straight to vitals.
type projectileTargets struct{ w *World }

func (p projectileTargets) IsAlive(id string) bool { return p.w.isAlive(id) }

func (p projectileTargets) ApplyDamage(id string, amount float64, kind damage.Kind, source string) float64 {
	e, ok := p.w.entities[id]
	if !ok {
		return 0
	}
	return e.c.Vitals().ApplyDamage(amount, kind, source)
}

// deferredHooks queues encounter callbacks until the operation that raised
// them has finished, so scripts never observe a half-applied tick and a
// script that kills the boss cannot re-enter its own zone.
type deferredHooks struct {
	w     *World
	inner boss.Hooks
}

func (h deferredHooks) OnEncounterStart(bossID, challengerID string) {
	h.w.pendingHooks = append(h.w.pendingHooks, func() { h.inner.OnEncounterStart(bossID, challengerID) })
}

func (h deferredHooks) OnPhaseChanged(bossID string, phase int) {
	h.w.pendingHooks = append(h.w.pendingHooks, func() { h.inner.OnPhaseChanged(bossID, phase) })
}

func (h deferredHooks) OnEnraged(bossID string) {
	h.w.pendingHooks = append(h.w.pendingHooks, func() { h.inner.OnEnraged(bossID) })
}

func (h deferredHooks) OnEncounterEnd(bossID string, won bool) {
	h.w.pendingHooks = append(h.w.pendingHooks, func() { h.inner.OnEncounterEnd(bossID, won) })
}

func (w *World) isAlive(id string) bool {
	e, ok := w.entities[id]
	return ok && e.alive()
}

// hostileTo returns the spatial filter for living enemies of e.
func (w *World) hostileTo(e *entity) spatial.Accept {
	return func(id string) bool {
		o, ok := w.entities[id]
		return ok && id != e.id() && o.alive() && w.hostile(e, o)
	}
}
