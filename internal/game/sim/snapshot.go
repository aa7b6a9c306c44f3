package sim

import (
	"fmt"

	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/combat"
	"github.com/cory-johannsen/yomi/internal/game/player"
	"github.com/cory-johannsen/yomi/internal/game/projectile"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

// BuffView is one active food buff.
type BuffView struct {
	Food      string  `json:"food"`
	Remaining float64 `json:"remaining"`
}

// CombatantView is a read-only copy of one combatant's state.
type CombatantView struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	X          float64          `json:"x"`
	Y          float64          `json:"y"`
	Facing     float64          `json:"facing"`
	Vitals     vitals.Snapshot  `json:"vitals"`
	Weapon     *weapon.Snapshot `json:"weapon,omitempty"`
	LockTarget string           `json:"lock_target,omitempty"`
	Attacking  bool             `json:"attacking"`
	Blocking   bool             `json:"blocking"`
	Stealth    bool             `json:"stealth"`
	Buffs      []BuffView       `json:"buffs,omitempty"`
	Progress   *player.Snapshot `json:"progress,omitempty"`
	Encounter  *boss.Snapshot   `json:"encounter,omitempty"`
}

func (w *World) view(e *entity) CombatantView {
	v := CombatantView{
		ID:      e.id(),
		Kind:    e.kind().String(),
		Vitals:  e.c.Vitals().Snapshot(),
		Stealth: e.stealth,
	}
	if pos, ok := w.index.Position(e.id()); ok {
		v.X, v.Y = pos.X, pos.Y
	}
	if d := e.director(); d != nil {
		v.Facing = d.Facing()
		v.LockTarget = d.LockTarget()
		v.Attacking = d.IsAttacking()
		v.Blocking = d.IsBlocking()
		if wp := d.Weapon(); wp != nil {
			s := wp.Snapshot()
			v.Weapon = &s
		}
	}
	if e.buffs != nil {
		for _, b := range e.buffs.All() {
			v.Buffs = append(v.Buffs, BuffView{Food: b.Def.ID, Remaining: b.Remaining})
		}
	}
	if e.progress != nil {
		s := e.progress.Snapshot()
		v.Progress = &s
	}
	if e.enc != nil {
		s := e.enc.Snapshot()
		v.Encounter = &s
	}
	return v
}

// Combatant returns the view of id.
func (w *World) Combatant(id string) (CombatantView, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return CombatantView{}, false
	}
	return w.view(e), true
}

// Combatants returns every combatant, ordered by ID.
func (w *World) Combatants() []CombatantView {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]CombatantView, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.view(w.entities[id]))
	}
	return out
}

// Encounter returns the encounter state of the boss bossID.
func (w *World) Encounter(bossID string) (boss.Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[bossID]
	if !ok || e.enc == nil {
		return boss.Snapshot{}, false
	}
	return e.enc.Snapshot(), true
}

// Encounters returns the state of every boss encounter, ordered by boss ID.
func (w *World) Encounters() []boss.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []boss.Snapshot
	for _, id := range w.order {
		if e := w.entities[id]; e.enc != nil {
			out = append(out, e.enc.Snapshot())
		}
	}
	return out
}

// Projectiles returns every live projectile.
func (w *World) Projectiles() []projectile.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resolver.Snapshots()
}

// PlayerState is the persisted state of one player.
type PlayerState struct {
	Vitals   vitals.Snapshot
	Weapon   *weapon.Snapshot
	Progress player.Snapshot
}

// BossState is the persisted state of one boss.
type BossState struct {
	Vitals    vitals.Snapshot
	Weapon    *weapon.Snapshot
	Encounter boss.Snapshot
}

// State is everything the world persists between runs.
type State struct {
	Players []PlayerState
	Bosses  []BossState
}

// SaveState captures every player and boss. Food buffs are not persisted,
// so player pools are saved at their unbuffed ceilings.
func (w *World) SaveState() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	var s State
	for _, id := range w.order {
		e := w.entities[id]
		var ws *weapon.Snapshot
		if wp := e.weapon(); wp != nil {
			snap := wp.Snapshot()
			ws = &snap
		}
		switch e.kind() {
		case combat.KindPlayer:
			s.Players = append(s.Players, PlayerState{Vitals: baseVitals(e), Weapon: ws, Progress: e.progress.Snapshot()})
		case combat.KindBoss:
			s.Bosses = append(s.Bosses, BossState{Vitals: e.c.Vitals().Snapshot(), Weapon: ws, Encounter: e.enc.Snapshot()})
		}
	}
	return s
}

// baseVitals returns the player's pools with the food bonuses taken off.
func baseVitals(e *entity) vitals.Snapshot {
	s := e.c.Vitals().Snapshot()
	bonus := e.buffs.Bonuses()
	s.MaxHealth -= bonus.MaxHealth
	s.MaxStamina -= bonus.MaxStamina
	s.Health = min(s.Health, s.MaxHealth)
	s.Stamina = min(s.Stamina, s.MaxStamina)
	return s
}

// RestorePlayer overwrites an existing player from ps. A saved weapon whose
// definition is still known is re-equipped with its durability, combo and ammo.
// Buffs the player already has stay applied on top of the restored ceilings.
func (w *World) RestorePlayer(ps PlayerState) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookupPlayer("restoring", ps.Vitals.ID)
	if err != nil {
		return err
	}
	v := e.c.Vitals()
	v.Restore(ps.Vitals)
	if bonus := e.buffs.Bonuses(); bonus.MaxHealth != 0 || bonus.MaxStamina != 0 {
		v.SetMaxHealth(v.MaxHealth() + bonus.MaxHealth)
		v.SetMaxStamina(v.MaxStamina() + bonus.MaxStamina)
	}
	e.progress.Restore(ps.Progress)
	if err := w.restoreWeapon(e, ps.Weapon); err != nil {
		return err
	}
	w.settle()
	return nil
}

// RestoreBoss overwrites an existing boss from bs. An active encounter is
// only resumed when its challenger is on the roster; otherwise it is restored
// as ended.
func (w *World) RestoreBoss(bs BossState) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookup("restoring", bs.Vitals.ID)
	if err != nil {
		return err
	}
	if e.enc == nil {
		return fmt.Errorf("restoring %q: %w: %s", bs.Vitals.ID, ErrWrongKind, e.kind())
	}
	e.c.Vitals().Restore(bs.Vitals)
	if err := w.restoreWeapon(e, bs.Weapon); err != nil {
		return err
	}
	enc := bs.Encounter
	var challenger boss.Challenger
	if c, ok := w.entities[enc.ChallengerID]; ok && c.progress != nil {
		challenger = c.progress
	} else if enc.State == boss.Active {
		enc.State = boss.Ended
	}
	e.enc.Restore(enc, challenger)
	if challenger != nil && enc.State == boss.Active {
		e.director().Engage(challenger.ID())
	}
	w.settle()
	return nil
}

func (w *World) restoreWeapon(e *entity, ws *weapon.Snapshot) error {
	if ws == nil {
		return nil
	}
	def, ok := w.catalog.Weapons.Get(ws.DefID)
	if !ok {
		return fmt.Errorf("restoring %q: %w: %q", e.id(), weapon.ErrUnknownWeapon, ws.DefID)
	}
	if e.bossDef != nil {
		def = e.bossDef.StrikeWeapon(def)
	}
	wp := weapon.NewWithID(ws.InstanceID, def, w.bus)
	wp.Restore(*ws)
	e.director().Equip(wp)
	return nil
}
