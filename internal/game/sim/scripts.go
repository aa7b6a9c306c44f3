package sim

import (
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/scripting"
)

// minionOffset is how far from its anchor a script-spawned enemy appears.
const minionOffset = 150.0

// BindScripts wires the engine.combat callbacks of m to this world and
// installs m as the source of boss encounter hooks.
//
// The callbacks read and mutate the world without locking. They are only
// safe while a hook dispatched by the world is running, which always holds
// the world lock.
func (w *World) BindScripts(m *scripting.Manager) {
	m.GetCombatant = w.scriptCombatant
	m.ApplyDamage = w.scriptDamage
	m.Heal = w.scriptHeal
	m.SpawnEnemy = w.scriptSpawn
	w.SetHooksFactory(m.BossHooks)
}

func (w *World) scriptCombatant(id string) *scripting.CombatantInfo {
	e, ok := w.entities[id]
	if !ok {
		return nil
	}
	v := e.c.Vitals()
	return &scripting.CombatantInfo{
		ID:         id,
		Kind:       e.kind().String(),
		Health:     v.Health(),
		MaxHealth:  v.MaxHealth(),
		Stamina:    v.Stamina(),
		MaxStamina: v.MaxStamina(),
		Energy:     v.Energy(),
		Alive:      v.IsAlive(),
	}
}

func (w *World) scriptDamage(id string, amount float64, kind string) float64 {
	e, ok := w.entities[id]
	if !ok {
		return 0
	}
	k, err := damage.ParseKind(kind)
	if err != nil {
		k = damage.Physical
	}
	return e.c.ReceiveDamage(amount, k, "")
}

func (w *World) scriptHeal(id string, amount float64) {
	if e, ok := w.entities[id]; ok {
		e.c.Vitals().Heal(amount)
	}
}

// scriptSpawn places a one-off enemy next to nearID. Script minions never respawn.
func (w *World) scriptSpawn(defID, nearID string) (string, error) {
	var pos cp.Vector
	if nearID != "" {
		p, ok := w.index.Position(nearID)
		if !ok {
			return "", fmt.Errorf("spawning %q near %q: %w", defID, nearID, ErrUnknownCombatant)
		}
		pos = p
	}
	w.spawned++
	id := fmt.Sprintf("%s-minion-%d", defID, w.spawned)
	pos = pos.Add(cp.ForAngle(float64(w.spawned)).Mult(minionOffset))
	if err := w.spawnEnemyLocked(defID, id, pos); err != nil {
		return "", err
	}
	w.entities[id].spawnID = ""
	delete(w.spawnPoints, id)
	return id, nil
}
