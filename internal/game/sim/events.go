package sim

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/game/combat"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/loot"
)

// subscribeBookkeeping installs the handlers that turn combat outcomes into
// honor, loot and respawns. They run during settle with the world lock held.
// Challenge counters are kept at hit time instead, see AddPlayer and
// spawnEnemyLocked.
func (w *World) subscribeBookkeeping() {
	w.bus.Subscribe(w.onDied, event.Died)
	w.bus.Subscribe(w.logOutcome,
		event.WeaponBroken, event.PhaseChanged, event.Enraged, event.EncounterEnded,
		event.BossDefeated, event.ChallengeCompleted,
	)
}

func (w *World) onDied(ev event.Event) {
	e, ok := w.entities[ev.Subject]
	if !ok {
		return
	}
	w.logger.Info("combatant died",
		zap.String("id", ev.Subject),
		zap.Stringer("kind", e.kind()),
		zap.String("killer", ev.Source),
	)
	killer := w.entities[ev.Source]
	if killer != nil && killer.kind() != combat.KindPlayer {
		killer = nil
	}

	switch e.kind() {
	case combat.KindPlayer:
		e.progress.OnDeath()
		e.progress.StopMeditation()
		if enc := w.encounterOf(e.id()); enc != nil {
			enc.EndEncounter(false)
		}
	case combat.KindEnemy:
		def := e.enemyDef
		if killer != nil {
			w.grantLoot(def.LootTable, killer)
			if killer.stealth {
				killer.progress.AddHonor(def.HonorReward)
			} else {
				killer.progress.OnHonorableKill()
			}
		}
		if def.RespawnDelay > 0 && e.spawnID != "" {
			w.respawner.Schedule(def.ID, e.spawnID, def.RespawnDelay)
		}
	case combat.KindBoss:
		recipient := killer
		if recipient == nil && e.enc != nil {
			if c, ok := w.entities[e.enc.ChallengerID()]; ok && c.kind() == combat.KindPlayer {
				recipient = c
			}
		}
		if recipient != nil {
			w.grantLoot(e.bossDef.LootTable, recipient)
		}
	}
}

// grantLoot rolls tableID into the player's backpack. Stacks that do not fit
// are logged and lost.
func (w *World) grantLoot(tableID string, to *entity) {
	if tableID == "" || to.pack == nil {
		return
	}
	t, err := w.catalog.Loot.Get(tableID)
	if err != nil {
		w.logger.Warn("loot table missing", zap.String("table", tableID), zap.Error(err))
		return
	}
	refused := loot.Grant(loot.Generate(t, w.roller), to.pack, to.id(), w.bus)
	for _, d := range refused {
		w.logger.Info("loot dropped on the ground",
			zap.String("player", to.id()),
			zap.String("item", d.Item),
			zap.Int("quantity", d.Quantity),
		)
	}
}

func (w *World) logOutcome(ev event.Event) {
	switch ev.Kind {
	case event.WeaponBroken:
		w.logger.Info("weapon broken", zap.String("weapon", ev.Subject), zap.String("owner", ev.Source))
	case event.PhaseChanged:
		w.logger.Info("boss phase changed", zap.String("boss", ev.Subject), zap.Int("phase", ev.Phase))
	case event.Enraged:
		w.logger.Info("boss enraged", zap.String("boss", ev.Subject), zap.Float64("damage_multiplier", ev.Amount))
	case event.BossDefeated:
		w.logger.Info("boss defeated", zap.String("boss", ev.Subject), zap.String("challenger", ev.Source))
	case event.ChallengeCompleted:
		w.logger.Info("challenge completed", zap.String("player", ev.Subject), zap.String("challenge", ev.Name))
	case event.EncounterEnded:
		w.logger.Info("encounter ended",
			zap.String("boss", ev.Subject),
			zap.String("challenger", ev.Source),
			zap.Bool("won", ev.Won),
			zap.String("encounter", ev.Name),
		)
	}
}
