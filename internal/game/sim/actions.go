package sim

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/inventory"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

// Action names a combat input.
type Action string

const (
	ActionLight       Action = "light"
	ActionHeavy       Action = "heavy"
	ActionSpecial     Action = "special"
	ActionRelease     Action = "release"
	ActionBlock       Action = "block"
	ActionUnblock     Action = "unblock"
	ActionLockOn      Action = "lock_on"
	ActionClearLock   Action = "clear_lock"
	ActionDash        Action = "dash"
	ActionPowerStrike Action = "power_strike"
	ActionSpiritArrow Action = "spirit_arrow"
)

// ParseAction maps a wire name onto an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionLight, ActionHeavy, ActionSpecial, ActionRelease, ActionBlock, ActionUnblock,
		ActionLockOn, ActionClearLock, ActionDash, ActionPowerStrike, ActionSpiritArrow:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Perform applies a combat input to id.
//
// Precondition: id names an armed combatant.
// Postcondition: returns false with a nil error when the combatant refused
// the action (cooldown, stamina, energy, dead).
func (w *World) Perform(id string, a Action) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookup("performing", id)
	if err != nil {
		return false, err
	}
	d := e.director()
	if d == nil {
		return false, fmt.Errorf("performing %q: %w: no director", id, ErrWrongKind)
	}
	if a != ActionBlock && a != ActionUnblock && e.progress != nil {
		e.progress.StopMeditation()
	}

	var ok bool
	switch a {
	case ActionLight:
		ok = d.ExecuteLightAttack()
	case ActionHeavy:
		ok = d.ExecuteHeavyAttack()
	case ActionSpecial:
		ok = d.ExecuteSpecialAttack()
	case ActionRelease:
		ok = d.ReleaseCharge()
	case ActionBlock:
		ok = d.StartBlocking()
	case ActionUnblock:
		d.StopBlocking()
		ok = true
	case ActionLockOn:
		ok = d.LockOn()
	case ActionClearLock:
		d.ClearLockOn()
		ok = true
	case ActionDash:
		if ok = d.KiDash(); ok {
			w.dash(e)
		}
	case ActionPowerStrike:
		ok = d.KiPowerStrike()
	case ActionSpiritArrow:
		ok = d.KiSpiritArrow()
	default:
		return false, fmt.Errorf("performing %q: unknown action %q", id, a)
	}
	w.settle()
	return ok, nil
}

func (w *World) dash(e *entity) {
	pos, ok := w.index.Position(e.id())
	if !ok {
		return
	}
	w.moveLocked(e, pos.Add(cp.ForAngle(e.director().Facing()).Mult(w.cfg.DashDistance)))
}

// Equip arms id with a fresh instance of weaponDefID. An empty ID unequips.
func (w *World) Equip(id, weaponDefID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookup("equipping", id)
	if err != nil {
		return false, err
	}
	d := e.director()
	if d == nil {
		return false, fmt.Errorf("equipping %q: %w: no director", id, ErrWrongKind)
	}
	if d.IsAttacking() {
		return false, nil
	}
	if weaponDefID == "" {
		return d.Unequip() != nil, nil
	}
	def, ok := w.catalog.Weapons.Get(weaponDefID)
	if !ok {
		return false, fmt.Errorf("equipping %q: %w: %q", id, weapon.ErrUnknownWeapon, weaponDefID)
	}
	d.Equip(weapon.New(def, w.bus))
	w.settle()
	return true, nil
}

// Eat consumes one foodID from the player's backpack.
//
// Postcondition: returns false when the backpack holds none, every buff slot
// is taken or the player is dead. The item is only removed on success.
func (w *World) Eat(id, foodID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookupPlayer("eating", id)
	if err != nil {
		return false, err
	}
	def, err := w.catalog.Foods.Get(foodID)
	if err != nil {
		return false, fmt.Errorf("eating %q: %w", id, err)
	}
	cost := map[string]int{foodID: 1}
	if !e.pack.HasResources(cost) {
		return false, nil
	}
	if !e.buffs.Consume(def) {
		return false, nil
	}
	e.pack.ConsumeResources(cost)
	w.settle()
	return true, nil
}

// Give adds quantity of itemID to the player's backpack.
func (w *World) Give(id, itemID string, quantity int) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookupPlayer("giving", id)
	if err != nil {
		return false, err
	}
	return e.pack.AddItem(itemID, quantity), nil
}

// Backpack returns the player's inventory.
func (w *World) Backpack(id string) ([]inventory.ItemInstance, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookupPlayer("listing backpack of", id)
	if err != nil {
		return nil, err
	}
	return e.pack.Items(), nil
}

// Repair restores the player's weapon, paying from the backpack.
func (w *World) Repair(id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookupPlayer("repairing", id)
	if err != nil {
		return false, err
	}
	wp := e.weapon()
	if wp == nil {
		return false, nil
	}
	return inventory.RepairWeapon(wp, e.pack), nil
}

// Meditate starts or stops meditation for the player.
func (w *World) Meditate(id string, on bool) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookupPlayer("meditating", id)
	if err != nil {
		return false, err
	}
	if !on {
		e.progress.StopMeditation()
		return true, nil
	}
	if e.director().IsAttacking() {
		return false, nil
	}
	return e.progress.StartMeditation(), nil
}

// SetStealth marks whether id's attacks are sneak attacks.
func (w *World) SetStealth(id string, on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookup("stealthing", id)
	if err != nil {
		return err
	}
	e.stealth = on
	if d := e.director(); d != nil {
		d.SetStealth(on)
	}
	return nil
}

// SetChallenge arms challenge c for the player's next boss fight.
func (w *World) SetChallenge(id string, c boss.Challenge) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookupPlayer("setting challenge for", id)
	if err != nil {
		return err
	}
	e.progress.SetChallenge(c)
	return nil
}

// StartEncounter begins the fight between bossID and playerID. The player's
// armed challenge carries over to the encounter.
//
// Postcondition: returns false when the encounter is not Inactive, the boss
// is dead or the player is dead.
func (w *World) StartEncounter(bossID, playerID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, err := w.lookup("starting encounter with", bossID)
	if err != nil {
		return false, err
	}
	if b.enc == nil {
		return false, fmt.Errorf("starting encounter with %q: %w: %s", bossID, ErrWrongKind, b.kind())
	}
	p, err := w.lookupPlayer("starting encounter for", playerID)
	if err != nil {
		return false, err
	}
	if !p.alive() || w.encounterOf(playerID) != nil {
		return false, nil
	}
	b.enc.SetChallenge(p.progress.Challenge())
	ok := b.enc.StartEncounter(p.progress)
	if ok {
		w.logger.Info("encounter started",
			zap.String("boss", bossID),
			zap.String("challenger", playerID),
			zap.String("encounter", b.enc.ID()),
			zap.String("challenge", string(b.enc.Challenge())),
		)
	}
	w.settle()
	return ok, nil
}

// ResetBoss returns an ended encounter to Inactive, revives the boss and
// moves it back to where it spawned.
func (w *World) ResetBoss(bossID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, err := w.lookup("resetting", bossID)
	if err != nil {
		return false, err
	}
	if b.enc == nil {
		return false, fmt.Errorf("resetting %q: %w: %s", bossID, ErrWrongKind, b.kind())
	}
	if !b.enc.Reset() {
		return false, nil
	}
	revive(b.c.Vitals())
	if d := b.director(); d != nil {
		d.ClearLockOn()
		d.SetDamageMultiplier(1)
		d.SetSpeedMultiplier(1)
	}
	w.index.Move(bossID, b.spawnPos)
	w.settle()
	return true, nil
}

// RevivePlayer restores a dead player to full pools at pos.
func (w *World) RevivePlayer(id string, pos cp.Vector) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.lookupPlayer("reviving", id)
	if err != nil {
		return false, err
	}
	if e.alive() {
		return false, nil
	}
	revive(e.c.Vitals())
	w.index.Move(id, pos)
	w.settle()
	return true, nil
}

func revive(v *vitals.Vitals) {
	s := v.Snapshot()
	s.Health, s.Stamina, s.Energy = s.MaxHealth, s.MaxStamina, s.MaxEnergy
	s.Dead = false
	v.Restore(s)
}
