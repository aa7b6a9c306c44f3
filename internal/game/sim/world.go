// Package sim owns the simulation world: the combatant roster, the fixed
// per-tick update pass and the bookkeeping that follows combat outcomes
// (honor, loot, minion kills, respawns).
package sim

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/content"
	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/combat"
	"github.com/cory-johannsen/yomi/internal/game/dice"
	"github.com/cory-johannsen/yomi/internal/game/enemy"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/food"
	"github.com/cory-johannsen/yomi/internal/game/inventory"
	"github.com/cory-johannsen/yomi/internal/game/player"
	"github.com/cory-johannsen/yomi/internal/game/projectile"
	"github.com/cory-johannsen/yomi/internal/game/spatial"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

var (
	// ErrDuplicateID is returned when adding a combatant whose ID is taken.
	ErrDuplicateID = errors.New("combatant id already in use")
	// ErrUnknownCombatant is returned when an ID names no combatant.
	ErrUnknownCombatant = errors.New("unknown combatant")
	// ErrWrongKind is returned when an operation targets the wrong kind of combatant.
	ErrWrongKind = errors.New("wrong combatant kind")
)

// Config holds the world tunables.
type Config struct {
	Combat        combat.Config
	Boss          boss.Config
	BackpackSlots int
	// DashDistance is how far a Ki dash moves a combatant along its facing.
	DashDistance float64
	// MoveSpeed is how fast enemies close on their target, in units per second.
	MoveSpeed float64
	// StickDuration is how long a sticking projectile lingers.
	StickDuration float64
	// MeleeArc is the half-angle in radians of the cone a melee swing covers.
	MeleeArc float64

	PlayerRadius float64
	EnemyRadius  float64
	BossRadius   float64
}

// DefaultConfig returns the standard world tunables.
func DefaultConfig() Config {
	return Config{
		Combat:        combat.DefaultConfig(),
		Boss:          boss.DefaultConfig(),
		BackpackSlots: 40,
		DashDistance:  300,
		MoveSpeed:     300,
		StickDuration: projectile.DefaultStickDuration,
		MeleeArc:      1.5707963267948966,
		PlayerRadius:  40,
		EnemyRadius:   40,
		BossRadius:    120,
	}
}

// entity is one roster entry. Which optional parts are set depends on kind.
type entity struct {
	c       *combat.Combatant
	radius  float64
	stealth bool

	// players
	buffs    *food.Buffs
	progress *player.Progress
	pack     *inventory.Backpack

	// enemies
	enemyDef *enemy.Def
	spawnID  string

	// spawnPos is where a boss returns on reset.
	spawnPos cp.Vector

	// bosses
	bossDef *boss.Def
	enc     *boss.Encounter
}

func (e *entity) id() string       { return e.c.ID() }
func (e *entity) kind() combat.Kind { return e.c.Kind() }
func (e *entity) alive() bool       { return e.c.IsAlive() }

func (e *entity) director() *combat.Director { return e.c.Director() }

func (e *entity) weapon() *weapon.Weapon {
	if d := e.c.Director(); d != nil {
		return d.Weapon()
	}
	return nil
}

// allied reports whether the kind fights on the players' side.
func allied(k combat.Kind) bool {
	return k == combat.KindPlayer || k == combat.KindCompanion
}

// World is the simulation. Every exported method takes the world lock, so
// the tick pass, player actions and debug reads never interleave.
type World struct {
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger

	catalog   *content.Catalog
	bus       *event.Bus
	index     *spatial.Index
	resolver  *projectile.Resolver
	roller    *dice.Roller
	respawner *enemy.Respawner
	hooksFor  func(*boss.Def) boss.Hooks

	entities map[string]*entity
	order    []string
	// spawnPoints remembers where each enemy spawn ID first appeared.
	spawnPoints map[string]cp.Vector
	// pendingHooks holds boss hook calls deferred until the current
	// operation has finished mutating the world.
	pendingHooks []func()

	elapsed float64
	ticks   uint64
	spawned uint64
}

// New creates an empty World using catalog for definitions.
//
// Precondition: catalog and roller must be non-nil; logger may be nil.
// Postcondition: Returns a World with no combatants.
func New(cfg Config, catalog *content.Catalog, roller *dice.Roller, logger *zap.Logger) *World {
	if catalog == nil {
		panic("sim.New: catalog must not be nil")
	}
	if roller == nil {
		panic("sim.New: roller must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &World{
		cfg:       cfg,
		logger:    logger,
		catalog:   catalog,
		bus:       event.NewBus(),
		index:     spatial.NewIndex(),
		roller:    roller,
		respawner: enemy.NewRespawner(),
		entities:  make(map[string]*entity),

		spawnPoints: make(map[string]cp.Vector),
	}
	w.resolver = projectile.NewResolver(w.index, projectileTargets{w}, w.bus)
	w.resolver.SetStickDuration(cfg.StickDuration)
	w.subscribeBookkeeping()
	return w
}

// SetHooksFactory installs the function that supplies encounter hooks for
// each boss spawned afterwards. nil disables hooks.
func (w *World) SetHooksFactory(fn func(*boss.Def) boss.Hooks) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooksFor = fn
}

// SetCatalog swaps in a new generation of definitions. Combatants already
// spawned keep the definitions they were built from.
//
// Precondition: c must not be nil.
func (w *World) SetCatalog(c *content.Catalog) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.catalog = c
}

// Subscribe registers fn for the given kinds (all kinds when none are given).
// Handlers run inside the tick pass with the world lock held; they must not
// call back into the World.
func (w *World) Subscribe(fn event.Handler, kinds ...event.Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bus.Subscribe(fn, kinds...)
}

// Len returns the number of combatants on the roster, dead ones included.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entities)
}

// Elapsed returns the simulated seconds since the world was created.
func (w *World) Elapsed() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.elapsed
}

// AddPlayer spawns a player at pos with a fresh backpack and progression.
//
// Postcondition: returns ErrDuplicateID if id is taken.
func (w *World) AddPlayer(id string, pos cp.Vector) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; ok {
		return fmt.Errorf("adding player %q: %w", id, ErrDuplicateID)
	}
	v := vitals.New(id, vitals.PlayerDefaults(), w.bus)
	d := w.newDirector(v)
	e := &entity{
		c:        combat.NewCombatant(combat.KindPlayer, v, d),
		radius:   w.cfg.PlayerRadius,
		progress: player.New(id, v, w.bus),
		pack:     inventory.NewBackpack(w.cfg.BackpackSlots, inventory.DefaultMaxStack),
	}
	e.buffs = food.NewBuffs(v, d, w.bus)
	d.OnParry(e.progress.OnParry)
	// counted at hit time: a boss kill later in the same tick ends the encounter
	v.OnDamaged(func(amount float64, _ string) {
		if enc := w.encounterOf(id); enc != nil {
			enc.RecordChallengerDamage(amount)
		}
	})
	w.insert(e, pos)
	w.logger.Info("player joined", zap.String("player", id))
	return nil
}

// AddCompanion spawns an allied combatant armed with weaponID, which may be empty.
func (w *World) AddCompanion(id, weaponID string, pos cp.Vector) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; ok {
		return fmt.Errorf("adding companion %q: %w", id, ErrDuplicateID)
	}
	v := vitals.New(id, vitals.CharacterDefaults(), w.bus)
	d := w.newDirector(v)
	if weaponID != "" {
		def, ok := w.catalog.Weapons.Get(weaponID)
		if !ok {
			return fmt.Errorf("adding companion %q: %w: %q", id, weapon.ErrUnknownWeapon, weaponID)
		}
		d.Equip(weapon.New(def, w.bus))
	}
	w.insert(&entity{c: combat.NewCombatant(combat.KindCompanion, v, d), radius: w.cfg.PlayerRadius}, pos)
	return nil
}

// SpawnEnemy creates an instance of enemy defID with the given id at pos.
// The position is remembered as the enemy's respawn point.
func (w *World) SpawnEnemy(defID, id string, pos cp.Vector) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.spawnEnemyLocked(defID, id, pos)
	w.settle()
	return err
}

func (w *World) spawnEnemyLocked(defID, id string, pos cp.Vector) error {
	if _, ok := w.entities[id]; ok {
		return fmt.Errorf("spawning enemy %q: %w", id, ErrDuplicateID)
	}
	def, err := w.catalog.Enemies.Get(defID)
	if err != nil {
		return fmt.Errorf("spawning enemy %q: %w", id, err)
	}
	v := vitals.New(id, def.VitalsConfig(), w.bus)
	d := w.newDirector(v)
	if def.Weapon != "" {
		wd, ok := w.catalog.Weapons.Get(def.Weapon)
		if !ok {
			return fmt.Errorf("spawning enemy %q: %w: %q", id, weapon.ErrUnknownWeapon, def.Weapon)
		}
		d.Equip(weapon.New(wd, w.bus))
	}
	v.OnBeforeDeath(func(killer string) {
		if enc := w.encounterOf(killer); enc != nil {
			enc.RecordMinionKill()
		}
	})
	w.insert(&entity{
		c:        combat.NewCombatant(combat.KindEnemy, v, d),
		radius:   w.cfg.EnemyRadius,
		enemyDef: def,
		spawnID:  id,
	}, pos)
	if _, ok := w.spawnPoints[id]; !ok {
		w.spawnPoints[id] = pos
	}
	w.logger.Debug("enemy spawned", zap.String("enemy", id), zap.String("def", defID))
	return nil
}

// SpawnBoss creates boss defID with the given id at pos, idle until an
// encounter is started.
func (w *World) SpawnBoss(defID, id string, pos cp.Vector) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; ok {
		return fmt.Errorf("spawning boss %q: %w", id, ErrDuplicateID)
	}
	def, err := w.catalog.Bosses.Get(defID)
	if err != nil {
		return fmt.Errorf("spawning boss %q: %w", id, err)
	}
	v := vitals.New(id, def.VitalsConfig(), w.bus)
	d := w.newDirector(v)
	if def.Weapon != "" {
		wd, ok := w.catalog.Weapons.Get(def.Weapon)
		if !ok {
			return fmt.Errorf("spawning boss %q: %w: %q", id, weapon.ErrUnknownWeapon, def.Weapon)
		}
		d.Equip(weapon.New(def.StrikeWeapon(wd), w.bus))
	}
	enc := boss.NewEncounter(def, w.cfg.Boss, v, d, w.bus)
	if w.hooksFor != nil {
		if h := w.hooksFor(def); h != nil {
			enc.SetHooks(deferredHooks{w: w, inner: h})
		}
	}
	w.insert(&entity{
		c:        combat.NewCombatant(combat.KindBoss, v, d),
		radius:   w.cfg.BossRadius,
		bossDef:  def,
		enc:      enc,
		spawnPos: pos,
	}, pos)
	w.logger.Info("boss spawned", zap.String("boss", id), zap.String("def", defID))
	return nil
}

// Remove takes id off the roster. An encounter id was fighting, as the boss
// or as the challenger, ends as a loss.
func (w *World) Remove(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return fmt.Errorf("removing %q: %w", id, ErrUnknownCombatant)
	}
	w.removeLocked(id)
	w.settle()
	return nil
}

// Move places id at pos. A challenger in an active encounter cannot leave
// the arena; the position is pulled back onto its edge.
func (w *World) Move(id string, pos cp.Vector) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("moving %q: %w", id, ErrUnknownCombatant)
	}
	w.moveLocked(e, pos)
	return nil
}

// Face turns id toward angle, in radians.
func (w *World) Face(id string, angle float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("turning %q: %w", id, ErrUnknownCombatant)
	}
	if d := e.director(); d != nil {
		d.SetFacing(angle)
	}
	return nil
}

// Position returns id's location.
func (w *World) Position(id string) (cp.Vector, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index.Position(id)
}

func (w *World) newDirector(v *vitals.Vitals) *combat.Director {
	d := combat.NewDirector(v, w.cfg.Combat, w.bus)
	d.SetTargeting(targeting{w: w, self: v.ID()})
	return d
}

func (w *World) insert(e *entity, pos cp.Vector) {
	id := e.id()
	w.entities[id] = e
	i := sort.SearchStrings(w.order, id)
	w.order = append(w.order, "")
	copy(w.order[i+1:], w.order[i:])
	w.order[i] = id
	w.index.Upsert(id, pos, e.radius)
}

func (w *World) removeLocked(id string) {
	if e := w.entities[id]; e != nil && e.enc != nil && e.enc.IsActive() {
		e.enc.EndEncounter(false)
	}
	if enc := w.encounterOf(id); enc != nil {
		enc.EndEncounter(false)
	}
	delete(w.entities, id)
	if i := sort.SearchStrings(w.order, id); i < len(w.order) && w.order[i] == id {
		w.order = append(w.order[:i], w.order[i+1:]...)
	}
	w.index.Remove(id)
}

func (w *World) moveLocked(e *entity, pos cp.Vector) {
	if enc := w.encounterOf(e.id()); enc != nil && enc.ArenaActive() {
		if center, ok := w.index.Position(enc.BossID()); ok {
			offset := pos.Sub(center)
			if r := enc.ArenaRadius(); offset.Length() > r {
				pos = center.Add(offset.Normalize().Mult(r))
			}
		}
	}
	w.index.Move(e.id(), pos)
}

// encounterOf returns the active encounter challenged by id, if any.
func (w *World) encounterOf(id string) *boss.Encounter {
	for _, bid := range w.order {
		if e := w.entities[bid]; e.enc != nil && e.enc.IsActive() && e.enc.ChallengerID() == id {
			return e.enc
		}
	}
	return nil
}

// lookup returns the entity for id or a wrapped ErrUnknownCombatant.
func (w *World) lookup(op, id string) (*entity, error) {
	e, ok := w.entities[id]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", op, id, ErrUnknownCombatant)
	}
	return e, nil
}

func (w *World) lookupPlayer(op, id string) (*entity, error) {
	e, err := w.lookup(op, id)
	if err != nil {
		return nil, err
	}
	if e.kind() != combat.KindPlayer {
		return nil, fmt.Errorf("%s %q: %w: %s", op, id, ErrWrongKind, e.kind())
	}
	return e, nil
}

func (w *World) hostile(a, b *entity) bool {
	return allied(a.kind()) != allied(b.kind())
}
