package weapon

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/event"
)

// SwingKind distinguishes the attack that opened the current damage window.
type SwingKind int

const (
	SwingLight SwingKind = iota
	SwingHeavy
	SwingSpecial
)

func (k SwingKind) String() string {
	switch k {
	case SwingHeavy:
		return "heavy"
	case SwingSpecial:
		return "special"
	default:
		return "light"
	}
}

// Target is anything a swing can connect with. ReceiveDamage returns the
// damage that actually landed after blocks and resistances.
type Target interface {
	ID() string
	ReceiveDamage(amount float64, kind damage.Kind, source string) float64
}

// Weapon is a mutable weapon instance built from a Def.
//
// Invariant: 0 <= Durability() <= Def().MaxDurability.
// Invariant: 0 <= Combo() <= Def().MaxCombo.
//
// Weapon is not safe for concurrent use.
type Weapon struct {
	def        *Def
	instanceID string
	sink       event.Sink
	owner      string
	// detach takes the weapon away from whoever holds it.
	detach func()

	durability int
	combo      int
	comboTimer float64
	blocking   bool

	sensing bool
	swing   SwingKind
	stealth bool
	hitSet  map[string]struct{}

	ranged *rangedState
}

// New creates a fully repaired instance of def with a fresh instance ID.
//
// Precondition: def must have passed Validate; sink may be nil.
func New(def *Def, sink event.Sink) *Weapon {
	return NewWithID(uuid.New().String(), def, sink)
}

// NewWithID is New with a caller-chosen instance ID, used when restoring saved weapons.
func NewWithID(instanceID string, def *Def, sink event.Sink) *Weapon {
	if sink == nil {
		sink = event.Discard
	}
	w := &Weapon{
		def:        def,
		instanceID: instanceID,
		sink:       sink,
		durability: def.MaxDurability,
		hitSet:     make(map[string]struct{}),
	}
	if def.Ranged != nil {
		w.ranged = &rangedState{ammo: def.Ranged.MaxAmmo}
	}
	return w
}

func (w *Weapon) Def() *Def { return w.def }
func (w *Weapon) InstanceID() string { return w.instanceID }
func (w *Weapon) Owner() string { return w.owner }
func (w *Weapon) Durability() int { return w.durability }
func (w *Weapon) Combo() int { return w.combo }
func (w *Weapon) ComboWindow() float64 { return w.comboTimer }
func (w *Weapon) IsBlocking() bool { return w.blocking }
func (w *Weapon) IsSensing() bool { return w.sensing }
func (w *Weapon) IsBroken() bool { return w.durability <= 0 }

// SetOwner records the combatant holding the weapon. An empty owner means unequipped.
func (w *Weapon) SetOwner(id string) {
	w.owner = id
	w.EndSwing()
	w.blocking = false
}

// Hold hands the weapon to owner. A previous holder is detached first, so a
// weapon is never held twice. detach is called if another holder takes it.
func (w *Weapon) Hold(owner string, detach func()) {
	if prev := w.detach; prev != nil {
		w.detach = nil
		prev()
	}
	w.detach = detach
	w.SetOwner(owner)
}

// Drop clears the holder without calling back into it.
func (w *Weapon) Drop() {
	w.detach = nil
	w.SetOwner("")
}

// DurabilityPercent returns durability/max, or 0 when max is 0.
func (w *Weapon) DurabilityPercent() float64 {
	if w.def.MaxDurability <= 0 {
		return 0
	}
	return float64(w.durability) / float64(w.def.MaxDurability)
}

// CalculateDamage returns the outgoing damage for one hit.
//
// Heavy applies HeavyMultiplier; combo scales by (1 + combo*ComboBonusPerHit);
// stealth applies StealthMultiplier when the weapon has a stealth bonus. The
// degraded-durability penalty is applied last.
//
// Postcondition: pure; no state changes.
func (w *Weapon) CalculateDamage(isHeavy, isStealth bool) float64 {
	dmg := w.def.BaseDamage
	if isHeavy {
		dmg *= w.def.HeavyMultiplier
	}
	dmg *= 1 + float64(w.combo)*w.def.ComboBonusPerHit
	if isStealth && w.def.StealthBonus {
		dmg *= w.def.StealthMultiplier
	}
	if w.DurabilityPercent() < BrokenPenaltyThreshold {
		dmg *= DegradedDamageMultiplier
	}
	return dmg
}

// ReduceDurability removes n points, clamped at 0. Crossing into 0 publishes
// WeaponBroken exactly once per break.
func (w *Weapon) ReduceDurability(n int) {
	if n <= 0 || w.durability <= 0 {
		return
	}
	w.durability -= n
	if w.durability <= 0 {
		w.durability = 0
		w.sink.Publish(event.Event{Kind: event.WeaponBroken, Subject: w.instanceID, Source: w.owner, Name: w.def.ID})
	}
}

// Repair restores n points, clamped at MaxDurability.
func (w *Weapon) Repair(n int) {
	if n <= 0 {
		return
	}
	w.durability = min(w.durability+n, w.def.MaxDurability)
}

// IncrementCombo raises the combo (capped at MaxCombo) and rearms the combo window.
func (w *Weapon) IncrementCombo() {
	w.combo = min(w.combo+1, w.def.MaxCombo)
	w.comboTimer = w.def.ComboWindow
	w.sink.Publish(event.Event{Kind: event.ComboChanged, Subject: w.instanceID, Source: w.owner, Amount: float64(w.combo)})
}

// ResetCombo clears the combo and its window.
func (w *Weapon) ResetCombo() {
	if w.combo == 0 && w.comboTimer == 0 {
		return
	}
	w.combo = 0
	w.comboTimer = 0
	w.sink.Publish(event.Event{Kind: event.ComboChanged, Subject: w.instanceID, Source: w.owner})
}

// BeginSwing opens the damage-sensing window for a new swing.
//
// Postcondition: returns false without changes if the weapon is broken;
// otherwise the per-swing hit set is empty and sensing is active.
func (w *Weapon) BeginSwing(kind SwingKind, stealth bool) bool {
	if w.IsBroken() {
		return false
	}
	clear(w.hitSet)
	w.swing = kind
	w.stealth = stealth
	w.sensing = true
	return true
}

// EndSwing closes the damage-sensing window and forgets the swing's hits.
func (w *Weapon) EndSwing() {
	w.sensing = false
	clear(w.hitSet)
}

// StartBlock raises the weapon. Returns false if the weapon cannot block.
func (w *Weapon) StartBlock() bool {
	if !w.def.CanBlock {
		return false
	}
	w.blocking = true
	return true
}

// StopBlock lowers the weapon.
func (w *Weapon) StopBlock() { w.blocking = false }

// Hit resolves contact between the open swing and target. Each target is hit
// at most once per swing, never the owner. Primary damage is followed by the
// secondary element when the weapon has one; the weapon then loses one point
// of durability and extends its combo. scale multiplies outgoing damage.
//
// Postcondition: returns the total damage that landed and whether the hit registered.
func (w *Weapon) Hit(target Target, scale float64) (float64, bool) {
	if !w.sensing || target == nil {
		return 0, false
	}
	id := target.ID()
	if id == w.owner {
		return 0, false
	}
	if _, seen := w.hitSet[id]; seen {
		return 0, false
	}
	w.hitSet[id] = struct{}{}

	heavy := w.swing != SwingLight
	dealt := target.ReceiveDamage(w.CalculateDamage(heavy, w.stealth)*scale, w.def.PrimaryKind, w.owner)
	if w.def.SecondaryKind != damage.None && w.def.SecondaryDamage > 0 {
		dealt += target.ReceiveDamage(w.def.SecondaryDamage*scale, w.def.SecondaryKind, w.owner)
	}
	w.ReduceDurability(1)
	w.IncrementCombo()
	return dealt, true
}

// HasHit reports whether id was already struck during the open swing.
func (w *Weapon) HasHit(id string) bool {
	_, ok := w.hitSet[id]
	return ok
}

// Tick counts down the combo window and the ranged timers.
func (w *Weapon) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	if w.comboTimer > 0 {
		w.comboTimer -= dt
		if w.comboTimer <= 0 {
			w.ResetCombo()
		}
	}
	if w.ranged != nil {
		w.tickRanged(dt)
	}
}

// Snapshot is the replicated state of a weapon instance.
type Snapshot struct {
	InstanceID string `json:"instance_id"`
	DefID      string `json:"def_id"`
	Owner      string `json:"owner,omitempty"`
	Durability int    `json:"durability"`
	Combo      int    `json:"combo"`
	Ammo       int    `json:"ammo"`
}

// Snapshot returns the replicated state.
func (w *Weapon) Snapshot() Snapshot {
	s := Snapshot{
		InstanceID: w.instanceID,
		DefID:      w.def.ID,
		Owner:      w.owner,
		Durability: w.durability,
		Combo:      w.combo,
	}
	if w.ranged != nil {
		s.Ammo = w.ranged.ammo
	}
	return s
}

// Restore overwrites durability, combo and ammo from s, clamped to the definition.
func (w *Weapon) Restore(s Snapshot) {
	w.durability = max(0, min(s.Durability, w.def.MaxDurability))
	w.combo = max(0, min(s.Combo, w.def.MaxCombo))
	w.comboTimer = 0
	if w.combo > 0 {
		w.comboTimer = w.def.ComboWindow
	}
	if w.ranged != nil {
		w.ranged.ammo = max(0, min(s.Ammo, w.def.Ranged.MaxAmmo))
	}
}
