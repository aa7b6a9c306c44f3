// Package event carries one-way gameplay notifications from the combat core
// to any number of listeners. Producers publish into a Sink; the simulation
// drains the Bus once per tick and dispatches in FIFO order.
package event

import (
	"fmt"

	"github.com/cory-johannsen/yomi/internal/game/damage"
)

// Kind identifies the notification type.
type Kind int

const (
	HealthChanged Kind = iota + 1
	StaminaChanged
	EnergyChanged
	DamageTaken
	Died
	AttackStarted
	AttackEnded
	Blocked
	ParrySuccessful
	WeaponBroken
	ComboChanged
	LockOnChanged
	AbilityUsed
	ProjectileFired
	ProjectileHit
	PhaseChanged
	Enraged
	EncounterStarted
	TargetAcquired
	EncounterEnded
	ChallengeCompleted
	HonorChanged
	BossDefeated
	FoodConsumed
	BuffExpired
	LootDropped
)

var kindNames = map[Kind]string{
	HealthChanged:      "health_changed",
	StaminaChanged:     "stamina_changed",
	EnergyChanged:      "energy_changed",
	DamageTaken:        "damage_taken",
	Died:               "died",
	AttackStarted:      "attack_started",
	AttackEnded:        "attack_ended",
	Blocked:            "blocked",
	ParrySuccessful:    "parry_successful",
	WeaponBroken:       "weapon_broken",
	ComboChanged:       "combo_changed",
	LockOnChanged:      "lock_on_changed",
	AbilityUsed:        "ability_used",
	ProjectileFired:    "projectile_fired",
	ProjectileHit:      "projectile_hit",
	PhaseChanged:       "phase_changed",
	Enraged:            "enraged",
	EncounterStarted:   "encounter_started",
	TargetAcquired:     "target_acquired",
	EncounterEnded:     "encounter_ended",
	ChallengeCompleted: "challenge_completed",
	HonorChanged:       "honor_changed",
	BossDefeated:       "boss_defeated",
	FoodConsumed:       "food_consumed",
	BuffExpired:        "buff_expired",
	LootDropped:        "loot_dropped",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// ParseKind returns the Kind whose String form is s.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// MarshalText lets events serialize with readable kind names.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a single notification. Fields not meaningful for a Kind are zero.
type Event struct {
	Kind Kind `json:"kind"`
	// Subject is the entity the event is about (damaged combatant, broken
	// weapon, boss of an encounter).
	Subject string `json:"subject"`
	// Source is the entity that caused the event, when one exists.
	Source string `json:"source,omitempty"`
	// Current and Max carry pool values for *Changed events.
	Current float64 `json:"current,omitempty"`
	Max     float64 `json:"max,omitempty"`
	// Amount carries damage, honor delta, or combo count.
	Amount     float64     `json:"amount,omitempty"`
	DamageKind damage.Kind `json:"damage_kind,omitempty"`
	// Phase is the new phase index for PhaseChanged.
	Phase int `json:"phase,omitempty"`
	// Won reports the outcome of EncounterEnded.
	Won bool `json:"won,omitempty"`
	// Name carries a definition or ability identifier.
	Name string `json:"name,omitempty"`
}

// Sink receives published events. Implementations must not block.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

type discard struct{}

func (discard) Publish(Event) {}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}
