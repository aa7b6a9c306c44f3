package boss

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/yomi/internal/game/combat"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
)

// State is the lifecycle stage of an Encounter.
type State int

const (
	Inactive State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return "inactive"
	}
}

// Config holds encounter-wide tunables.
type Config struct {
	// SpeedRunLimit is the elapsed-time ceiling, in seconds, for ChallengeSpeedRun.
	SpeedRunLimit float64
	// ChallengeBonus is the honor awarded for a completed challenge.
	ChallengeBonus int
}

// DefaultConfig returns the standard encounter tunables.
func DefaultConfig() Config {
	return Config{SpeedRunLimit: 120, ChallengeBonus: 100}
}

// Challenger is the combatant facing the boss.
type Challenger interface {
	ID() string
}

// Rewardable challengers receive the defeat reward and challenge bonus.
// honor is the boss definition's HonorReward.
type Rewardable interface {
	OnBossDefeated(boss Type, honor int) bool
	AddHonor(points int)
}

// Hooks receives encounter lifecycle callbacks, typically backed by a script.
type Hooks interface {
	OnEncounterStart(bossID, challengerID string)
	OnPhaseChanged(bossID string, phase int)
	OnEnraged(bossID string)
	OnEncounterEnd(bossID string, won bool)
}

// Encounter is the boss fight state machine:
// Inactive → Active(phase 0..N) → Ended.
//
// Invariant: phase never decreases and never exceeds len(PhaseThresholds).
// Invariant: enrage fires at most once per encounter.
//
// Encounter is not safe for concurrent use.
type Encounter struct {
	id       string
	def      *Def
	cfg      Config
	vitals   *vitals.Vitals
	director *combat.Director
	sink     event.Sink
	hooks    Hooks

	state       State
	phase       int
	enraged     bool
	arenaActive bool
	elapsed     float64

	challenge   Challenge
	challenger  Challenger
	damageTaken float64
	minionKills int
}

// NewEncounter binds an encounter to the boss's vitals and director.
// director may be nil for a boss without attacks. The encounter closes
// itself with a victory before the boss's death is published.
//
// Precondition: def and v must not be nil; sink may be nil.
func NewEncounter(def *Def, cfg Config, v *vitals.Vitals, director *combat.Director, sink event.Sink) *Encounter {
	if sink == nil {
		sink = event.Discard
	}
	e := &Encounter{
		id:        uuid.New().String(),
		def:       def,
		cfg:       cfg,
		vitals:    v,
		director:  director,
		sink:      sink,
		challenge: ChallengeNone,
	}
	v.OnBeforeDeath(func(string) {
		if e.state == Active {
			e.EndEncounter(true)
		}
	})
	return e
}

func (e *Encounter) ID() string { return e.id }
func (e *Encounter) Def() *Def { return e.def }
func (e *Encounter) BossID() string { return e.vitals.ID() }
func (e *Encounter) State() State { return e.state }
func (e *Encounter) IsActive() bool { return e.state == Active }
func (e *Encounter) Phase() int { return e.phase }
func (e *Encounter) IsEnraged() bool { return e.enraged }
func (e *Encounter) ArenaActive() bool { return e.arenaActive }
func (e *Encounter) ArenaRadius() float64 { return e.def.ArenaRadius }
func (e *Encounter) Elapsed() float64 { return e.elapsed }
func (e *Encounter) Challenge() Challenge { return e.challenge }
func (e *Encounter) DamageTaken() float64 { return e.damageTaken }
func (e *Encounter) MinionKills() int { return e.minionKills }

// ChallengerID returns the challenger's ID, or "" when there is none.
func (e *Encounter) ChallengerID() string {
	if e.challenger == nil {
		return ""
	}
	return e.challenger.ID()
}

// SetHooks installs lifecycle callbacks. nil removes them.
func (e *Encounter) SetHooks(h Hooks) { e.hooks = h }

// SetChallenge selects the challenge run for the next encounter. Ignored while active.
func (e *Encounter) SetChallenge(c Challenge) {
	if e.state == Active {
		return
	}
	e.challenge = c
}

// AttackDamage returns the boss's current attack damage, enrage included.
func (e *Encounter) AttackDamage() float64 {
	if e.enraged {
		return e.def.AttackDamage * e.def.EnrageDamageMultiplier
	}
	return e.def.AttackDamage
}

// StartEncounter begins the fight against challenger.
//
// Precondition: challenger must not be nil.
// Postcondition: refused unless Inactive and the boss is alive. On success
// phase, enrage, counters and elapsed time are reset, the arena is active and the
// boss is engaged on the challenger.
func (e *Encounter) StartEncounter(challenger Challenger) bool {
	if e.state != Inactive || challenger == nil || e.vitals.IsDead() {
		return false
	}
	e.state = Active
	e.challenger = challenger
	e.phase = 0
	e.elapsed = 0
	e.damageTaken = 0
	e.minionKills = 0
	e.arenaActive = true
	if e.enraged {
		e.enraged = false
		if e.director != nil {
			e.director.SetDamageMultiplier(1)
			e.director.SetSpeedMultiplier(1)
		}
	}

	e.sink.Publish(event.Event{Kind: event.EncounterStarted, Subject: e.BossID(), Source: challenger.ID(), Name: e.id})
	if e.director != nil {
		e.director.Engage(challenger.ID())
	}
	e.sink.Publish(event.Event{Kind: event.TargetAcquired, Subject: e.BossID(), Source: challenger.ID()})
	if e.hooks != nil {
		e.hooks.OnEncounterStart(e.BossID(), challenger.ID())
	}
	return true
}

// Tick advances the elapsed time and checks phase and enrage thresholds.
func (e *Encounter) Tick(dt float64) {
	if e.state != Active {
		return
	}
	if dt > 0 {
		e.elapsed += dt
	}
	e.CheckPhaseTransition()
}

// CheckPhaseTransition advances through every threshold the current health
// fraction has reached, one PhaseChanged per phase, then checks enrage.
func (e *Encounter) CheckPhaseTransition() {
	if e.state != Active {
		return
	}
	frac := e.vitals.HealthFraction()
	for e.phase < len(e.def.PhaseThresholds) && frac <= e.def.PhaseThresholds[e.phase] {
		e.phase++
		e.sink.Publish(event.Event{Kind: event.PhaseChanged, Subject: e.BossID(), Phase: e.phase})
		if e.hooks != nil {
			e.hooks.OnPhaseChanged(e.BossID(), e.phase)
		}
	}
	if !e.enraged && frac <= e.def.EnrageThreshold {
		e.enrage()
	}
}

func (e *Encounter) enrage() {
	e.enraged = true
	if e.director != nil {
		e.director.SetDamageMultiplier(e.def.EnrageDamageMultiplier)
		e.director.SetSpeedMultiplier(e.def.EnrageSpeedMultiplier)
	}
	e.sink.Publish(event.Event{Kind: event.Enraged, Subject: e.BossID(), Amount: e.def.EnrageDamageMultiplier})
	if e.hooks != nil {
		e.hooks.OnEnraged(e.BossID())
	}
}

// EndEncounter closes the fight. On a player victory the challenger receives
// the definition's HonorReward and, only if the active challenge held, the
// challenge bonus.
//
// Postcondition: refused unless Active. EncounterEnded is always published on success.
func (e *Encounter) EndEncounter(playerWon bool) bool {
	if e.state != Active {
		return false
	}
	e.state = Ended
	e.arenaActive = false
	challengerID := e.ChallengerID()

	if playerWon {
		e.sink.Publish(event.Event{Kind: event.BossDefeated, Subject: e.BossID(), Source: challengerID, Name: string(e.def.Type)})
		completed := e.challenge != ChallengeNone && e.ChallengeComplete()
		if r, ok := e.challenger.(Rewardable); ok {
			r.OnBossDefeated(e.def.Type, e.def.HonorReward)
			if completed {
				r.AddHonor(e.cfg.ChallengeBonus)
			}
		}
		if completed {
			e.sink.Publish(event.Event{Kind: event.ChallengeCompleted, Subject: challengerID, Source: e.BossID(), Name: string(e.challenge), Amount: float64(e.cfg.ChallengeBonus)})
		}
	}
	e.sink.Publish(event.Event{Kind: event.EncounterEnded, Subject: e.BossID(), Source: challengerID, Won: playerWon, Name: e.id})
	if e.hooks != nil {
		e.hooks.OnEncounterEnd(e.BossID(), playerWon)
	}
	return true
}

// Reset returns an Ended encounter to Inactive so it can be fought again.
func (e *Encounter) Reset() bool {
	if e.state != Ended {
		return false
	}
	e.state = Inactive
	e.challenger = nil
	e.id = uuid.New().String()
	return true
}

// RecordChallengerDamage accumulates damage the challenger took during the fight.
func (e *Encounter) RecordChallengerDamage(amount float64) {
	if e.state == Active && amount > 0 {
		e.damageTaken += amount
	}
}

// RecordMinionKill counts a minion killed by the challenger during the fight.
func (e *Encounter) RecordMinionKill() {
	if e.state == Active {
		e.minionKills++
	}
}

// ChallengeComplete reports whether the active challenge's condition holds.
// Equipment and ability restrictions are enforced elsewhere and always hold here.
func (e *Encounter) ChallengeComplete() bool {
	switch e.challenge {
	case ChallengePerfectDodge:
		return e.damageTaken == 0
	case ChallengePacifist:
		return e.minionKills == 0
	case ChallengeSpeedRun:
		return e.elapsed <= e.cfg.SpeedRunLimit
	case ChallengeNoArmor, ChallengeKatanaOnly, ChallengeNoHealing:
		return true
	default:
		return false
	}
}

// Snapshot is the replicated state of an encounter.
type Snapshot struct {
	ID           string    `json:"id"`
	BossID       string    `json:"boss_id"`
	DefID        string    `json:"def_id"`
	State        State     `json:"state"`
	Phase        int       `json:"phase"`
	Enraged      bool      `json:"enraged"`
	Elapsed      float64   `json:"elapsed"`
	Challenge    Challenge `json:"challenge"`
	ChallengerID string    `json:"challenger_id,omitempty"`
	DamageTaken  float64   `json:"damage_taken"`
	MinionKills  int       `json:"minion_kills"`
}

// Snapshot returns the replicated state.
func (e *Encounter) Snapshot() Snapshot {
	return Snapshot{
		ID:           e.id,
		BossID:       e.BossID(),
		DefID:        e.def.ID,
		State:        e.state,
		Phase:        e.phase,
		Enraged:      e.enraged,
		Elapsed:      e.elapsed,
		Challenge:    e.challenge,
		ChallengerID: e.ChallengerID(),
		DamageTaken:  e.damageTaken,
		MinionKills:  e.minionKills,
	}
}

// Restore overwrites the encounter from s. The challenger is resolved by the
// caller since only its ID is persisted. Restoring an enraged snapshot
// reapplies the enrage multipliers without publishing.
func (e *Encounter) Restore(s Snapshot, challenger Challenger) {
	e.id = s.ID
	e.state = s.State
	e.phase = max(0, min(s.Phase, len(e.def.PhaseThresholds)))
	e.elapsed = s.Elapsed
	e.challenge = s.Challenge
	e.challenger = challenger
	e.damageTaken = s.DamageTaken
	e.minionKills = s.MinionKills
	e.arenaActive = s.State == Active
	e.enraged = s.Enraged
	if e.enraged && e.director != nil {
		e.director.SetDamageMultiplier(e.def.EnrageDamageMultiplier)
		e.director.SetSpeedMultiplier(e.def.EnrageSpeedMultiplier)
	}
}
