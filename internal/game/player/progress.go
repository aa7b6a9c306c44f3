// Package player tracks a player's long-lived progression: honor, defeated
// bosses, unlocked biomes, the active challenge and meditation.
package player

import (
	"sort"

	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
)

// Honor awards and penalties.
const (
	HonorableKillPoints = 10
	DishonorablePenalty = 5
	ParryPoints         = 2
	DeathPenalty        = 10
)

// Meditation regen multipliers.
const (
	MeditateHealthScale  = 3.0
	MeditateStaminaScale = 2.0
	MeditateKiScale      = 5.0
)

// Level is a named honor rank.
type Level int

const (
	Dishonored Level = iota
	Ronin
	Warrior
	Samurai
	Champion
	Legend
	Ascendant
)

var levelNames = [...]string{"Dishonored", "Ronin", "Warrior", "Samurai", "Champion", "Legend", "Ascendant"}

func (l Level) String() string {
	if l < Dishonored || int(l) >= len(levelNames) {
		return "Unknown"
	}
	return levelNames[l]
}

// LevelFor maps honor points to a Level.
func LevelFor(honor int) Level {
	switch {
	case honor >= 1000:
		return Ascendant
	case honor >= 700:
		return Legend
	case honor >= 500:
		return Champion
	case honor >= 300:
		return Samurai
	case honor >= 100:
		return Warrior
	case honor >= 0:
		return Ronin
	default:
		return Dishonored
	}
}

// nextBiome lists the biome each boss guards.
var nextBiome = map[boss.Type]string{
	boss.TypeKitsuneNoOkami:   "kawa_no_sato",
	boss.TypeMizuchi:          "yama_no_kage",
	boss.TypeDaitengu:         "kuroi_mori",
	boss.TypeOmukade:          "kazan_no_chi",
	boss.TypeShutenDoji:       "yomi_no_mon",
	boss.TypeGashadokuroTitan: "takamagahara_ascent",
}

// Progress is one player's progression record.
// It is not safe for concurrent use; the caller must serialise access.
type Progress struct {
	id         string
	honor      int
	defeated   map[boss.Type]bool
	biomes     map[string]bool
	challenge  boss.Challenge
	meditating bool
	vitals     *vitals.Vitals
	sink       event.Sink
}

// New creates a fresh Ronin with no defeated bosses. v may be nil when
// meditation is not needed.
func New(id string, v *vitals.Vitals, sink event.Sink) *Progress {
	if sink == nil {
		sink = event.Discard
	}
	return &Progress{
		id:        id,
		defeated:  make(map[boss.Type]bool),
		biomes:    make(map[string]bool),
		challenge: boss.ChallengeNone,
		vitals:    v,
		sink:      sink,
	}
}

func (p *Progress) ID() string { return p.id }
func (p *Progress) Honor() int { return p.honor }
func (p *Progress) Level() Level { return LevelFor(p.honor) }
func (p *Progress) Challenge() boss.Challenge { return p.challenge }
func (p *Progress) IsMeditating() bool { return p.meditating }

// HasDefeated reports whether the boss type is in the defeated set.
func (p *Progress) HasDefeated(t boss.Type) bool { return p.defeated[t] }

// HasBiome reports whether the biome has been unlocked.
func (p *Progress) HasBiome(name string) bool { return p.biomes[name] }

// DefeatedBosses returns the defeated set sorted by type.
func (p *Progress) DefeatedBosses() []boss.Type {
	out := make([]boss.Type, 0, len(p.defeated))
	for t := range p.defeated {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddHonor adjusts honor by points, which may be negative.
func (p *Progress) AddHonor(points int) {
	if points == 0 {
		return
	}
	before := p.Level()
	p.honor += points
	e := event.Event{Kind: event.HonorChanged, Subject: p.id, Amount: float64(points), Current: float64(p.honor)}
	if after := p.Level(); after != before {
		e.Name = after.String()
	}
	p.sink.Publish(e)
}

// RemoveHonor subtracts points without dropping below zero.
func (p *Progress) RemoveHonor(points int) {
	if points <= 0 {
		return
	}
	p.AddHonor(-min(points, max(p.honor, 0)))
}

func (p *Progress) OnHonorableKill() { p.AddHonor(HonorableKillPoints) }
func (p *Progress) OnDishonorableAction() { p.AddHonor(-DishonorablePenalty) }
func (p *Progress) OnParry() { p.AddHonor(ParryPoints) }
func (p *Progress) OnDeath() { p.RemoveHonor(DeathPenalty) }

// OnBossDefeated records the first defeat of t, unlocks the biome it guards,
// awards honor and disarms the active challenge. The challenge bonus is paid
// by the encounter, and only when the challenge held.
//
// Postcondition: returns false with no effect if t was already defeated.
func (p *Progress) OnBossDefeated(t boss.Type, honor int) bool {
	if p.defeated[t] {
		return false
	}
	p.defeated[t] = true
	if b, ok := nextBiome[t]; ok {
		p.biomes[b] = true
	}
	p.AddHonor(honor)
	p.challenge = boss.ChallengeNone
	return true
}

// SetChallenge arms c for the next boss fight.
func (p *Progress) SetChallenge(c boss.Challenge) {
	if c == "" {
		c = boss.ChallengeNone
	}
	p.challenge = c
}

// StartMeditation scales the player's regeneration while meditating.
func (p *Progress) StartMeditation() bool {
	if p.meditating || p.vitals == nil || p.vitals.IsDead() {
		return false
	}
	p.meditating = true
	p.vitals.SetRegenScale(MeditateHealthScale, MeditateStaminaScale, MeditateKiScale)
	return true
}

// StopMeditation restores normal regeneration.
func (p *Progress) StopMeditation() {
	if !p.meditating {
		return
	}
	p.meditating = false
	if p.vitals != nil {
		p.vitals.SetRegenScale(1, 1, 1)
	}
}

// Snapshot is the persisted progression state.
type Snapshot struct {
	ID        string         `json:"id"`
	Honor     int            `json:"honor"`
	Defeated  []boss.Type    `json:"defeated"`
	Biomes    []string       `json:"biomes"`
	Challenge boss.Challenge `json:"challenge"`
}

// Snapshot returns the persisted state.
func (p *Progress) Snapshot() Snapshot {
	biomes := make([]string, 0, len(p.biomes))
	for b := range p.biomes {
		biomes = append(biomes, b)
	}
	sort.Strings(biomes)
	return Snapshot{ID: p.id, Honor: p.honor, Defeated: p.DefeatedBosses(), Biomes: biomes, Challenge: p.challenge}
}

// Restore overwrites the progression with s without publishing events.
func (p *Progress) Restore(s Snapshot) {
	p.honor = s.Honor
	clear(p.defeated)
	for _, t := range s.Defeated {
		p.defeated[t] = true
	}
	clear(p.biomes)
	for _, b := range s.Biomes {
		p.biomes[b] = true
	}
	p.SetChallenge(s.Challenge)
}
