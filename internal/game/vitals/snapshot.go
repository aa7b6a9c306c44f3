package vitals

import "math"

// Snapshot is the replicated state of a Vitals: the fields a persistence or
// sync layer reads and may authoritatively overwrite.
type Snapshot struct {
	ID         string  `json:"id"`
	Health     float64 `json:"health"`
	MaxHealth  float64 `json:"max_health"`
	Stamina    float64 `json:"stamina"`
	MaxStamina float64 `json:"max_stamina"`
	Energy     float64 `json:"energy"`
	MaxEnergy  float64 `json:"max_energy"`
	Dead       bool    `json:"dead"`
}

// Snapshot returns the current replicated state.
func (v *Vitals) Snapshot() Snapshot {
	return Snapshot{
		ID:         v.id,
		Health:     v.health,
		MaxHealth:  v.maxHealth,
		Stamina:    v.stamina,
		MaxStamina: v.maxStamina,
		Energy:     v.energy,
		MaxEnergy:  v.maxEnergy,
		Dead:       v.dead,
	}
}

// Restore overwrites the replicated state with s. Values are clamped so the
// pool invariants hold even for inconsistent input. A restored zero-health
// snapshot is dead without publishing Died.
//
// Postcondition: 0 <= current <= max for every pool.
func (v *Vitals) Restore(s Snapshot) {
	v.maxHealth = math.Max(s.MaxHealth, 0)
	v.maxStamina = math.Max(s.MaxStamina, 0)
	v.maxEnergy = math.Max(s.MaxEnergy, 0)
	v.health = clamp(s.Health, v.maxHealth)
	v.stamina = clamp(s.Stamina, v.maxStamina)
	v.energy = clamp(s.Energy, v.maxEnergy)
	v.dead = s.Dead || v.health <= 0
	if v.dead {
		v.health = 0
	}
	v.publishHealth()
	v.publishStamina()
	if v.maxEnergy > 0 {
		v.publishEnergy()
	}
}

func clamp(x, hi float64) float64 {
	return math.Min(math.Max(x, 0), hi)
}
