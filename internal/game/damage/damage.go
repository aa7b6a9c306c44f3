// Package damage defines damage kinds and per-kind resistance tables.
package damage

import (
	"fmt"
	"strings"
)

// Kind identifies the element of a damage application.
type Kind int

const (
	None Kind = iota
	Physical
	Fire
	Water
	Wind
	Earth
	Spirit
	Poison
	Curse
)

// MaxResistance caps every resistance so no combatant is ever fully immune.
const MaxResistance = 0.9

var kindNames = [...]string{
	None:     "none",
	Physical: "physical",
	Fire:     "fire",
	Water:    "water",
	Wind:     "wind",
	Earth:    "earth",
	Spirit:   "spirit",
	Poison:   "poison",
	Curse:    "curse",
}

// String returns the lower-case name of k.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a case-insensitive kind name.
//
// Postcondition: Returns the Kind, or an error naming the unknown value.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return None, fmt.Errorf("unknown damage kind %q", s)
}

// UnmarshalYAML lets definition files spell kinds by name.
func (k *Kind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML writes the kind name.
func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// MarshalText writes the kind name for JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Kinds returns every kind except None in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for i := Physical; int(i) < len(kindNames); i++ {
		out = append(out, i)
	}
	return out
}

// Clamp limits r to [0, MaxResistance].
func Clamp(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > MaxResistance {
		return MaxResistance
	}
	return r
}

// Resistances maps a damage kind to the configured resistance fraction.
// Stored values are raw; Of applies the clamp on read.
type Resistances map[Kind]float64

// Of returns the effective resistance for k with bonus added, clamped to [0, 0.9].
// Unset kinds resolve to 0 before the bonus.
func (r Resistances) Of(k Kind, bonus float64) float64 {
	return Clamp(r[k] + bonus)
}

// Mitigate returns amount after resistance, floored at 0.
//
// Precondition: resistance has already been clamped.
// Postcondition: 0 <= result <= max(amount, 0).
func Mitigate(amount, resistance float64) float64 {
	out := amount * (1 - resistance)
	if out < 0 {
		return 0
	}
	return out
}
