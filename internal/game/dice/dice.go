// Package dice provides the randomness abstraction used by loot generation:
// chance rolls, uniform ranges and small quantity expressions such as "1d3+1".
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is the randomness provider.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}

// Expression is a parsed quantity expression: Count dice of Sides faces plus
// Modifier. A plain integer parses to a constant with Count 0.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

// Min returns the smallest value the expression can produce.
func (e Expression) Min() int { return e.Count + e.Modifier }

// Max returns the largest value the expression can produce.
func (e Expression) Max() int { return e.Count*e.Sides + e.Modifier }

// Parse parses "NdM", "NdM+K", "dM-K" or a plain integer.
//
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	dIdx := strings.IndexByte(s, 'd')
	if dIdx < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid constant %q: %w", expr, err)
		}
		return Expression{Raw: expr, Modifier: n}, nil
	}

	count := 1
	if dIdx > 0 {
		n, err := strconv.Atoi(s[:dIdx])
		if err != nil || n <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q", expr)
		}
		count = n
	}

	rest := s[dIdx+1:]
	sidesStr, modStr := rest, ""
	if i := strings.IndexAny(rest, "+-"); i > 0 {
		sidesStr, modStr = rest[:i], rest[i:]
	}
	sides, err := strconv.Atoi(sidesStr)
	if err != nil || sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q", expr)
	}
	mod := 0
	if modStr != "" {
		if mod, err = strconv.Atoi(modStr); err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
	}
	return Expression{Raw: expr, Count: count, Sides: sides, Modifier: mod}, nil
}

// MustParse parses expr and panics on error. Useful for package-level values.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// RollResult holds the audit trail of one evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// Roll evaluates e with src.
//
// Postcondition: e.Min() <= result.Total() <= e.Max().
func Roll(e Expression, src Source) RollResult {
	rolled := make([]int, e.Count)
	for i := range rolled {
		rolled[i] = src.Intn(e.Sides) + 1
	}
	return RollResult{Expression: e.Raw, Dice: rolled, Modifier: e.Modifier}
}
