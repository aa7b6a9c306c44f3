package gameserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jakecoffman/cp"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/yomi/internal/game/sim"
)

// Placement puts one enemy, boss, or companion into the world.
type Placement struct {
	ID  string  `yaml:"id"`
	Def string  `yaml:"def"`
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
}

// Pos returns the placement position.
func (p Placement) Pos() cp.Vector { return cp.Vector{X: p.X, Y: p.Y} }

// Layout is the roster present when the server starts.
type Layout struct {
	Enemies []Placement `yaml:"enemies"`
	Bosses  []Placement `yaml:"bosses"`
	// Companions name a weapon definition in Def rather than an enemy.
	Companions []Placement `yaml:"companions"`
}

// ParseLayout decodes a layout document and checks every placement carries
// an ID and a definition.
//
// Postcondition: Returns a Layout with unique IDs or a non-nil error.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing layout YAML: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadLayout reads the layout file at path.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout %q: %w", path, err)
	}
	l, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("layout %q: %w", path, err)
	}
	return l, nil
}

// Validate reports every placement that is missing an ID or definition, and
// every ID used twice.
func (l *Layout) Validate() error {
	var errs []string
	seen := make(map[string]bool)
	check := func(section string, ps []Placement) {
		for i, p := range ps {
			if p.ID == "" {
				errs = append(errs, fmt.Sprintf("%s[%d]: id must not be empty", section, i))
				continue
			}
			if p.Def == "" {
				errs = append(errs, fmt.Sprintf("%s[%d] %q: def must not be empty", section, i, p.ID))
			}
			if seen[p.ID] {
				errs = append(errs, fmt.Sprintf("%s[%d]: duplicate id %q", section, i, p.ID))
			}
			seen[p.ID] = true
		}
	}
	check("enemies", l.Enemies)
	check("bosses", l.Bosses)
	check("companions", l.Companions)
	if len(errs) > 0 {
		return fmt.Errorf("invalid layout: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Populate adds every placement to w.
//
// Postcondition: on error, the placements before the failing one remain in w.
func (l *Layout) Populate(w *sim.World) error {
	for _, p := range l.Bosses {
		if err := w.SpawnBoss(p.Def, p.ID, p.Pos()); err != nil {
			return fmt.Errorf("placing boss %q: %w", p.ID, err)
		}
	}
	for _, p := range l.Enemies {
		if err := w.SpawnEnemy(p.Def, p.ID, p.Pos()); err != nil {
			return fmt.Errorf("placing enemy %q: %w", p.ID, err)
		}
	}
	for _, p := range l.Companions {
		if err := w.AddCompanion(p.ID, p.Def, p.Pos()); err != nil {
			return fmt.Errorf("placing companion %q: %w", p.ID, err)
		}
	}
	return nil
}
