// Package loot defines enemy loot tables and rolls drops into an inventory.
package loot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/yomi/internal/game/dice"
)

// ErrUnknownTable is returned when a loot table ID is not registered.
var ErrUnknownTable = errors.New("unknown loot table")

// Entry is one possible drop. Quantity is a dice expression such as "2" or "1d3+1".
type Entry struct {
	Item     string  `yaml:"item"`
	Quantity string  `yaml:"quantity"`
	Chance   float64 `yaml:"chance,omitempty"`

	qty dice.Expression
}

// Table lists the items an enemy always drops and the items it may drop.
type Table struct {
	ID         string  `yaml:"id"`
	Guaranteed []Entry `yaml:"guaranteed"`
	Chance     []Entry `yaml:"chance"`
}

// Validate checks every entry and caches the parsed quantity expressions.
//
// Postcondition: Returns nil iff every entry names an item, has a quantity
// expression that cannot produce a value below 1, and every chance entry
// has a chance in (0, 1].
func (t *Table) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	check := func(kind string, i int, e *Entry, needChance bool) {
		if e.Item == "" {
			errs = append(errs, fmt.Errorf("%s[%d]: item must not be empty", kind, i))
		}
		if e.Quantity == "" {
			e.Quantity = "1"
		}
		q, err := dice.Parse(e.Quantity)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s[%d]: %w", kind, i, err))
		case q.Min() < 1:
			errs = append(errs, fmt.Errorf("%s[%d]: quantity %q can roll below 1", kind, i, e.Quantity))
		default:
			e.qty = q
		}
		if needChance && (e.Chance <= 0 || e.Chance > 1) {
			errs = append(errs, fmt.Errorf("%s[%d]: chance must be in (0, 1], got %v", kind, i, e.Chance))
		}
	}
	for i := range t.Guaranteed {
		check("guaranteed", i, &t.Guaranteed[i], false)
	}
	for i := range t.Chance {
		check("chance", i, &t.Chance[i], true)
	}
	if len(errs) > 0 {
		return fmt.Errorf("loot table %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

// Registry holds the loaded loot tables keyed by ID.
type Registry struct {
	tables map[string]*Table
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Register validates t and adds it, overwriting any table with the same ID.
func (r *Registry) Register(t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.tables[t.ID] = t
	return nil
}

// Get returns the table for id, or ErrUnknownTable.
func (r *Registry) Get(id string) (*Table, error) {
	t, ok := r.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, id)
	}
	return t, nil
}

// IDs returns every registered table ID in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.tables))
	for id := range r.tables {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered tables.
func (r *Registry) Len() int { return len(r.tables) }

// ParseTable decodes one YAML loot table, rejecting unknown keys.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parsing loot table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadDirectory reads every *.yaml file in dir as a loot table.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Registry, or an error on the first bad file.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading loot dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		t, err := ParseTable(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
