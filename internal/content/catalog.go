// Package content loads the YAML definition tables the simulation spawns from
// and reloads them when the files change.
package content

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/yomi/internal/config"
	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/enemy"
	"github.com/cory-johannsen/yomi/internal/game/food"
	"github.com/cory-johannsen/yomi/internal/game/loot"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

// Catalog is one consistent generation of every definition table.
// A Catalog is never mutated after Load returns; reloads build a new one.
type Catalog struct {
	Weapons *weapon.Registry
	Bosses  *boss.Registry
	Enemies *enemy.Registry
	Foods   *food.Registry
	Loot    *loot.Registry
}

// Empty returns a Catalog with every registry present and empty.
func Empty() *Catalog {
	return &Catalog{
		Weapons: weapon.NewRegistry(),
		Bosses:  boss.NewRegistry(),
		Enemies: enemy.NewRegistry(),
		Foods:   food.NewRegistry(),
		Loot:    loot.NewRegistry(),
	}
}

// Load reads every definition directory named in cfg and checks the
// cross-references between tables.
//
// Precondition: every directory in cfg must exist.
// Postcondition: Returns a fully cross-checked Catalog or a non-nil error.
func Load(cfg config.ContentConfig) (*Catalog, error) {
	weapons, err := weapon.LoadDirectory(cfg.WeaponsDir)
	if err != nil {
		return nil, fmt.Errorf("loading weapons: %w", err)
	}
	bosses, err := boss.LoadDirectory(cfg.BossesDir)
	if err != nil {
		return nil, fmt.Errorf("loading bosses: %w", err)
	}
	enemies, err := enemy.LoadDirectory(cfg.EnemiesDir)
	if err != nil {
		return nil, fmt.Errorf("loading enemies: %w", err)
	}
	foods, err := food.LoadDirectory(cfg.FoodsDir)
	if err != nil {
		return nil, fmt.Errorf("loading foods: %w", err)
	}
	tables, err := loot.LoadDirectory(cfg.LootDir)
	if err != nil {
		return nil, fmt.Errorf("loading loot tables: %w", err)
	}
	c := &Catalog{Weapons: weapons, Bosses: bosses, Enemies: enemies, Foods: foods, Loot: tables}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every weapon and loot table a boss or enemy names is
// registered.
//
// Postcondition: Returns nil iff every reference resolves, or one error naming
// every dangling reference.
func (c *Catalog) Validate() error {
	var errs []string
	for _, b := range c.Bosses.All() {
		if b.Weapon != "" {
			if _, ok := c.Weapons.Get(b.Weapon); !ok {
				errs = append(errs, fmt.Sprintf("boss %q: unknown weapon %q", b.ID, b.Weapon))
			}
		}
		if b.LootTable != "" {
			if _, err := c.Loot.Get(b.LootTable); err != nil {
				errs = append(errs, fmt.Sprintf("boss %q: unknown loot table %q", b.ID, b.LootTable))
			}
		}
	}
	for _, e := range c.Enemies.All() {
		if e.Weapon != "" {
			if _, ok := c.Weapons.Get(e.Weapon); !ok {
				errs = append(errs, fmt.Sprintf("enemy %q: unknown weapon %q", e.ID, e.Weapon))
			}
		}
		if e.LootTable != "" {
			if _, err := c.Loot.Get(e.LootTable); err != nil {
				errs = append(errs, fmt.Sprintf("enemy %q: unknown loot table %q", e.ID, e.LootTable))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("content cross-reference check failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
