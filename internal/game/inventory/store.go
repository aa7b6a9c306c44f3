// Package inventory provides the resource store the combat core consumes:
// loot drops are added to it and broken weapons are repaired from it.
package inventory

import "github.com/cory-johannsen/yomi/internal/game/weapon"

// Store is the inventory collaborator.
//
// ConsumeResources is all-or-nothing: either every listed quantity is
// removed or nothing changes.
type Store interface {
	HasResources(cost map[string]int) bool
	ConsumeResources(cost map[string]int) bool
	AddItem(itemID string, quantity int) bool
}

// RepairWeapon restores w to full durability, paying its repair cost from s.
//
// Precondition: w and s must not be nil.
// Postcondition: returns false with no effect when the weapon is already at
// full durability or s cannot pay.
func RepairWeapon(w *weapon.Weapon, s Store) bool {
	missing := w.Def().MaxDurability - w.Durability()
	if missing <= 0 {
		return false
	}
	if cost := w.Def().RepairCost; len(cost) > 0 && !s.ConsumeResources(cost) {
		return false
	}
	w.Repair(missing)
	return true
}
