package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/yomi/internal/game/inventory"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

var _ inventory.Store = (*inventory.Backpack)(nil)

func TestAddItem_StacksThenOpensSlots(t *testing.T) {
	b := inventory.NewBackpack(3, 10)
	require.True(t, b.AddItem("iron_ore", 7))
	require.True(t, b.AddItem("iron_ore", 7))

	assert.Equal(t, 14, b.Count("iron_ore"))
	assert.Equal(t, 2, b.UsedSlots())
	items := b.Items()
	assert.Equal(t, 10, items[0].Quantity)
	assert.Equal(t, 4, items[1].Quantity)
	assert.NotEqual(t, items[0].InstanceID, items[1].InstanceID)
}

func TestAddItem_AtomicOnOverflow(t *testing.T) {
	b := inventory.NewBackpack(2, 5)
	require.True(t, b.AddItem("bamboo", 5))
	assert.False(t, b.AddItem("silk", 6), "needs two slots, only one left")
	assert.Equal(t, 1, b.UsedSlots())
	assert.Zero(t, b.Count("silk"))

	assert.False(t, b.AddItem("", 1))
	assert.False(t, b.AddItem("silk", 0))
}

func TestConsumeResources(t *testing.T) {
	b := inventory.NewBackpack(5, 0)
	require.True(t, b.AddItem("iron_ingot", 3))
	require.True(t, b.AddItem("charcoal", 2))

	assert.True(t, b.HasResources(map[string]int{"iron_ingot": 2, "charcoal": 2}))
	assert.False(t, b.ConsumeResources(map[string]int{"iron_ingot": 2, "charcoal": 3}))
	assert.Equal(t, 3, b.Count("iron_ingot"), "all-or-nothing")

	require.True(t, b.ConsumeResources(map[string]int{"iron_ingot": 2, "charcoal": 2}))
	assert.Equal(t, 1, b.Count("iron_ingot"))
	assert.Equal(t, 1, b.UsedSlots(), "empty stacks are freed")
}

func TestRepairWeapon(t *testing.T) {
	def := weapon.DefaultDef()
	def.ID = "katana"
	def.Name = "Katana"
	def.RepairCost = map[string]int{"steel_ingot": 2}
	w := weapon.New(&def, nil)

	b := inventory.NewBackpack(5, 0)
	assert.False(t, inventory.RepairWeapon(w, b), "already at full durability")

	w.ReduceDurability(100)
	require.True(t, w.IsBroken())
	assert.False(t, inventory.RepairWeapon(w, b), "cannot pay")
	assert.True(t, w.IsBroken())

	require.True(t, b.AddItem("steel_ingot", 3))
	require.True(t, inventory.RepairWeapon(w, b))
	assert.Equal(t, 100, w.Durability())
	assert.Equal(t, 1, b.Count("steel_ingot"))
}

func TestRepairWeapon_FreeWithoutCost(t *testing.T) {
	def := weapon.DefaultDef()
	def.ID = "bokken"
	def.Name = "Bokken"
	w := weapon.New(&def, nil)
	w.ReduceDurability(30)
	assert.True(t, inventory.RepairWeapon(w, inventory.NewBackpack(0, 0)))
	assert.Equal(t, 100, w.Durability())
}

func TestBackpack_CountMatchesAddsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := inventory.NewBackpack(rapid.IntRange(0, 6).Draw(t, "slots"), rapid.IntRange(1, 10).Draw(t, "stack"))
		want := map[string]int{}
		for i, n := 0, rapid.IntRange(1, 20).Draw(t, "n"); i < n; i++ {
			id := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(t, "id")
			q := rapid.IntRange(1, 15).Draw(t, "q")
			if b.AddItem(id, q) {
				want[id] += q
			}
		}
		for id, q := range want {
			if got := b.Count(id); got != q {
				t.Fatalf("count %s: got %d want %d", id, got, q)
			}
		}
	})
}
