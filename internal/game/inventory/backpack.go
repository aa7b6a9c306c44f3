package inventory

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxStack is the per-slot stack size used when none is configured.
const DefaultMaxStack = 99

// ItemInstance is one occupied slot.
type ItemInstance struct {
	InstanceID string `json:"instance_id"`
	ItemDefID  string `json:"item"`
	Quantity   int    `json:"quantity"`
}

// Backpack is an in-memory Store with a slot limit and uniform stack size.
// It is safe for concurrent use.
type Backpack struct {
	mu       sync.Mutex
	maxSlots int
	maxStack int
	items    []ItemInstance
}

// NewBackpack creates an empty Backpack. maxStack <= 0 uses DefaultMaxStack.
//
// Precondition: maxSlots >= 0.
func NewBackpack(maxSlots, maxStack int) *Backpack {
	if maxStack <= 0 {
		maxStack = DefaultMaxStack
	}
	return &Backpack{maxSlots: maxSlots, maxStack: maxStack}
}

// AddItem stacks quantity units of itemID, opening new slots as needed.
// It is atomic: if the slots would overflow, nothing changes.
func (b *Backpack) AddItem(itemID string, quantity int) bool {
	if itemID == "" || quantity <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	room := 0
	for _, it := range b.items {
		if it.ItemDefID == itemID {
			room += b.maxStack - it.Quantity
		}
	}
	overflow := max(quantity-room, 0)
	newSlots := (overflow + b.maxStack - 1) / b.maxStack
	if len(b.items)+newSlots > b.maxSlots {
		return false
	}

	remaining := quantity
	for i := range b.items {
		if remaining == 0 {
			break
		}
		if b.items[i].ItemDefID != itemID {
			continue
		}
		take := min(remaining, b.maxStack-b.items[i].Quantity)
		b.items[i].Quantity += take
		remaining -= take
	}
	for remaining > 0 {
		q := min(remaining, b.maxStack)
		b.items = append(b.items, ItemInstance{InstanceID: uuid.New().String(), ItemDefID: itemID, Quantity: q})
		remaining -= q
	}
	return true
}

// HasResources reports whether every listed quantity is held.
func (b *Backpack) HasResources(cost map[string]int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasLocked(cost)
}

func (b *Backpack) hasLocked(cost map[string]int) bool {
	for id, n := range cost {
		if n > 0 && b.countLocked(id) < n {
			return false
		}
	}
	return true
}

// ConsumeResources removes every listed quantity, draining the newest stacks first.
func (b *Backpack) ConsumeResources(cost map[string]int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasLocked(cost) {
		return false
	}
	for id, n := range cost {
		for i := len(b.items) - 1; i >= 0 && n > 0; i-- {
			if b.items[i].ItemDefID != id {
				continue
			}
			take := min(n, b.items[i].Quantity)
			b.items[i].Quantity -= take
			n -= take
		}
	}
	kept := b.items[:0]
	for _, it := range b.items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	b.items = kept
	return true
}

// Count returns the total quantity of itemID across all slots.
func (b *Backpack) Count(itemID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.countLocked(itemID)
}

func (b *Backpack) countLocked(itemID string) int {
	n := 0
	for _, it := range b.items {
		if it.ItemDefID == itemID {
			n += it.Quantity
		}
	}
	return n
}

// UsedSlots returns the number of occupied slots.
func (b *Backpack) UsedSlots() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Items returns a copy of every slot in insertion order.
func (b *Backpack) Items() []ItemInstance {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ItemInstance, len(b.items))
	copy(out, b.items)
	return out
}
