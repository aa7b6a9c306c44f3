package loot

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/yomi/internal/game/dice"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/inventory"
)

// Drop is one rolled item stack.
type Drop struct {
	DropID   string `json:"drop_id"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Generate rolls t: every guaranteed entry drops, and every chance entry is
// rolled independently.
//
// Precondition: t must have passed Validate; roller must not be nil.
// Postcondition: every Drop has Quantity >= 1.
func Generate(t *Table, roller *dice.Roller) []Drop {
	var drops []Drop
	for _, e := range t.Guaranteed {
		drops = append(drops, roll(e, roller))
	}
	for _, e := range t.Chance {
		if roller.Chance(e.Chance) {
			drops = append(drops, roll(e, roller))
		}
	}
	return drops
}

func roll(e Entry, roller *dice.Roller) Drop {
	return Drop{
		DropID:   uuid.New().String(),
		Item:     e.Item,
		Quantity: max(roller.Roll(e.qty).Total(), 1),
	}
}

// Grant adds drops to store and publishes LootDropped for each stored stack.
// Drops the store refuses are returned so the caller can leave them on the ground.
func Grant(drops []Drop, store inventory.Store, recipient string, sink event.Sink) []Drop {
	if sink == nil {
		sink = event.Discard
	}
	var refused []Drop
	for _, d := range drops {
		if store == nil || !store.AddItem(d.Item, d.Quantity) {
			refused = append(refused, d)
			continue
		}
		sink.Publish(event.Event{Kind: event.LootDropped, Subject: recipient, Name: d.Item, Amount: float64(d.Quantity)})
	}
	return refused
}
