package debugapi

import (
	"sync"
	"sync/atomic"

	"github.com/cory-johannsen/yomi/internal/game/event"
)

// Hub fans simulation events out to subscriber channels.
//
// Publish never blocks: a subscriber whose channel is full misses the event
// and its drop count grows.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan event.Event]*subscription
	dropped     atomic.Uint64
}

type subscription struct {
	kinds map[event.Kind]bool
}

func (s *subscription) wants(k event.Kind) bool {
	return len(s.kinds) == 0 || s.kinds[k]
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan event.Event]*subscription)}
}

// Subscribe returns a channel receiving events of the given kinds (all kinds
// when none are given) and a function that unsubscribes and closes it.
//
// Precondition: buffer must be >= 1.
func (h *Hub) Subscribe(buffer int, kinds ...event.Kind) (<-chan event.Event, func()) {
	ch := make(chan event.Event, max(buffer, 1))
	sub := &subscription{}
	if len(kinds) > 0 {
		sub.kinds = make(map[event.Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}
	h.mu.Lock()
	h.subscribers[ch] = sub
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Publish delivers e to every interested subscriber. It satisfies
// event.Handler and is safe to call with the world lock held.
func (h *Hub) Publish(e event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, sub := range h.subscribers {
		if !sub.wants(e.Kind) {
			continue
		}
		select {
		case ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}
