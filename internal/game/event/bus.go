package event

import "sync"

// Handler processes one dispatched event.
type Handler func(e Event)

type subscription struct {
	kinds map[Kind]bool
	fn    Handler
}

// Bus queues published events and dispatches them to subscribers when drained.
//
// Publish is safe for concurrent producers. Drain is meant for the single
// simulation goroutine; events published by handlers during a drain are
// dispatched in the same drain.
type Bus struct {
	mu      sync.Mutex
	pending []Event
	subs    []subscription
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for the given kinds. No kinds subscribes to all.
//
// Precondition: fn must be non-nil.
func (b *Bus) Subscribe(fn Handler, kinds ...Kind) {
	s := subscription{fn: fn}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
}

// Publish enqueues e for the next Drain.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.pending = append(b.pending, e)
	b.mu.Unlock()
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Drain dispatches queued events in FIFO order until the queue is empty and
// returns how many were dispatched.
//
// Postcondition: Pending() == 0 unless a concurrent producer published after the last batch.
func (b *Bus) Drain() int {
	n := 0
	for {
		b.mu.Lock()
		batch := b.pending
		b.pending = nil
		subs := b.subs
		b.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, e := range batch {
			for _, s := range subs {
				if s.kinds == nil || s.kinds[e.Kind] {
					s.fn(e)
				}
			}
		}
		n += len(batch)
	}
}
