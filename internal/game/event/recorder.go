package event

import "sync"

// Recorder is a Sink that keeps every event it receives. Useful in tests
// and for collaborators that poll rather than subscribe.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends e.
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// All returns a copy of every recorded event in order.
func (r *Recorder) All() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Of returns recorded events of kind k in order.
func (r *Recorder) Of(k Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of recorded events of kind k.
func (r *Recorder) Count(k Kind) int {
	return len(r.Of(k))
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
