package enemy

import "sync"

// pending is one scheduled respawn.
type pending struct {
	defID     string
	spawnID   string
	remaining float64
}

// Respawner counts down scheduled respawns on the simulation tick.
// Schedule may be called from any goroutine; Tick is driven by the single
// simulation goroutine.
//
// Invariant: entries with a non-positive delay are never queued.
type Respawner struct {
	mu      sync.Mutex
	pending []pending
}

// NewRespawner returns an empty Respawner.
func NewRespawner() *Respawner {
	return &Respawner{}
}

// Ready is a respawn whose countdown has elapsed.
type Ready struct {
	DefID   string
	SpawnID string
}

// Schedule queues spawnID (an instance of defID) to return after delay seconds.
// No-op when delay <= 0.
func (r *Respawner) Schedule(defID, spawnID string, delay float64) {
	if delay <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, pending{defID: defID, spawnID: spawnID, remaining: delay})
}

// Tick advances every countdown by dt and returns the entries that elapsed,
// in the order they were scheduled.
//
// Postcondition: returned entries are no longer pending.
func (r *Respawner) Tick(dt float64) []Ready {
	if dt <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var ready []Ready
	kept := r.pending[:0]
	for _, p := range r.pending {
		p.remaining -= dt
		if p.remaining <= 0 {
			ready = append(ready, Ready{DefID: p.defID, SpawnID: p.spawnID})
			continue
		}
		kept = append(kept, p)
	}
	r.pending = kept
	return ready
}

// Pending returns the number of queued respawns.
func (r *Respawner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
