// Package projectile resolves fired shots: straight-line travel, first valid
// contact, then destruction or sticking.
package projectile

import (
	"math"

	"github.com/google/uuid"
	"github.com/jakecoffman/cp"

	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/spatial"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

// Defaults applied when a shot leaves a field unset.
const (
	DefaultLifeSpan      = 5.0
	DefaultStickDuration = 10.0
	DefaultRadius        = 5.0
)

// Targets applies projectile damage. Hits go straight to the target's vitals:
// a projectile is never blocked or parried.
type Targets interface {
	IsAlive(id string) bool
	ApplyDamage(id string, amount float64, kind damage.Kind, source string) float64
}

// Projectile is one live shot.
type Projectile struct {
	ID       string
	FirerID  string
	Damage   float64
	Kind     damage.Kind
	Position cp.Vector
	Velocity cp.Vector
	Life     float64
	Sticks   bool
	Radius   float64

	stuck      bool
	stuckTo    string
	stickTimer float64
}

// Stuck reports whether the projectile has embedded and stopped colliding.
func (p *Projectile) Stuck() bool { return p.stuck }

// StuckTo returns the ID of the combatant the projectile embedded in.
func (p *Projectile) StuckTo() string { return p.stuckTo }

// Snapshot is the replicated state of a projectile.
type Snapshot struct {
	ID      string  `json:"id"`
	FirerID string  `json:"firer_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Stuck   bool    `json:"stuck"`
}

// Resolver owns every live projectile.
//
// Resolver is not safe for concurrent use.
type Resolver struct {
	index         *spatial.Index
	targets       Targets
	sink          event.Sink
	stickDuration float64
	live          []*Projectile
}

// NewResolver creates a Resolver querying index for contacts.
//
// Precondition: index and targets must not be nil; sink may be nil.
func NewResolver(index *spatial.Index, targets Targets, sink event.Sink) *Resolver {
	if sink == nil {
		sink = event.Discard
	}
	return &Resolver{index: index, targets: targets, sink: sink, stickDuration: DefaultStickDuration}
}

// SetStickDuration overrides how long stuck projectiles linger.
func (r *Resolver) SetStickDuration(d float64) { r.stickDuration = d }

// Spawn launches shot from origin along heading (radians).
//
// Postcondition: the projectile is live and ProjectileFired has been published.
func (r *Resolver) Spawn(shot weapon.Shot, origin cp.Vector, heading float64) *Projectile {
	p := &Projectile{
		ID:       uuid.New().String(),
		FirerID:  shot.FirerID,
		Damage:   shot.Damage,
		Kind:     shot.Kind,
		Position: origin,
		Velocity: cp.Vector{X: math.Cos(heading), Y: math.Sin(heading)}.Mult(shot.Speed),
		Life:     shot.LifeSpan,
		Sticks:   shot.Sticks,
		Radius:   DefaultRadius,
	}
	if p.Kind == damage.None {
		p.Kind = damage.Physical
	}
	if p.Life <= 0 {
		p.Life = DefaultLifeSpan
	}
	r.live = append(r.live, p)
	r.sink.Publish(event.Event{Kind: event.ProjectileFired, Subject: p.ID, Source: p.FirerID, Amount: p.Damage, DamageKind: p.Kind})
	return p
}

// Len returns the number of live projectiles, stuck ones included.
func (r *Resolver) Len() int { return len(r.live) }

// Tick moves every flying projectile and resolves contacts. A contact with a
// living combatant other than the firer applies damage once and is terminal.
func (r *Resolver) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	kept := r.live[:0]
	for _, p := range r.live {
		if r.step(p, dt) {
			kept = append(kept, p)
		}
	}
	clear(r.live[len(kept):])
	r.live = kept
}

// step advances p and reports whether it stays live.
func (r *Resolver) step(p *Projectile, dt float64) bool {
	if p.stuck {
		p.stickTimer -= dt
		return p.stickTimer > 0
	}
	next := p.Position.Add(p.Velocity.Mult(dt))
	accept := func(id string) bool { return id != p.FirerID && r.targets.IsAlive(id) }
	if c, ok := r.index.FirstContact(p.Position, next, p.Radius, accept); ok {
		dealt := r.targets.ApplyDamage(c.ID, p.Damage, p.Kind, p.FirerID)
		r.sink.Publish(event.Event{Kind: event.ProjectileHit, Subject: c.ID, Source: p.FirerID, Amount: dealt, DamageKind: p.Kind, Name: p.ID})
		if !p.Sticks {
			return false
		}
		p.stuck = true
		p.stuckTo = c.ID
		p.stickTimer = r.stickDuration
		p.Position = c.Point
		return p.stickTimer > 0
	}
	p.Position = next
	p.Life -= dt
	return p.Life > 0
}

// Snapshots returns the replicated state of every live projectile.
func (r *Resolver) Snapshots() []Snapshot {
	out := make([]Snapshot, len(r.live))
	for i, p := range r.live {
		out[i] = Snapshot{ID: p.ID, FirerID: p.FirerID, X: p.Position.X, Y: p.Position.Y, Stuck: p.stuck}
	}
	return out
}
