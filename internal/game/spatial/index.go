// Package spatial answers the targeting queries of the combat core: nearest
// candidate within range, everything inside a sensing radius, and first
// contact along a projectile's path. Positions live in a chipmunk2d space of
// kinematic sensor circles so the broadphase does the culling.
package spatial

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
)

// syncStep is the integration step used to refresh the broadphase. Bodies are
// kinematic with zero velocity, so the step never moves anything.
const syncStep = 1.0 / 60.0

// DefaultRadius is the collision radius given to combatants without one.
const DefaultRadius = 40.0

type entry struct {
	id    string
	body  *cp.Body
	shape *cp.Shape
}

// Accept filters query candidates by ID.
type Accept func(id string) bool

// Contact is the first shape struck by a segment query.
type Contact struct {
	ID    string
	Point cp.Vector
	// Alpha is the normalized distance along the segment in [0, 1].
	Alpha float64
}

// Index tracks one circle per entity.
//
// Index is not safe for concurrent use.
type Index struct {
	space   *cp.Space
	entries map[string]*entry
	dirty   bool
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		space:   cp.NewSpace(),
		entries: make(map[string]*entry),
	}
}

// Upsert places id at pos with the given radius, creating it if needed.
//
// Precondition: radius > 0; DefaultRadius is used otherwise.
func (x *Index) Upsert(id string, pos cp.Vector, radius float64) {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if e, ok := x.entries[id]; ok {
		x.space.RemoveShape(e.shape)
		x.space.RemoveBody(e.body)
	}
	body := cp.NewKinematicBody()
	body.SetPosition(pos)
	shape := cp.NewCircle(body, radius, cp.Vector{})
	shape.SetSensor(true)
	e := &entry{id: id, body: body, shape: shape}
	body.UserData = e
	shape.UserData = e
	x.space.AddBody(body)
	x.space.AddShape(shape)
	x.entries[id] = e
	x.dirty = true
}

// Move repositions id. Returns false if id is unknown.
func (x *Index) Move(id string, pos cp.Vector) bool {
	e, ok := x.entries[id]
	if !ok {
		return false
	}
	e.body.SetPosition(pos)
	x.dirty = true
	return true
}

// Remove drops id from the index. Unknown IDs are ignored.
func (x *Index) Remove(id string) {
	e, ok := x.entries[id]
	if !ok {
		return
	}
	x.space.RemoveShape(e.shape)
	x.space.RemoveBody(e.body)
	delete(x.entries, id)
}

// Position returns the current position of id.
func (x *Index) Position(id string) (cp.Vector, bool) {
	e, ok := x.entries[id]
	if !ok {
		return cp.Vector{}, false
	}
	return e.body.Position(), true
}

// Len returns the number of tracked entities.
func (x *Index) Len() int { return len(x.entries) }

// Sync refreshes the broadphase after moves. Queries call it implicitly.
func (x *Index) Sync() {
	if !x.dirty {
		return
	}
	x.space.Step(syncStep)
	x.dirty = false
}

// Nearest returns the accepted entity whose center is closest to origin and
// no farther than maxRange. Ties keep the first candidate visited.
func (x *Index) Nearest(origin cp.Vector, maxRange float64, accept Accept) (string, float64, bool) {
	x.Sync()
	best := ""
	bestDist := math.Inf(1)
	x.space.BBQuery(cp.NewBBForCircle(origin, maxRange), cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
		e, ok := shape.UserData.(*entry)
		if !ok || (accept != nil && !accept(e.id)) {
			return
		}
		d := e.body.Position().Distance(origin)
		if d <= maxRange && d < bestDist {
			best, bestDist = e.id, d
		}
	}, nil)
	if best == "" {
		return "", 0, false
	}
	return best, bestDist, true
}

// Within returns accepted entities whose circles overlap the disc at origin,
// nearest first.
func (x *Index) Within(origin cp.Vector, radius float64, accept Accept) []string {
	x.Sync()
	type hit struct {
		id   string
		dist float64
	}
	var hits []hit
	x.space.BBQuery(cp.NewBBForCircle(origin, radius), cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
		e, ok := shape.UserData.(*entry)
		if !ok || (accept != nil && !accept(e.id)) {
			return
		}
		info := shape.PointQuery(origin)
		if info.Distance <= radius {
			hits = append(hits, hit{id: e.id, dist: e.body.Position().Distance(origin)})
		}
	}, nil)
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}

// FirstContact sweeps a circle of the given radius from start to end and
// returns the accepted entity struck first.
func (x *Index) FirstContact(start, end cp.Vector, radius float64, accept Accept) (Contact, bool) {
	x.Sync()
	var best Contact
	found := false
	x.space.SegmentQuery(start, end, radius, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, point, _ cp.Vector, alpha float64, _ interface{}) {
		e, ok := shape.UserData.(*entry)
		if !ok || (accept != nil && !accept(e.id)) {
			return
		}
		if !found || alpha < best.Alpha {
			best = Contact{ID: e.id, Point: point, Alpha: alpha}
			found = true
		}
	}, nil)
	return best, found
}

// Bearing returns the angle in radians from a to b.
func (x *Index) Bearing(a, b string) (float64, bool) {
	pa, ok := x.Position(a)
	if !ok {
		return 0, false
	}
	pb, ok := x.Position(b)
	if !ok {
		return 0, false
	}
	d := pb.Sub(pa)
	return math.Atan2(d.Y, d.X), true
}
