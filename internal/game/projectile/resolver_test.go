package projectile_test

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/projectile"
	"github.com/cory-johannsen/yomi/internal/game/spatial"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

type hit struct {
	id     string
	amount float64
	kind   damage.Kind
	source string
}

type fakeTargets struct {
	dead map[string]bool
	hits []hit
}

func (f *fakeTargets) IsAlive(id string) bool { return !f.dead[id] }

func (f *fakeTargets) ApplyDamage(id string, amount float64, kind damage.Kind, source string) float64 {
	f.hits = append(f.hits, hit{id, amount, kind, source})
	return amount
}

func setup(t *testing.T) (*projectile.Resolver, *fakeTargets, *event.Recorder) {
	t.Helper()
	x := spatial.NewIndex()
	x.Upsert("archer", cp.Vector{}, 40)
	x.Upsert("oni", cp.Vector{X: 500}, 40)
	x.Upsert("kappa", cp.Vector{X: 800}, 40)
	ft := &fakeTargets{dead: map[string]bool{}}
	rec := &event.Recorder{}
	return projectile.NewResolver(x, ft, rec), ft, rec
}

func TestFirstContactAppliesDamageOnceAndDestroys(t *testing.T) {
	r, ft, rec := setup(t)
	r.Spawn(weapon.Shot{Damage: 12, Kind: damage.Fire, Speed: 3000, LifeSpan: 5, FirerID: "archer"}, cp.Vector{}, 0)
	assert.Equal(t, 1, rec.Count(event.ProjectileFired))

	r.Tick(0.1)
	assert.Empty(t, ft.hits, "300 units travelled, oni's edge is at 460")
	r.Tick(0.1)
	require.Len(t, ft.hits, 1)
	assert.Equal(t, hit{"oni", 12, damage.Fire, "archer"}, ft.hits[0])
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 1, rec.Count(event.ProjectileHit))

	r.Tick(1)
	assert.Len(t, ft.hits, 1)
}

func TestFirerIsNeverHit(t *testing.T) {
	r, ft, _ := setup(t)
	r.Spawn(weapon.Shot{Damage: 7, Speed: 1000, FirerID: "oni"}, cp.Vector{X: 500}, 0)
	r.Tick(0.3)
	require.Len(t, ft.hits, 1)
	assert.Equal(t, "kappa", ft.hits[0].id)
	assert.Equal(t, 7.0, ft.hits[0].amount)
	assert.Equal(t, damage.Physical, ft.hits[0].kind)
}

func TestZeroDamageShotCarriesNoDamage(t *testing.T) {
	r, ft, rec := setup(t)
	r.Spawn(weapon.Shot{Speed: 5000, FirerID: "archer"}, cp.Vector{}, 0)
	assert.Zero(t, rec.Of(event.ProjectileFired)[0].Amount)

	r.Tick(0.2)
	require.Len(t, ft.hits, 1)
	assert.Equal(t, "oni", ft.hits[0].id)
	assert.Zero(t, ft.hits[0].amount)
}

func TestDeadTargetsAreSkipped(t *testing.T) {
	r, ft, _ := setup(t)
	ft.dead["oni"] = true
	r.Spawn(weapon.Shot{Speed: 5000, FirerID: "archer"}, cp.Vector{}, 0)
	r.Tick(0.2)
	require.Len(t, ft.hits, 1)
	assert.Equal(t, "kappa", ft.hits[0].id)
}

func TestStickingShotLingersThenExpires(t *testing.T) {
	r, ft, _ := setup(t)
	p := r.Spawn(weapon.Shot{Damage: 5, Speed: 5000, FirerID: "archer", Sticks: true}, cp.Vector{}, 0)
	r.Tick(0.1)
	require.Len(t, ft.hits, 1)
	assert.True(t, p.Stuck())
	assert.Equal(t, "oni", p.StuckTo())
	assert.Equal(t, 1, r.Len())

	r.Tick(5)
	assert.Len(t, ft.hits, 1, "stuck projectiles do not collide")
	assert.Equal(t, 1, r.Len())
	r.Tick(5)
	assert.Equal(t, 0, r.Len())
}

func TestLifetimeExpiryDiscardsWithoutEffect(t *testing.T) {
	r, ft, rec := setup(t)
	r.Spawn(weapon.Shot{Speed: 100, LifeSpan: 0.5, FirerID: "archer"}, cp.Vector{}, 3.14159)
	r.Tick(0.25)
	assert.Equal(t, 1, r.Len())
	r.Tick(0.25)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, ft.hits)
	assert.Zero(t, rec.Count(event.ProjectileHit))
}

func TestSnapshots(t *testing.T) {
	r, _, _ := setup(t)
	r.Spawn(weapon.Shot{Speed: 100, FirerID: "archer"}, cp.Vector{}, 1.5708)
	r.Tick(1)
	s := r.Snapshots()
	require.Len(t, s, 1)
	assert.InDelta(t, 100, s[0].Y, 1e-3)
	assert.Equal(t, "archer", s[0].FirerID)
}
