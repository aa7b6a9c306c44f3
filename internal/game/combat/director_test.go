package combat_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/yomi/internal/game/combat"
	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

func katanaDef() *weapon.Def {
	d := weapon.DefaultDef()
	d.ID = "katana"
	d.Name = "Katana"
	return &d
}

type fixture struct {
	v   *vitals.Vitals
	d   *combat.Director
	w   *weapon.Weapon
	rec *event.Recorder
}

func newFixture(t *testing.T, def *weapon.Def) fixture {
	t.Helper()
	rec := &event.Recorder{}
	v := vitals.New("hero", vitals.PlayerDefaults(), rec)
	d := combat.NewDirector(v, combat.DefaultConfig(), rec)
	var w *weapon.Weapon
	if def != nil {
		w = weapon.New(def, rec)
		d.Equip(w)
	}
	return fixture{v: v, d: d, w: w, rec: rec}
}

func TestExecuteLightAttack_CostsStaminaAndTimesOut(t *testing.T) {
	f := newFixture(t, katanaDef())

	require.True(t, f.d.ExecuteLightAttack())
	assert.Equal(t, 90.0, f.v.Stamina())
	assert.True(t, f.d.IsAttacking())
	assert.True(t, f.w.IsSensing())
	assert.InDelta(t, 1.0, f.d.AttackCooldown(), 1e-9)
	assert.Equal(t, 1, f.rec.Count(event.AttackStarted))

	f.d.Tick(0.5)
	assert.True(t, f.d.IsAttacking())
	f.d.Tick(0.5)
	assert.False(t, f.d.IsAttacking())
	assert.False(t, f.w.IsSensing())
	assert.Equal(t, 1, f.rec.Count(event.AttackEnded))
}

func TestExecuteHeavyAttack_ScalesCostAndCooldown(t *testing.T) {
	f := newFixture(t, katanaDef())
	require.True(t, f.d.ExecuteHeavyAttack())
	assert.Equal(t, 85.0, f.v.Stamina())
	assert.InDelta(t, 1.5, f.d.AttackCooldown(), 1e-9)
	assert.Equal(t, weapon.SwingHeavy, f.d.CurrentSwing())
}

func TestExecuteSpecialAttack_UsesEnergy(t *testing.T) {
	def := katanaDef()
	def.KiCost = 10
	f := newFixture(t, def)
	require.True(t, f.d.ExecuteSpecialAttack())
	assert.Equal(t, 40.0, f.v.Energy())
	assert.Equal(t, 100.0, f.v.Stamina())
	assert.InDelta(t, 2.0, f.d.AttackCooldown(), 1e-9)
}

func TestExecuteSpecialAttack_RefusedWithoutEnergy(t *testing.T) {
	def := katanaDef()
	def.KiCost = 60
	f := newFixture(t, def)
	assert.False(t, f.d.ExecuteSpecialAttack())
	assert.False(t, f.d.IsAttacking())
	assert.Equal(t, 50.0, f.v.Energy())
}

func TestAttackGates(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f fixture)
	}{
		{"already attacking", func(f fixture) { f.d.ExecuteLightAttack() }},
		{"blocking", func(f fixture) { f.d.StartBlocking() }},
		{"broken", func(f fixture) { f.w.ReduceDurability(1000) }},
		{"short of resources", func(f fixture) {
			f.v.ConsumeStamina(95)
			f.v.ConsumeEnergy(45)
		}},
		{"unarmed", func(f fixture) { f.d.Unequip() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := katanaDef()
			def.KiCost = 10
			f := newFixture(t, def)
			tc.setup(f)
			stamina := f.v.Stamina()
			started := f.rec.Count(event.AttackStarted)

			assert.False(t, f.d.ExecuteLightAttack())
			assert.False(t, f.d.ExecuteHeavyAttack())
			assert.False(t, f.d.ExecuteSpecialAttack())
			assert.Equal(t, stamina, f.v.Stamina())
			assert.Equal(t, started, f.rec.Count(event.AttackStarted))
		})
	}
}

func TestStartBlocking_RefusedWhileAttacking(t *testing.T) {
	f := newFixture(t, katanaDef())
	require.True(t, f.d.ExecuteLightAttack())
	assert.False(t, f.d.StartBlocking())
	assert.False(t, f.d.IsBlocking())
}

func TestParryNegatesDamage(t *testing.T) {
	f := newFixture(t, katanaDef())
	parries := 0
	f.d.OnParry(func() { parries++ })

	require.True(t, f.d.StartBlocking())
	require.True(t, f.d.IsParryWindowOpen())

	dealt := f.d.ReceiveDamage(500, damage.Physical, "oni")
	assert.Equal(t, 0.0, dealt)
	assert.Equal(t, 100.0, f.v.Health())
	assert.Equal(t, 100.0, f.v.Stamina(), "parry is free")
	assert.Equal(t, 1, f.rec.Count(event.ParrySuccessful))
	assert.Equal(t, 1, parries)
}

func TestBlockOutsideParryWindow(t *testing.T) {
	f := newFixture(t, katanaDef())
	require.True(t, f.d.StartBlocking())
	f.d.Tick(0.25)
	require.False(t, f.d.IsParryWindowOpen())

	dealt := f.d.ReceiveDamage(40, damage.Physical, "oni")
	assert.InDelta(t, 20.0, dealt, 1e-9)
	assert.InDelta(t, 80.0, f.v.Health(), 1e-9)
	assert.Equal(t, 85.0, f.v.Stamina())
	assert.Equal(t, 1, f.rec.Count(event.Blocked))
	assert.Zero(t, f.rec.Count(event.ParrySuccessful))
}

func TestBlockWithoutStaminaStillReduces(t *testing.T) {
	f := newFixture(t, katanaDef())
	require.True(t, f.d.StartBlocking())
	f.d.Tick(0.25)
	require.True(t, f.v.ConsumeStamina(90))

	dealt := f.d.ReceiveDamage(40, damage.Physical, "oni")
	assert.InDelta(t, 20.0, dealt, 1e-9)
	assert.True(t, f.d.IsBlocking(), "an exhausted guard stays up")
	assert.Equal(t, 10.0, f.v.Stamina(), "the stamina spend is skipped, not partial")
	assert.Equal(t, 1, f.rec.Count(event.Blocked))
}

func TestStopBlockingClosesParryWindow(t *testing.T) {
	f := newFixture(t, katanaDef())
	require.True(t, f.d.StartBlocking())
	f.d.StopBlocking()
	assert.False(t, f.d.IsParryWindowOpen())
	assert.Equal(t, 30.0, f.d.ReceiveDamage(30, damage.Physical, "oni"))
}

func TestStartBlocking_RequiresBlockingWeapon(t *testing.T) {
	def := katanaDef()
	def.CanBlock = false
	f := newFixture(t, def)
	assert.False(t, f.d.StartBlocking())
}

func TestEquip_MovesOwnership(t *testing.T) {
	f := newFixture(t, katanaDef())
	assert.Equal(t, "hero", f.w.Owner())

	spare := weapon.New(katanaDef(), nil)
	f.d.Equip(spare)
	assert.Equal(t, "", f.w.Owner())
	assert.Equal(t, "hero", spare.Owner())
	assert.Same(t, spare, f.d.Weapon())
}

func TestEquip_TakesWeaponFromOtherDirector(t *testing.T) {
	f := newFixture(t, katanaDef())
	require.True(t, f.d.StartBlocking())

	rv := vitals.New("ronin", vitals.CharacterDefaults(), f.rec)
	ronin := combat.NewDirector(rv, combat.DefaultConfig(), f.rec)
	ronin.Equip(f.w)

	assert.Equal(t, "ronin", f.w.Owner())
	assert.Same(t, f.w, ronin.Weapon())
	assert.Nil(t, f.d.Weapon(), "the previous holder loses the weapon")
	assert.False(t, f.d.IsBlocking())
	assert.False(t, f.d.ExecuteLightAttack())

	require.True(t, ronin.ExecuteLightAttack())
	assert.True(t, f.w.IsSensing())

	// taking it back leaves ronin unarmed
	f.d.Equip(f.w)
	assert.Nil(t, ronin.Weapon())
	assert.False(t, ronin.IsAttacking())
	assert.Equal(t, "hero", f.w.Owner())
}

func TestMeleeHitUsesOutgoingMultiplier(t *testing.T) {
	f := newFixture(t, katanaDef())
	f.d.SetDamageMultiplier(1.5)
	f.d.SetDamageBonus(0.1)

	target := combat.NewCombatant(combat.KindEnemy, vitals.New("oni", vitals.EnemyDefaults(), nil), nil)
	require.True(t, f.d.ExecuteLightAttack())
	dealt, ok := f.w.Hit(target, f.d.OutgoingMultiplier())
	require.True(t, ok)
	assert.InDelta(t, 16.5, dealt, 1e-9)
	assert.InDelta(t, 33.5, target.Vitals().Health(), 1e-9)
}

func TestRangedAttackQueuesShot(t *testing.T) {
	def := katanaDef()
	def.ID = "yumi"
	def.Class = weapon.ClassBow
	r := weapon.DefaultRangedDef()
	r.CanCharge = false
	def.Ranged = &r
	f := newFixture(t, def)
	f.d.SetDamageMultiplier(2)

	require.True(t, f.d.ExecuteLightAttack())
	shots := f.d.TakeShots()
	require.Len(t, shots, 1)
	assert.Equal(t, 20.0, shots[0].Damage)
	assert.Equal(t, "hero", shots[0].FirerID)
	assert.Empty(t, f.d.TakeShots())
}

func TestRangedChargeRelease(t *testing.T) {
	def := katanaDef()
	def.Class = weapon.ClassBow
	r := weapon.DefaultRangedDef()
	def.Ranged = &r
	f := newFixture(t, def)

	require.True(t, f.d.ExecuteHeavyAttack())
	assert.Empty(t, f.d.TakeShots(), "charging, not fired")
	f.d.Tick(2)
	require.True(t, f.d.ReleaseCharge())
	shots := f.d.TakeShots()
	require.Len(t, shots, 1)
	assert.InDelta(t, 2.0, shots[0].Multiplier, 1e-9)
}

func TestPropertyParryAlwaysNegates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec := &event.Recorder{}
		v := vitals.New("hero", vitals.PlayerDefaults(), rec)
		d := combat.NewDirector(v, combat.DefaultConfig(), rec)
		d.Equip(weapon.New(katanaDef(), rec))
		d.StartBlocking()
		d.Tick(rapid.Float64Range(0, 0.19).Draw(t, "elapsed"))

		amount := rapid.Float64Range(0.001, 1e6).Draw(t, "amount")
		kind := rapid.SampledFrom(damage.Kinds()).Draw(t, "kind")
		if got := d.ReceiveDamage(amount, kind, "oni"); got != 0 {
			t.Fatalf("parried hit dealt %v", got)
		}
		if v.Health() != v.MaxHealth() {
			t.Fatalf("health changed to %v", v.Health())
		}
		if n := rec.Count(event.ParrySuccessful); n != 1 {
			t.Fatalf("parry events = %d", n)
		}
	})
}

type fakeTargeting struct {
	alive   map[string]bool
	nearest string
	bearing float64
}

func (f *fakeTargeting) NearestAlive(self string, _ float64) (string, bool) {
	if f.nearest == "" || f.nearest == self {
		return "", false
	}
	return f.nearest, true
}

func (f *fakeTargeting) IsAlive(id string) bool { return f.alive[id] }

func (f *fakeTargeting) Bearing(_, _ string) (float64, bool) { return f.bearing, true }

func TestLockOn_InterpolatesFacingAndClearsOnDeath(t *testing.T) {
	f := newFixture(t, katanaDef())
	tg := &fakeTargeting{alive: map[string]bool{"oni": true}, nearest: "oni", bearing: math.Pi / 2}
	f.d.SetTargeting(tg)

	require.True(t, f.d.LockOn())
	assert.Equal(t, "oni", f.d.LockTarget())
	assert.Equal(t, 1, f.rec.Count(event.LockOnChanged))

	f.d.Tick(0.05)
	assert.InDelta(t, math.Pi/4, f.d.Facing(), 1e-9)
	f.d.Tick(1)
	assert.InDelta(t, math.Pi/2, f.d.Facing(), 1e-9)

	tg.alive["oni"] = false
	f.d.Tick(0.05)
	assert.Equal(t, "", f.d.LockTarget())
	assert.Equal(t, 2, f.rec.Count(event.LockOnChanged))
}

func TestLockOn_NoCandidate(t *testing.T) {
	f := newFixture(t, katanaDef())
	assert.False(t, f.d.LockOn(), "no targeting installed")
	f.d.SetTargeting(&fakeTargeting{})
	assert.False(t, f.d.LockOn())
}

func TestKiPowerStrike(t *testing.T) {
	f := newFixture(t, katanaDef())
	require.True(t, f.d.KiPowerStrike())
	assert.Equal(t, 25.0, f.v.Energy())
	assert.True(t, f.d.IsAttacking())
	assert.Equal(t, weapon.SwingSpecial, f.d.CurrentSwing())
	assert.InDelta(t, 1.0, f.d.AttackCooldown(), 1e-9)
	assert.False(t, f.d.KiPowerStrike(), "already attacking")

	used := f.rec.Of(event.AbilityUsed)
	require.Len(t, used, 1)
	assert.Equal(t, combat.AbilityPowerStrike, used[0].Name)
}

func TestKiDashAndSpiritArrow(t *testing.T) {
	f := newFixture(t, nil)
	require.True(t, f.d.KiDash())
	require.True(t, f.d.KiSpiritArrow())
	assert.Equal(t, 15.0, f.v.Energy())
	assert.False(t, f.d.KiSpiritArrow(), "15 < 20")

	shots := f.d.TakeShots()
	require.Len(t, shots, 1)
	assert.Equal(t, damage.Spirit, shots[0].Kind)
	assert.Equal(t, "hero", shots[0].FirerID)
	assert.Equal(t, 2, f.rec.Count(event.AbilityUsed))
}

func TestCombatant_RoutesDamageThroughDirector(t *testing.T) {
	f := newFixture(t, katanaDef())
	c := combat.NewCombatant(combat.KindPlayer, f.v, f.d)
	require.True(t, f.d.StartBlocking())

	assert.Equal(t, 0.0, c.ReceiveDamage(50, damage.Fire, "oni"))
	atk, ok := c.Attacker()
	assert.True(t, ok)
	assert.NotNil(t, atk)

	passive := combat.NewCombatant(combat.KindEnemy, vitals.New("lantern", vitals.EnemyDefaults(), nil), nil)
	_, ok = passive.Attacker()
	assert.False(t, ok)
	assert.Equal(t, 10.0, passive.ReceiveDamage(10, damage.Fire, "hero"))
	assert.Equal(t, "enemy", passive.Kind().String())
}
