package weapon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

func yumi(requiresAmmo, canCharge bool) *weapon.Def {
	d := weapon.DefaultDef()
	d.ID = "yumi"
	d.Name = "Yumi"
	d.Class = weapon.ClassBow
	r := weapon.DefaultRangedDef()
	r.RequiresAmmo = requiresAmmo
	r.CanCharge = canCharge
	r.MaxAmmo = 2
	d.Ranged = &r
	return &d
}

func TestRanged_ChargeInterpolatesDamage(t *testing.T) {
	w := weapon.New(yumi(false, true), nil)
	w.SetOwner("archer")

	_, res := w.PressLight()
	require.Equal(t, weapon.Charging, res)
	w.Tick(1.0)
	assert.InDelta(t, 0.5, w.ChargeFraction(), 1e-9)

	shot, res := w.ReleaseCharge()
	require.Equal(t, weapon.Fired, res)
	// lerp(0.5, 2, 0.5) = 1.25
	assert.InDelta(t, 1.25, shot.Multiplier, 1e-9)
	assert.InDelta(t, 12.5, shot.Damage, 1e-9)
	assert.InDelta(t, 3750, shot.Speed, 1e-9)
	assert.Equal(t, "archer", shot.FirerID)
	assert.False(t, w.IsCharging())
	assert.Equal(t, 99, w.Durability())
}

func TestRanged_ChargeCapsAtMax(t *testing.T) {
	w := weapon.New(yumi(false, true), nil)
	_, res := w.PressHeavy()
	require.Equal(t, weapon.Charging, res)
	w.Tick(10)
	shot, _ := w.ReleaseCharge()
	assert.InDelta(t, 2.0, shot.Multiplier, 1e-9)
}

func TestRanged_ImmediateFireWithoutCharge(t *testing.T) {
	w := weapon.New(yumi(false, false), nil)
	shot, res := w.PressLight()
	require.Equal(t, weapon.Fired, res)
	assert.Equal(t, 1.0, shot.Multiplier)

	_, res = w.PressHeavy()
	assert.Equal(t, weapon.Refused, res, "reload blocks repeat fire")

	w.Tick(1.0)
	shot, res = w.PressHeavy()
	require.Equal(t, weapon.Fired, res)
	assert.Equal(t, 1.5, shot.Multiplier)
}

func TestRanged_AmmoRequired(t *testing.T) {
	w := weapon.New(yumi(true, false), nil)
	_, res := w.PressLight()
	require.Equal(t, weapon.Fired, res)
	w.Tick(1)
	_, res = w.PressSpecial()
	require.Equal(t, weapon.Fired, res)
	assert.Equal(t, 0, w.Ammo())
	w.Tick(1)

	_, res = w.PressLight()
	assert.Equal(t, weapon.Refused, res)
	_, res = w.PressSpecial()
	assert.Equal(t, weapon.Refused, res)

	w.AddAmmo(10)
	assert.Equal(t, 2, w.Ammo())
}

func TestRanged_SpecialUsesChargeMultiplier(t *testing.T) {
	w := weapon.New(yumi(false, true), nil)
	shot, res := w.PressSpecial()
	require.Equal(t, weapon.Fired, res)
	assert.Equal(t, 2.0, shot.Multiplier)
	assert.Equal(t, 20.0, shot.Damage)
}

func TestRanged_BrokenRefuses(t *testing.T) {
	w := weapon.New(yumi(false, false), nil)
	w.ReduceDurability(100)
	_, res := w.PressLight()
	assert.Equal(t, weapon.Refused, res)
}

func TestRanged_ReleaseWithoutChargeRefused(t *testing.T) {
	w := weapon.New(yumi(false, true), nil)
	_, res := w.ReleaseCharge()
	assert.Equal(t, weapon.Refused, res)
}

func TestMelee_RangedEntryPointsRefuse(t *testing.T) {
	w := weapon.New(katana(), nil)
	assert.False(t, w.IsRanged())
	_, res := w.PressLight()
	assert.Equal(t, weapon.Refused, res)
}
