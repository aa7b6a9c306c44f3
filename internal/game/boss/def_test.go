package boss_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/damage"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

func TestParseDef_Defaults(t *testing.T) {
	def, err := boss.ParseDef([]byte(`
id: orochi
type: yamata_no_orochi
title: Yamata no Orochi
phase_thresholds: [0.875, 0.75, 0.625, 0.5, 0.375, 0.25, 0.125]
resistances:
  water: 0.5
`))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, def.MaxHealth)
	assert.Equal(t, 50, def.HonorReward)
	assert.Len(t, def.PhaseThresholds, 7)
	assert.Equal(t, 0.2, def.EnrageThreshold)
	assert.Equal(t, 0.5, def.Resistances[damage.Water])

	cfg := def.VitalsConfig()
	assert.Equal(t, 1000.0, cfg.MaxHealth)
	assert.Equal(t, 200.0, cfg.MaxStamina)
}

func TestParseDef_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "id: x\ntype: mizuchi\nmood: angry\n",
		"unknown type":      "id: x\ntype: dragon\n",
		"not decreasing":    "id: x\ntype: mizuchi\nphase_thresholds: [0.5, 0.75]\n",
		"threshold too big": "id: x\ntype: mizuchi\nphase_thresholds: [1.5]\n",
		"zero arena":        "id: x\ntype: mizuchi\narena_radius: 0\n",
		"negative attack":   "id: x\ntype: mizuchi\nattack_damage: -1\n",
		"negative honor":    "id: x\ntype: mizuchi\nhonor_reward: -5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := boss.ParseDef([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestStrikeWeapon_UsesAttackDamage(t *testing.T) {
	wd := weapon.DefaultDef()
	wd.ID = "fox_fire"
	wd.BaseDamage = 12

	def := boss.DefaultDef()
	strike := def.StrikeWeapon(&wd)
	assert.Equal(t, def.AttackDamage, strike.BaseDamage)
	assert.Equal(t, "fox_fire", strike.ID)
	assert.Equal(t, 12.0, wd.BaseDamage, "the shared definition is untouched")

	def.AttackDamage = 0
	assert.Same(t, &wd, def.StrikeWeapon(&wd))
}

func TestParseChallenge(t *testing.T) {
	c, err := boss.ParseChallenge("speed_run")
	require.NoError(t, err)
	assert.Equal(t, boss.ChallengeSpeedRun, c)

	c, err = boss.ParseChallenge("")
	require.NoError(t, err)
	assert.Equal(t, boss.ChallengeNone, c)

	_, err = boss.ParseChallenge("blindfolded")
	assert.Error(t, err)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mizuchi.yaml"), []byte("id: mizuchi\ntype: mizuchi\ntitle: Mizuchi\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("skip"), 0644))

	reg, err := boss.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	def, err := reg.Get("mizuchi")
	require.NoError(t, err)
	assert.Equal(t, "Mizuchi", def.Title)

	_, err = reg.Get("nope")
	assert.True(t, errors.Is(err, boss.ErrUnknownBoss))
}
