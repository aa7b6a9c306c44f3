package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/scripting"
)

const recordingHooks = `
calls = {}
function on_encounter_start(boss, challenger) table.insert(calls, "start:" .. boss .. ":" .. challenger) end
function on_phase_changed(boss, phase) table.insert(calls, "phase:" .. phase) end
function on_enraged(boss) table.insert(calls, "enraged") end
function on_encounter_end(boss, won) table.insert(calls, "end:" .. tostring(won)) end
function recorded() return table.concat(calls, ",") end
`

func TestBossHooks_NilWithoutScript(t *testing.T) {
	mgr, _ := newTestManager(t)
	def := boss.DefaultDef()
	assert.Nil(t, mgr.BossHooks(&def))
	assert.Nil(t, mgr.BossHooks(nil))
}

func TestBossHooks_DispatchThroughEncounter(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", recordingHooks)
	require.NoError(t, mgr.LoadZone("kitsune", dir, 0))

	def := boss.DefaultDef()
	def.ID = "kitsune_no_okami"
	def.Type = boss.TypeKitsuneNoOkami
	def.Script = "kitsune"
	def.MaxHealth = 100
	v := vitals.New("kitsune", def.VitalsConfig(), nil)
	enc := boss.NewEncounter(&def, boss.DefaultConfig(), v, nil, event.Discard)
	enc.SetHooks(mgr.BossHooks(&def))

	require.True(t, enc.StartEncounter(challengerID("hero")))
	v.ApplyDamage(60, 0, "hero")
	enc.Tick(0.1)
	v.ApplyDamage(40, 0, "hero")

	ret, err := mgr.CallHook("kitsune", "recorded")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("start:kitsune:hero,phase:1,phase:2,end:true"), ret)
}

func TestBossHooks_EnragedHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", recordingHooks)
	require.NoError(t, mgr.LoadZone("zone", dir, 0))

	h := mgr.BossHooks(&boss.Def{Script: "zone"})
	require.NotNil(t, h)
	h.OnEnraged("b")
	ret, _ := mgr.CallHook("zone", "recorded")
	assert.Equal(t, lua.LString("enraged"), ret)
}

type challengerID string

func (c challengerID) ID() string { return string(c) }

var _ boss.Hooks = (*scripting.BossHooks)(nil)
