package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/yomi/internal/game/boss"
)

// Boss encounter hook names looked up in a zone's globals.
const (
	HookEncounterStart = "on_encounter_start"
	HookPhaseChanged   = "on_phase_changed"
	HookEnraged        = "on_enraged"
	HookEncounterEnd   = "on_encounter_end"
)

// BossHooks dispatches boss encounter callbacks to the Lua functions of one
// script zone. Undefined hooks are skipped.
type BossHooks struct {
	m    *Manager
	zone string
}

// BossHooks returns the hook adapter for def's script zone, or nil when the
// boss has no script.
func (m *Manager) BossHooks(def *boss.Def) boss.Hooks {
	if def == nil || def.Script == "" {
		return nil
	}
	return &BossHooks{m: m, zone: def.Script}
}

// Zone returns the script zone the hooks dispatch to.
func (h *BossHooks) Zone() string { return h.zone }

func (h *BossHooks) OnEncounterStart(bossID, challengerID string) {
	h.m.CallHook(h.zone, HookEncounterStart, lua.LString(bossID), lua.LString(challengerID)) //nolint:errcheck
}

func (h *BossHooks) OnPhaseChanged(bossID string, phase int) {
	h.m.CallHook(h.zone, HookPhaseChanged, lua.LString(bossID), lua.LNumber(phase)) //nolint:errcheck
}

func (h *BossHooks) OnEnraged(bossID string) {
	h.m.CallHook(h.zone, HookEnraged, lua.LString(bossID)) //nolint:errcheck
}

func (h *BossHooks) OnEncounterEnd(bossID string, won bool) {
	h.m.CallHook(h.zone, HookEncounterEnd, lua.LString(bossID), lua.LBool(won)) //nolint:errcheck
}
