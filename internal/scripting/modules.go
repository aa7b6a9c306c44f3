package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/game/dice"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.dice.roll(expr) -> {total, dice, modifier} | nil
//	engine.dice.chance(p) -> bool
//	engine.combat.query(id) -> {id, kind, health, max_health, stamina, max_stamina, energy, alive} | nil
//	engine.combat.damage(id, amount, kind) -> dealt
//	engine.combat.heal(id, amount)
//	engine.combat.spawn(def_id, near_id) -> id | nil
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "combat", m.combatModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		fn := fn
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(func(L *lua.LState) int {
		expr, err := dice.Parse(L.CheckString(1))
		if err != nil {
			m.logger.Warn("scripting: bad dice expression", zap.Error(err))
			L.Push(lua.LNil)
			return 1
		}
		res := m.roller.Roll(expr)
		t := L.NewTable()
		t.RawSetString("total", lua.LNumber(res.Total()))
		rolls := L.NewTable()
		for _, d := range res.Dice {
			rolls.Append(lua.LNumber(d))
		}
		t.RawSetString("dice", rolls)
		t.RawSetString("modifier", lua.LNumber(res.Modifier))
		L.Push(t)
		return 1
	}))
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(m.roller.Chance(float64(L.CheckNumber(1)))))
		return 1
	}))
	return mod
}

func (m *Manager) combatModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "query", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		if m.GetCombatant == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetCombatant(id)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		t.RawSetString("id", lua.LString(info.ID))
		t.RawSetString("kind", lua.LString(info.Kind))
		t.RawSetString("health", lua.LNumber(info.Health))
		t.RawSetString("max_health", lua.LNumber(info.MaxHealth))
		t.RawSetString("stamina", lua.LNumber(info.Stamina))
		t.RawSetString("max_stamina", lua.LNumber(info.MaxStamina))
		t.RawSetString("energy", lua.LNumber(info.Energy))
		t.RawSetString("alive", lua.LBool(info.Alive))
		L.Push(t)
		return 1
	}))
	L.SetField(mod, "damage", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		amount := float64(L.CheckNumber(2))
		kind := L.OptString(3, "physical")
		if m.ApplyDamage == nil {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(m.ApplyDamage(id, amount, kind)))
		return 1
	}))
	L.SetField(mod, "heal", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		amount := float64(L.CheckNumber(2))
		if m.Heal != nil {
			m.Heal(id, amount)
		}
		return 0
	}))
	L.SetField(mod, "spawn", L.NewFunction(func(L *lua.LState) int {
		defID := L.CheckString(1)
		nearID := L.OptString(2, "")
		if m.SpawnEnemy == nil {
			L.Push(lua.LNil)
			return 1
		}
		id, err := m.SpawnEnemy(defID, nearID)
		if err != nil {
			m.logger.Warn("scripting: spawn refused", zap.String("def", defID), zap.Error(err))
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(id))
		return 1
	}))
	return mod
}
