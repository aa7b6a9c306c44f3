// Package scripting provides a sandboxed GopherLua execution environment
// for boss encounter scripts. Game interactions reach Lua only through the
// engine.* modules, whose behavior is injected via Manager callback fields.
package scripting

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one load or hook call when
// no zone-specific limit is configured.
const DefaultInstructionLimit = 100_000

// safeLibs are the only standard libraries a boss script sees.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// strippedGlobals are removed after the base library loads. print is gone
// because scripts log through engine.log.
var strippedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "print"}

// strippedMath keeps every roll on the engine dice so it is logged.
var strippedMath = []string{"random", "randomseed"}

// budget is a context whose Done channel closes once it has been polled
// limit times. The VM polls Done once per opcode, so the budget is an exact
// instruction count. An LState is single-goroutine, so no atomics.
type budget struct {
	context.Context
	cancel    context.CancelFunc
	remaining int
}

func (b *budget) Done() <-chan struct{} {
	b.remaining--
	if b.remaining <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// NewSandboxedState creates an LState with only the safe libraries, the
// dangerous globals stripped and an instruction budget installed.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller owns the LState and must call release and then
// L.Close() when done.
func NewSandboxedState(instLimit int) (L *lua.LState, release context.CancelFunc) {
	L = lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if mathLib, ok := L.GetGlobal(lua.MathLibName).(*lua.LTable); ok {
		for _, name := range strippedMath {
			mathLib.RawSetString(name, lua.LNil)
		}
	}
	return L, withBudget(L, instLimit)
}

// withBudget installs a fresh instruction budget on L. The returned function
// releases it and leaves L without a context.
func withBudget(L *lua.LState, instLimit int) context.CancelFunc {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	L.SetContext(&budget{Context: ctx, cancel: cancel, remaining: instLimit})
	return func() {
		cancel()
		L.RemoveContext()
	}
}
