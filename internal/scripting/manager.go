package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/game/dice"
)

// globalZoneID is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no zone VM is found.
const globalZoneID = "__global__"

// CombatantInfo is a snapshot of a combatant's state passed to Lua callbacks.
type CombatantInfo struct {
	ID         string
	Kind       string
	Health     float64
	MaxHealth  float64
	Stamina    float64
	MaxStamina float64
	Energy     float64
	Alive      bool
}

// zoneVM is one loaded script zone. mu serializes calls into L.
type zoneVM struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per script zone and exposes hook dispatch.
//
// Manager is safe for concurrent use. Calls into one zone are serialized;
// different zones run concurrently. Each call gets a fresh instruction budget.
type Manager struct {
	mu     sync.RWMutex
	zones  map[string]*zoneVM
	dirs   map[string]string
	roller *dice.Roller
	logger *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	// They run on the goroutine that invoked the hook.
	GetCombatant func(id string) *CombatantInfo
	ApplyDamage  func(id string, amount float64, kind string) float64
	Heal         func(id string, amount float64)
	SpawnEnemy   func(defID, nearID string) (string, error)
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty zone map.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		zones:  make(map[string]*zoneVM),
		dirs:   make(map[string]string),
		roller: roller,
		logger: logger,
	}
}

// LoadZone creates a sandboxed VM for zoneID, registers all engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
// A zone that is already loaded is replaced only if the new load succeeds.
//
// Precondition: zoneID must be non-empty; scriptDir must be a readable directory.
// Postcondition: Zone VM is registered; returns error on Lua load failure.
func (m *Manager) LoadZone(zoneID, scriptDir string, instLimit int) error {
	return m.loadInto(zoneID, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared scripts accessible
// as a CallHook fallback from any zone.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalZoneID, scriptDir, instLimit)
}

// LoadAll loads every subdirectory of root as a zone named after the
// subdirectory. Lua files directly in root form the global zone.
//
// Postcondition: Returns the number of zones loaded, or the first load error.
func (m *Manager) LoadAll(root string, instLimit int) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script root %q: %w", root, err)
	}
	n := 0
	hasGlobal := false
	for _, e := range entries {
		if !e.IsDir() {
			if filepath.Ext(e.Name()) == ".lua" {
				hasGlobal = true
			}
			continue
		}
		if err := m.LoadZone(e.Name(), filepath.Join(root, e.Name()), instLimit); err != nil {
			return n, err
		}
		n++
	}
	if hasGlobal {
		if err := m.LoadGlobal(root, instLimit); err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReloadFile reloads the zone that owns the changed script at path.
//
// Postcondition: returns false when path belongs to no loaded zone.
func (m *Manager) ReloadFile(path string) (bool, error) {
	dir := filepath.Dir(path)
	m.mu.RLock()
	var zoneID string
	var limit int
	for id, d := range m.dirs {
		if filepath.Clean(d) == filepath.Clean(dir) {
			zoneID = id
			limit = m.zones[id].limit
			break
		}
	}
	m.mu.RUnlock()
	if zoneID == "" {
		return false, nil
	}
	if err := m.loadInto(zoneID, dir, limit); err != nil {
		return true, err
	}
	m.logger.Info("scripting: zone reloaded", zap.String("zone", zoneID))
	return true, nil
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}
	cancel()

	m.mu.Lock()
	old := m.zones[key]
	m.zones[key] = &zoneVM{L: L, limit: instLimit}
	m.dirs[key] = scriptDir
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	return nil
}

// HasZone reports whether zoneID has its own VM.
func (m *Manager) HasZone(zoneID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.zones[zoneID]
	return ok
}

// CallHook calls the named Lua global function in zoneID's VM. If the zone has
// no VM, the __global__ VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(zoneID, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	vm, ok := m.zones[zoneID]
	if !ok {
		vm = m.zones[globalZoneID]
	}
	m.mu.RUnlock()

	if vm == nil {
		m.logger.Info("scripting: no VM for zone",
			zap.String("zone", zoneID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	L := vm.L

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	release := withBudget(L, vm.limit)
	defer release()
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("zone", zoneID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close shuts down every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	zones := m.zones
	m.zones = make(map[string]*zoneVM)
	m.dirs = make(map[string]string)
	m.mu.Unlock()
	for _, vm := range zones {
		vm.mu.Lock()
		vm.L.Close()
		vm.mu.Unlock()
	}
}
