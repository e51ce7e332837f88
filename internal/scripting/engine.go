package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for tunable game formulas.
// lua.LState is not goroutine safe; mu serializes every call into it
// (the combat path and the scheduler-driven settlement path run on
// different goroutines).
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "tvt"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// RewardContext holds pre-packed data for a single participant's reward.
type RewardContext struct {
	Kills      int
	Deaths     int
	Team       int
	Winner     bool
	Tie        bool
	MVP        bool
	BaseAmount int // configured amount for the player's outcome bracket
}

// RewardResult is returned by the Lua reward function.
type RewardResult struct {
	Amount int
}

// CalcReward calls the Lua calc_match_reward function. When the script or
// function is missing the configured base amount is used unchanged.
func (e *Engine) CalcReward(ctx RewardContext) RewardResult {
	fallback := RewardResult{Amount: ctx.BaseAmount}
	if e == nil {
		return fallback
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("calc_match_reward")
	if fn == lua.LNil {
		return fallback
	}

	// Build context table
	t := e.vm.NewTable()
	t.RawSetString("kills", lua.LNumber(ctx.Kills))
	t.RawSetString("deaths", lua.LNumber(ctx.Deaths))
	t.RawSetString("team", lua.LNumber(ctx.Team))
	t.RawSetString("base_amount", lua.LNumber(ctx.BaseAmount))
	if ctx.Winner {
		t.RawSetString("winner", lua.LTrue)
	} else {
		t.RawSetString("winner", lua.LFalse)
	}
	if ctx.Tie {
		t.RawSetString("tie", lua.LTrue)
	} else {
		t.RawSetString("tie", lua.LFalse)
	}
	if ctx.MVP {
		t.RawSetString("mvp", lua.LTrue)
	} else {
		t.RawSetString("mvp", lua.LFalse)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_match_reward error", zap.Error(err))
		return fallback
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua calc_match_reward returned non-table")
		return fallback
	}

	amount := lInt(rt, "amount")
	if amount <= 0 {
		return fallback
	}
	return RewardResult{Amount: amount}
}

// CombatContext holds pre-packed data for one melee swing.
type CombatContext struct {
	AttackerLevel int
	TargetLevel   int
	BaseDamage    int
}

// CombatResult is returned by the Lua melee function.
type CombatResult struct {
	Damage int
}

// CalcMeleeDamage calls the Lua calc_melee_damage function, falling back to
// the base damage when the script is missing or errors.
func (e *Engine) CalcMeleeDamage(ctx CombatContext) CombatResult {
	fallback := CombatResult{Damage: ctx.BaseDamage}
	if e == nil {
		return fallback
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("calc_melee_damage")
	if fn == lua.LNil {
		return fallback
	}

	t := e.vm.NewTable()
	t.RawSetString("attacker_level", lua.LNumber(ctx.AttackerLevel))
	t.RawSetString("target_level", lua.LNumber(ctx.TargetLevel))
	t.RawSetString("base_damage", lua.LNumber(ctx.BaseDamage))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_melee_damage error", zap.Error(err))
		return fallback
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua calc_melee_damage returned non-table")
		return fallback
	}

	dmg := lInt(rt, "damage")
	if dmg < 0 {
		return fallback
	}
	return CombatResult{Damage: dmg}
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
