package scripting

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const rewardScript = `
function calc_match_reward(ctx)
    local amount = ctx.base_amount + ctx.kills * 10
    if ctx.mvp then
        amount = math.floor(amount * 1.5)
    end
    return { amount = amount }
end
`

func newTestEngine(t *testing.T, script string) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tvt"), 0o755))
	if script != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tvt", "reward.lua"), []byte(script), 0o644))
	}
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestCalcReward(t *testing.T) {
	e := newTestEngine(t, rewardScript)

	res := e.CalcReward(RewardContext{Kills: 3, BaseAmount: 200})
	require.Equal(t, 230, res.Amount)

	res = e.CalcReward(RewardContext{Kills: 3, MVP: true, BaseAmount: 200})
	require.Equal(t, 345, res.Amount)
}

func TestCalcRewardFallbacks(t *testing.T) {
	// Missing function: base amount unchanged.
	e := newTestEngine(t, "")
	res := e.CalcReward(RewardContext{Kills: 5, BaseAmount: 100})
	require.Equal(t, 100, res.Amount)

	// Script error: fall back.
	e2 := newTestEngine(t, `function calc_match_reward(ctx) error("boom") end`)
	res = e2.CalcReward(RewardContext{BaseAmount: 100})
	require.Equal(t, 100, res.Amount)

	// Non-positive result: fall back.
	e3 := newTestEngine(t, `function calc_match_reward(ctx) return { amount = -5 } end`)
	res = e3.CalcReward(RewardContext{BaseAmount: 100})
	require.Equal(t, 100, res.Amount)

	// Nil engine: safe.
	var nilEngine *Engine
	res = nilEngine.CalcReward(RewardContext{BaseAmount: 42})
	require.Equal(t, 42, res.Amount)
}

func TestConcurrentFormulaCalls(t *testing.T) {
	// The combat path and the settlement path hit the VM from different
	// goroutines; the engine must serialize them itself.
	e := newTestEngine(t, rewardScript+`
function calc_melee_damage(ctx)
    return { damage = ctx.base_damage + 1 }
end
`)

	var wg sync.WaitGroup
	var bad atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if res := e.CalcReward(RewardContext{Kills: 1, BaseAmount: 100}); res.Amount != 110 {
					bad.Add(1)
				}
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if res := e.CalcMeleeDamage(CombatContext{BaseDamage: 5}); res.Damage != 6 {
					bad.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	require.Zero(t, bad.Load())
}

func TestCalcMeleeDamage(t *testing.T) {
	e := newTestEngine(t, `
function calc_melee_damage(ctx)
    return { damage = ctx.base_damage + 2 }
end
`)
	res := e.CalcMeleeDamage(CombatContext{AttackerLevel: 10, BaseDamage: 7})
	require.Equal(t, 9, res.Damage)

	var nilEngine *Engine
	res = nilEngine.CalcMeleeDamage(CombatContext{BaseDamage: 7})
	require.Equal(t, 7, res.Damage)
}
