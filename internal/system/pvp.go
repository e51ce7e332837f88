package system

import (
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/scripting"
	"github.com/l1jgo/arena/internal/world"
)

// PvPSystem 負責玩家互擊的仲裁與傷害套用。
// 賽事規則優先：可否攻擊、誤擊隊友、重生保護都先問賽事系統。
// Java: L1PcInstance.onAction()、L1AttackPc
type PvPSystem struct {
	deps *handler.Deps
	tvt  *TvTSystem
}

func NewPvPSystem(deps *handler.Deps, tvt *TvTSystem) *PvPSystem {
	return &PvPSystem{deps: deps, tvt: tvt}
}

// HandlePvPAttack 處理一次近戰攻擊。
func (s *PvPSystem) HandlePvPAttack(attacker, target *world.PlayerInfo) {
	if attacker == nil || target == nil || target.Dead || attacker.Dead {
		return
	}

	if !s.deps.Match.IsCombatAllowed(attacker, target) {
		return
	}
	// 隊友誤擊只播動畫不扣血。
	if s.deps.Match.IsFriendlyFire(attacker, target) {
		return
	}
	// 重生保護中的目標免疫傷害。
	if s.tvt != nil && s.tvt.IsProtected(target.CharID) {
		return
	}

	base := 4 + int(attacker.Level)/3
	result := s.deps.Scripting.CalcMeleeDamage(scripting.CombatContext{
		AttackerLevel: int(attacker.Level),
		TargetLevel:   int(target.Level),
		BaseDamage:    base,
	})

	damage := int16(result.Damage)
	if damage <= 0 {
		return
	}

	target.HP -= damage
	if target.HP < 0 {
		target.HP = 0
	}
	s.deps.Notify.UpdateVisuals(target)

	if target.HP <= 0 {
		s.deps.Death.KillPlayer(target)
		s.deps.Match.OnKill(attacker, target)
	}
}
