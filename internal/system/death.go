package system

// DeathSystem 處理玩家死亡與復活。
// Java: L1PcInstance.death()、L1PcInstance.resurrect()

import (
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

type DeathSystem struct {
	deps *handler.Deps
}

func NewDeathSystem(deps *handler.Deps) *DeathSystem {
	return &DeathSystem{deps: deps}
}

// KillPlayer implements handler.DeathManager，處理玩家死亡。
func (s *DeathSystem) KillPlayer(player *world.PlayerInfo) {
	if player.Dead {
		return
	}

	player.Dead = true
	player.HP = 0
	s.deps.Notify.UpdateVisuals(player)

	s.deps.Log.Info("玩家死亡",
		zap.String("name", player.Name),
		zap.Int32("x", player.X), zap.Int32("y", player.Y))
}

// RevivePlayer implements handler.DeathManager，滿血復活。
// 賽事重生走這條路；位置由呼叫端另行傳送。
func (s *DeathSystem) RevivePlayer(player *world.PlayerInfo) {
	if !player.Dead {
		return
	}

	player.Dead = false
	player.HP = player.MaxHP
	if player.HP < 1 {
		player.HP = 1
	}
	s.deps.Notify.UpdateVisuals(player)

	s.deps.Log.Info("玩家復活",
		zap.String("name", player.Name), zap.Int16("hp", player.HP))
}
