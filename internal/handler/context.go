package handler

import (
	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/core/sched"
	"github.com/l1jgo/arena/internal/data"
	"github.com/l1jgo/arena/internal/persist"
	"github.com/l1jgo/arena/internal/scripting"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all systems.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	World     *world.State
	Bus       *event.Bus
	Sched     *sched.Scheduler
	Scripting *scripting.Engine
	Items     *data.ItemTable
	Npcs      *data.NpcTable
	CharRepo  *persist.CharacterRepo
	WALRepo   *persist.WALRepo
	Notify    Notifier

	Match MatchManager
	Death DeathManager

	// ExclusiveActivity reports whether a world activity that excludes
	// arena matches (a castle siege, for instance) is in progress. Nil
	// means no such activity ever runs.
	ExclusiveActivity func() bool
}

// MatchManager is the match orchestrator as seen by the combat path and by
// the session layer.
type MatchManager interface {
	IsParticipant(charID int32) bool
	IsCombatAllowed(attacker, target *world.PlayerInfo) bool
	IsFriendlyFire(attacker, target *world.PlayerInfo) bool
	OnKill(killer, victim *world.PlayerInfo)
	OnDisconnect(p *world.PlayerInfo)
}

// DeathManager handles player death and revival.
type DeathManager interface {
	KillPlayer(p *world.PlayerInfo)
	RevivePlayer(p *world.PlayerInfo)
}
