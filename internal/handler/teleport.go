package handler

import (
	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/world"
)

// TeleportPlayer moves a player to an absolute location and tells the
// session layer to redraw them. The caller decides what the move means
// (arena entry, exit, revive).
func TeleportPlayer(deps *Deps, p *world.PlayerInfo, loc config.Loc) {
	deps.World.UpdatePosition(p.SessionID, loc.X, loc.Y, loc.MapID, loc.Heading)
	deps.Notify.UpdateVisuals(p)
}
