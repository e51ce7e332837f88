package handler

import (
	"go.uber.org/zap"

	"github.com/l1jgo/arena/internal/world"
)

// Notifier delivers player-visible text and visual updates. The session
// layer plugs in its packet-backed implementation; LogNotifier is the
// default so systems never nil-check.
type Notifier interface {
	// Tell sends a private system message to one player.
	Tell(p *world.PlayerInfo, msg string)
	// Announce sends a server-wide system message.
	Announce(msg string)
	// UpdateVisuals pushes the player's current name color, title and aura
	// to everyone who can see them.
	UpdateVisuals(p *world.PlayerInfo)
}

// LogNotifier writes notifications to the server log only.
type LogNotifier struct {
	Log *zap.Logger
}

func (n *LogNotifier) Tell(p *world.PlayerInfo, msg string) {
	n.Log.Info("tell", zap.String("to", p.Name), zap.String("msg", msg))
}

func (n *LogNotifier) Announce(msg string) {
	n.Log.Info("announce", zap.String("msg", msg))
}

func (n *LogNotifier) UpdateVisuals(p *world.PlayerInfo) {
	n.Log.Debug("visuals",
		zap.String("name", p.Name),
		zap.Int32("color", p.NameColor),
		zap.Int32("aura", p.Aura),
		zap.String("title", p.Title))
}
