package handler

import (
	"fmt"

	"github.com/l1jgo/arena/internal/world"
)

// GiveResult reports why an item grant succeeded or was refused.
type GiveResult int

const (
	GiveOK GiveResult = iota
	GiveUnknownItem
	GiveInventoryFull
	GiveOverWeight
)

// CanCarry checks whether a grant of itemID x count would fit the player's
// inventory, without performing it. Weight uses a generous default capacity
// when the template carries no stats.
func CanCarry(deps *Deps, p *world.PlayerInfo, itemID int32, count int32) GiveResult {
	info := deps.Items.Get(itemID)
	if info == nil {
		return GiveUnknownItem
	}
	if p.Inv == nil {
		return GiveInventoryFull
	}
	// A stackable item already in the bag never needs a new slot.
	needsSlot := !info.Stackable || p.Inv.FindByItemID(itemID) == nil
	if needsSlot && p.Inv.IsFull() {
		return GiveInventoryFull
	}
	maxW := world.MaxWeight(25, 25)
	if p.Inv.IsOverWeight(info.Weight*count, maxW) {
		return GiveOverWeight
	}
	return GiveOK
}

// GiveItem grants itemID x count to the player after a capacity pre-check.
// On success the player is told what they received.
func GiveItem(deps *Deps, p *world.PlayerInfo, itemID int32, count int32) GiveResult {
	if res := CanCarry(deps, p, itemID, count); res != GiveOK {
		return res
	}
	info := deps.Items.Get(itemID)
	p.Inv.AddItem(itemID, count, info.Name, info.InvGfx, info.Weight, info.Stackable, byte(info.Bless))
	deps.Notify.Tell(p, fmt.Sprintf("獲得 %s (%d)。", info.Name, count))
	return GiveOK
}
