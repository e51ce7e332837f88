package world

import (
	"math"
	"sync/atomic"
)

const (
	MaxInventorySize = 180
	AdenaItemID      = 40308
)

// itemObjIDCounter generates unique item object IDs.
// Starts at 500_000_000 to avoid collision with char IDs and NPC IDs.
var itemObjIDCounter atomic.Int32

func init() {
	itemObjIDCounter.Store(500_000_000)
}

// NextItemObjID returns a unique object ID for an item instance.
func NextItemObjID() int32 {
	return itemObjIDCounter.Add(1)
}

// InvItem represents a single item instance in a player's inventory.
type InvItem struct {
	ObjectID   int32  // unique per instance
	ItemID     int32  // template ID
	Name       string // display name
	InvGfx     int32  // inventory graphic ID
	Count      int32  // stack count (1 for non-stackable)
	Identified bool
	Bless      byte // 0=normal, 1=blessed, 2=cursed
	Stackable  bool
	Weight     int32 // per-unit weight
}

// Inventory holds a player's in-memory item list.
// Accessed under the same lock as the owning player.
type Inventory struct {
	Items []*InvItem
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		Items: make([]*InvItem, 0, 16),
	}
}

// FindByItemID returns the first item matching the template ID (for stackable items).
func (inv *Inventory) FindByItemID(itemID int32) *InvItem {
	for _, it := range inv.Items {
		if it.ItemID == itemID {
			return it
		}
	}
	return nil
}

// FindByObjectID returns the item with the given object ID.
func (inv *Inventory) FindByObjectID(objectID int32) *InvItem {
	for _, it := range inv.Items {
		if it.ObjectID == objectID {
			return it
		}
	}
	return nil
}

// Size returns the number of item slots used.
func (inv *Inventory) Size() int {
	return len(inv.Items)
}

// IsFull returns true if inventory is at max capacity.
func (inv *Inventory) IsFull() bool {
	return len(inv.Items) >= MaxInventorySize
}

// AddItem adds or stacks an item. Returns the affected item (new or existing).
func (inv *Inventory) AddItem(itemID int32, count int32, name string, invGfx int32, weight int32, stackable bool, bless byte) *InvItem {
	if stackable {
		existing := inv.FindByItemID(itemID)
		if existing != nil {
			existing.Count += count
			return existing
		}
	}

	item := &InvItem{
		ObjectID:   NextItemObjID(),
		ItemID:     itemID,
		Name:       name,
		InvGfx:     invGfx,
		Count:      count,
		Identified: true,
		Stackable:  stackable,
		Weight:     weight,
		Bless:      bless,
	}
	inv.Items = append(inv.Items, item)
	return item
}

// RemoveItem removes count from a stackable item or removes the item entirely.
// Returns true if the item was fully removed (slot freed), false if just decremented.
func (inv *Inventory) RemoveItem(objectID int32, count int32) (removed bool) {
	for i, it := range inv.Items {
		if it.ObjectID == objectID {
			if it.Stackable && it.Count > count {
				it.Count -= count
				return false
			}
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
			return true
		}
	}
	return false
}

// GetAdena returns the current adena count.
func (inv *Inventory) GetAdena() int32 {
	item := inv.FindByItemID(AdenaItemID)
	if item == nil {
		return 0
	}
	return item.Count
}

// TotalWeight returns the total carried weight in display units.
// Java: each item weight = max(count * templateWeight / 1000, 1); sum all.
func (inv *Inventory) TotalWeight() int32 {
	var total int32
	for _, it := range inv.Items {
		if it.Weight == 0 {
			continue
		}
		w := it.Count * it.Weight / 1000
		if w < 1 {
			w = 1
		}
		total += w
	}
	return total
}

// MaxWeight calculates max carrying capacity from STR/CON.
// Java: 150 * floor(0.6*STR + 0.4*CON + 1)
func MaxWeight(str, con int16) int32 {
	return int32(150 * math.Floor(0.6*float64(str)+0.4*float64(con)+1))
}

// IsOverWeight returns true if adding the given raw template weight would exceed capacity.
func (inv *Inventory) IsOverWeight(addWeight int32, maxWeight int32) bool {
	extra := addWeight / 1000
	if extra < 1 && addWeight > 0 {
		extra = 1
	}
	return inv.TotalWeight()+extra >= maxWeight
}
