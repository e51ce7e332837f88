package world

import "sync/atomic"

// npcIDCounter generates unique NPC object IDs.
// Starts at 200_000_000 to avoid collision with character DB IDs.
var npcIDCounter atomic.Int32

func init() {
	npcIDCounter.Store(200_000_000)
}

// NextNpcID returns a unique object ID for an NPC instance.
func NextNpcID() int32 {
	return npcIDCounter.Add(1)
}

// NpcInfo holds runtime data for an NPC currently in-world.
type NpcInfo struct {
	ID      int32 // unique object ID (from NextNpcID)
	NpcID   int32 // template ID
	Impl    string
	GfxID   int32
	Name    string
	NameID  string // client string table key (e.g. "$936")
	Level   int16
	X       int32
	Y       int32
	MapID   int16
	Heading int16
	HP      int32
	MaxHP   int32
	Lawful  int32
}
