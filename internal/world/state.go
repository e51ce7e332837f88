package world

import "sync"

// PlayerInfo holds in-memory data for a player currently in-world.
// Match-related fields (Match, visuals) are guarded by the match system's
// lock; the world index itself is guarded by State.mu.
type PlayerInfo struct {
	SessionID uint64
	CharID    int32 // DB ID, used as object ID in packets
	Name      string
	IP        string // remote address, registration limit key
	X         int32
	Y         int32
	MapID     int16
	Heading   int16
	ClassID   int32 // GFX
	Level     int16
	Lawful    int32 // < 0 = PK-flagged
	Title     string
	NameColor int32
	Aura      int32 // continuous visual-effect mask
	HP        int16
	MaxHP     int16
	Dead      bool

	// Automated marks server-driven characters (merchants, test drivers).
	// They never enter matches and never receive rewards.
	Automated bool

	Inv *Inventory

	// Match is non-nil while the player is part of a running match.
	Match *MatchData
}

// State tracks all players and NPCs currently in-world. Unlike a pure
// tick-loop server this index is also read from scheduler goroutines, so it
// carries its own lock.
type State struct {
	mu        sync.RWMutex
	bySession map[uint64]*PlayerInfo // SessionID → PlayerInfo
	byCharID  map[int32]*PlayerInfo  // CharID → PlayerInfo
	byName    map[string]*PlayerInfo // CharName → PlayerInfo

	npcs map[int32]*NpcInfo // NPC object ID → NpcInfo
}

func NewState() *State {
	return &State{
		bySession: make(map[uint64]*PlayerInfo),
		byCharID:  make(map[int32]*PlayerInfo),
		byName:    make(map[string]*PlayerInfo),
		npcs:      make(map[int32]*NpcInfo),
	}
}

// AddPlayer registers a player in the world.
func (s *State) AddPlayer(p *PlayerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySession[p.SessionID] = p
	s.byCharID[p.CharID] = p
	s.byName[p.Name] = p
}

// RemovePlayer removes a player from the world.
func (s *State) RemovePlayer(sessionID uint64) *PlayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.bySession[sessionID]
	if !ok {
		return nil
	}
	delete(s.bySession, sessionID)
	delete(s.byCharID, p.CharID)
	delete(s.byName, p.Name)
	return p
}

// GetBySession returns a player by session ID.
func (s *State) GetBySession(sessionID uint64) *PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bySession[sessionID]
}

// GetByCharID returns a player by character DB ID.
func (s *State) GetByCharID(charID int32) *PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byCharID[charID]
}

// GetByName returns a player by character name.
func (s *State) GetByName(name string) *PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[name]
}

// UpdatePosition moves a player.
func (s *State) UpdatePosition(sessionID uint64, newX, newY int32, newMapID int16, heading int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.bySession[sessionID]
	if p == nil {
		return
	}
	p.X = newX
	p.Y = newY
	p.MapID = newMapID
	p.Heading = heading
}

// PlayerCount returns the number of players in-world.
func (s *State) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySession)
}

// AllPlayers returns a snapshot of all in-world players.
func (s *State) AllPlayers() []*PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*PlayerInfo, 0, len(s.bySession))
	for _, p := range s.bySession {
		out = append(out, p)
	}
	return out
}

// --- NPC methods ---

// AddNpc registers an NPC in the world.
func (s *State) AddNpc(npc *NpcInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.npcs[npc.ID] = npc
}

// GetNpc returns an NPC by its object ID.
func (s *State) GetNpc(id int32) *NpcInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.npcs[id]
}

// RemoveNpc removes an NPC from the world.
func (s *State) RemoveNpc(npcID int32) *NpcInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	npc, ok := s.npcs[npcID]
	if !ok {
		return nil
	}
	delete(s.npcs, npcID)
	return npc
}

// NpcCount returns total NPC count.
func (s *State) NpcCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.npcs)
}
