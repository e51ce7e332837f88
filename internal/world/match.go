package world

// Team identifiers inside a match. Team 0 means "no team".
const (
	TeamNone = 0
	TeamRed  = 1
	TeamBlue = 2
)

// MatchData is per-player state for the duration of a match. It carries the
// score and the snapshot of the visuals and position restored at cleanup.
// Guarded by the match system's lock, like PlayerInfo's match fields.
type MatchData struct {
	Team   int
	Kills  int
	Deaths int

	// Snapshot taken when the player was pulled into the arena.
	OrigX         int32
	OrigY         int32
	OrigMapID     int16
	OrigHeading   int16
	OrigTitle     string
	OrigNameColor int32
	OrigAura      int32

	// IP the player registered from; reward dedup key.
	IP string

	// Protected is set right after a teleport into the arena and cleared
	// when the protection window elapses.
	Protected bool
}
