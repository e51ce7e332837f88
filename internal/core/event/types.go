package event

// Match lifecycle events, observable by any system on the bus.

// MatchOpened fires when a registration window opens.
type MatchOpened struct {
	RegSeconds int
}

// MatchStarted fires when teams are formed and the fight begins.
type MatchStarted struct {
	Team1 int // participant counts
	Team2 int
}

// MatchEnded fires after rewards are handed out, before cleanup.
type MatchEnded struct {
	WinnerTeam int // 0 = tie
	Team1Kills int
	Team2Kills int
	Aborted    bool
}

// PlayerKilled fires for every kill inside a match.
type PlayerKilled struct {
	KillerID int32
	VictimID int32
	Team     int // killer's team
}

// PlayerDisconnected fires when a session drops; the match system removes
// the player from the roster on this event.
type PlayerDisconnected struct {
	CharID    int32
	SessionID uint64
}
