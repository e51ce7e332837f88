package system

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/core/sched"
	"github.com/l1jgo/arena/internal/data"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/world"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testItemYAML = `items:
  - item_id: 40308
    name: adena
    inv_gfx: 739
    grd_gfx: 758
    weight: 4
    stackable: true
    bless: 1
    tradeable: true
`

func testItemTable(t *testing.T) *data.ItemTable {
	t.Helper()
	path := filepath.Join(t.TempDir(), "item_list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testItemYAML), 0o644))
	table, err := data.LoadItemTable(path)
	require.NoError(t, err)
	return table
}

func newTestSystem(t *testing.T, mod func(*config.TvTConfig)) (*TvTSystem, *handler.Deps) {
	t.Helper()

	tvtCfg := config.DefaultTvT()
	tvtCfg.Enabled = true
	tvtCfg.MinPlayers = 2
	tvtCfg.MinLevel = 10
	tvtCfg.MaxLevel = 80
	tvtCfg.KillRewardMinKills = 0
	tvtCfg.RegistrationTime = time.Minute
	tvtCfg.EventTime = time.Minute
	tvtCfg.RespawnDelay = 20 * time.Millisecond
	tvtCfg.SpawnProtection = 40 * time.Millisecond
	tvtCfg.Team1Spawn = "100,100,5"
	tvtCfg.Team2Spawn = "200,200,5"
	tvtCfg.ExitLoc = "50,50,4"
	tvtCfg.RegistrationNpcID = 0
	tvtCfg.BufferNpcID = 0
	if mod != nil {
		mod(&tvtCfg)
	}
	tvtCfg.Resolve()

	log := zap.NewNop()
	deps := &handler.Deps{
		Config: &config.Config{TvT: tvtCfg},
		Log:    log,
		World:  world.NewState(),
		Bus:    event.NewBus(),
		Sched:  sched.New(log),
		Items:  testItemTable(t),
		Notify: &handler.LogNotifier{Log: log},
	}
	tvt := NewTvTSystem(deps)
	deps.Match = tvt
	deps.Death = NewDeathSystem(deps)

	t.Cleanup(tvt.Cleanup)
	return tvt, deps
}

func addPlayer(deps *handler.Deps, id int32, ip string, level int16) *world.PlayerInfo {
	p := &world.PlayerInfo{
		SessionID: uint64(id),
		CharID:    id,
		Name:      fmt.Sprintf("player%d", id),
		IP:        ip,
		Level:     level,
		HP:        30,
		MaxHP:     30,
		X:         10,
		Y:         10,
		MapID:     4,
		NameColor: 0xFFFFFF,
		Inv:       world.NewInventory(),
	}
	deps.World.AddPlayer(p)
	return p
}

// kill runs the full kill path the combat system uses.
func kill(deps *handler.Deps, killer, victim *world.PlayerInfo) {
	deps.Death.KillPlayer(victim)
	deps.Match.OnKill(killer, victim)
}

func TestRegisterGuards(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	p := addPlayer(deps, 1, "10.0.0.1", 40)

	require.Equal(t, RegNotInRegistrationPhase, tvt.Register(p))

	require.NoError(t, tvt.ForceOpen())
	require.Equal(t, PhaseRegistration, tvt.CurrentPhase())

	low := addPlayer(deps, 2, "10.0.0.2", 5)
	require.Equal(t, RegLevelOutOfRange, tvt.Register(low))

	high := addPlayer(deps, 3, "10.0.0.3", 99)
	require.Equal(t, RegLevelOutOfRange, tvt.Register(high))

	pk := addPlayer(deps, 4, "10.0.0.4", 40)
	pk.Lawful = -100
	require.Equal(t, RegKarmaNotAllowed, tvt.Register(pk))

	bot := addPlayer(deps, 5, "10.0.0.5", 40)
	bot.Automated = true
	require.Equal(t, RegAutomatedNotAllowed, tvt.Register(bot))

	require.Equal(t, RegisterOK, tvt.Register(p))
	require.True(t, tvt.IsRegistered(p.CharID))
	require.Equal(t, 1, tvt.RegisteredCount())

	// Duplicate registration leaves the count unchanged.
	require.Equal(t, RegAlreadyRegistered, tvt.Register(p))
	require.Equal(t, 1, tvt.RegisteredCount())
}

func TestRegisterAddressLimit(t *testing.T) {
	tvt, deps := newTestSystem(t, func(c *config.TvTConfig) { c.MaxPerIP = 2 })
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.0.0.9", 40)
	b := addPlayer(deps, 2, "10.0.0.9", 40)
	c := addPlayer(deps, 3, "10.0.0.9", 40)

	require.Equal(t, RegisterOK, tvt.Register(a))
	require.Equal(t, RegisterOK, tvt.Register(b))
	require.Equal(t, RegAddressLimitReached, tvt.Register(c))

	// Unregister frees the slot.
	require.Equal(t, RegisterOK, tvt.Unregister(b))
	require.Equal(t, RegisterOK, tvt.Register(c))
}

func TestRegisterCapacity(t *testing.T) {
	tvt, deps := newTestSystem(t, func(c *config.TvTConfig) { c.MaxPlayers = 2 })
	require.NoError(t, tvt.ForceOpen())

	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 1, "10.0.1.1", 40)))
	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 2, "10.0.1.2", 40)))
	require.Equal(t, RegCapacityReached, tvt.Register(addPlayer(deps, 3, "10.0.1.3", 40)))
}

func TestAbortBelowMinimum(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())
	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 1, "10.0.2.1", 40)))

	require.NoError(t, tvt.ForceStart())
	require.Equal(t, PhaseIdle, tvt.CurrentPhase())
	require.Equal(t, 0, tvt.RegisteredCount())
}

func TestTeamSplitAlternates(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())

	players := make([]*world.PlayerInfo, 0, 6)
	// Register out of identifier order; the split must not depend on it.
	for _, id := range []int32{5, 1, 3, 6, 2, 4} {
		p := addPlayer(deps, id, fmt.Sprintf("10.1.0.%d", id), 40)
		require.Equal(t, RegisterOK, tvt.Register(p))
		players = append(players, p)
	}

	require.NoError(t, tvt.ForceStart())
	require.True(t, tvt.IsRunning())

	red, blue := 0, 0
	for _, p := range players {
		require.NotNil(t, p.Match)
		md, ok := tvt.ParticipantData(p.CharID)
		require.True(t, ok)
		switch md.Team {
		case world.TeamRed:
			red++
		case world.TeamBlue:
			blue++
		}
	}
	require.Equal(t, 3, red)
	require.Equal(t, 3, blue)

	// Sorted by identifier, odd positions go blue: 1,3,5 red / 2,4,6 blue.
	for _, p := range players {
		want := world.TeamRed
		if p.CharID%2 == 0 {
			want = world.TeamBlue
		}
		require.Equal(t, want, p.Match.Team, "char %d", p.CharID)
	}

	// Teleported to their team spawn. Invulnerability only comes with a
	// scheduled respawn, never on initial entry.
	for _, p := range players {
		if p.Match.Team == world.TeamRed {
			require.Equal(t, int32(100), p.X)
		} else {
			require.Equal(t, int32(200), p.X)
		}
		require.False(t, tvt.IsProtected(p.CharID))
	}
}

func TestVisualsSnapshotAndRestore(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.2.0.1", 40)
	a.Title = "老玩家"
	a.NameColor = 0x00FF00
	b := addPlayer(deps, 2, "10.2.0.2", 40)
	require.Equal(t, RegisterOK, tvt.Register(a))
	require.Equal(t, RegisterOK, tvt.Register(b))
	require.NoError(t, tvt.ForceStart())

	require.Equal(t, "紅隊", a.Title)
	require.NotEqual(t, int32(0x00FF00), a.NameColor)
	require.NotZero(t, a.Aura)

	require.NoError(t, tvt.ForceEnd())
	require.Equal(t, PhaseIdle, tvt.CurrentPhase())

	require.Equal(t, "老玩家", a.Title)
	require.Equal(t, int32(0x00FF00), a.NameColor)
	require.Zero(t, a.Aura)
	// Survivors land on the exit location.
	require.Equal(t, int32(50), a.X)
	require.Equal(t, int16(4), a.MapID)
}

func TestCombatPredicates(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)

	a := addPlayer(deps, 1, "10.3.0.1", 40)
	b := addPlayer(deps, 2, "10.3.0.2", 40)
	out := addPlayer(deps, 3, "10.3.0.3", 40)

	// Outside RUNNING the system does not restrict combat.
	require.True(t, tvt.IsCombatAllowed(a, b))
	require.False(t, tvt.IsFriendlyFire(a, b))

	require.NoError(t, tvt.ForceOpen())
	require.Equal(t, RegisterOK, tvt.Register(a))
	require.Equal(t, RegisterOK, tvt.Register(b))
	require.NoError(t, tvt.ForceStart())

	// a=red (char 1), b=blue (char 2): opposite teams.
	require.True(t, tvt.IsCombatAllowed(a, b))
	require.False(t, tvt.IsFriendlyFire(a, b))

	// Participant vs outsider is always blocked, both directions.
	require.False(t, tvt.IsCombatAllowed(a, out))
	require.False(t, tvt.IsCombatAllowed(out, a))
	require.False(t, tvt.IsFriendlyFire(a, out))

	// Two outsiders are not the system's business.
	out2 := addPlayer(deps, 4, "10.3.0.4", 40)
	require.True(t, tvt.IsCombatAllowed(out, out2))
}

func TestFriendlyFireSameTeam(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())

	players := make([]*world.PlayerInfo, 0, 4)
	for id := int32(1); id <= 4; id++ {
		p := addPlayer(deps, id, fmt.Sprintf("10.4.0.%d", id), 40)
		require.Equal(t, RegisterOK, tvt.Register(p))
		players = append(players, p)
	}
	require.NoError(t, tvt.ForceStart())

	// chars 1 and 3 are both red.
	require.True(t, tvt.IsFriendlyFire(players[0], players[2]))
	require.False(t, tvt.IsCombatAllowed(players[0], players[2]))
}

func TestOnKillScoring(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.5.0.1", 40) // red
	b := addPlayer(deps, 2, "10.5.0.2", 40) // blue
	c := addPlayer(deps, 3, "10.5.0.3", 40) // red
	d := addPlayer(deps, 4, "10.5.0.4", 40) // blue
	for _, p := range []*world.PlayerInfo{a, b, c, d} {
		require.Equal(t, RegisterOK, tvt.Register(p))
	}
	require.NoError(t, tvt.ForceStart())

	kill(deps, a, b)

	// A kill never ends the match while both teams still hold the field.
	require.True(t, tvt.IsRunning())

	require.Equal(t, 1, a.Match.Kills)
	require.Equal(t, 0, a.Match.Deaths)
	require.Equal(t, 1, b.Match.Deaths)
	require.Equal(t, 0, b.Match.Kills)

	// Same-team and self kills change nothing.
	tvt.OnKill(a, c)
	tvt.OnKill(a, a)
	require.Equal(t, 1, a.Match.Kills)
	require.Equal(t, 0, c.Match.Deaths)

	// Victim revives at the blue spawn with full HP and fresh protection.
	require.Eventually(t, func() bool { return !b.Dead }, time.Second, 5*time.Millisecond)
	require.Equal(t, b.MaxHP, b.HP)
	require.Equal(t, int32(200), b.X)
	require.True(t, tvt.IsProtected(b.CharID))

	// Protection expires on its own.
	require.Eventually(t, func() bool { return !tvt.IsProtected(b.CharID) },
		time.Second, 5*time.Millisecond)

	_ = d
}

func TestEarlyTerminationOnTeamWipe(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.6.0.1", 40)
	b := addPlayer(deps, 2, "10.6.0.2", 40)
	require.Equal(t, RegisterOK, tvt.Register(a))
	require.Equal(t, RegisterOK, tvt.Register(b))
	require.NoError(t, tvt.ForceStart())

	deps.World.RemovePlayer(b.SessionID)
	tvt.OnDisconnect(b)

	require.Equal(t, PhaseIdle, tvt.CurrentPhase())
	require.False(t, tvt.IsParticipant(a.CharID))
}

func TestDisconnectDuringRegistration(t *testing.T) {
	tvt, deps := newTestSystem(t, func(c *config.TvTConfig) { c.MaxPerIP = 1 })
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.7.0.1", 40)
	require.Equal(t, RegisterOK, tvt.Register(a))

	deps.World.RemovePlayer(a.SessionID)
	tvt.OnDisconnect(a)
	require.False(t, tvt.IsRegistered(a.CharID))
	require.Equal(t, 0, tvt.RegisteredCount())

	// The address slot is free again.
	a2 := addPlayer(deps, 2, "10.7.0.1", 40)
	require.Equal(t, RegisterOK, tvt.Register(a2))
}

func TestDisconnectDuringMatchRestoresAndCountsDeath(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())

	players := make([]*world.PlayerInfo, 0, 4)
	for id := int32(1); id <= 4; id++ {
		p := addPlayer(deps, id, fmt.Sprintf("10.8.0.%d", id), 40)
		require.Equal(t, RegisterOK, tvt.Register(p))
		players = append(players, p)
	}
	require.NoError(t, tvt.ForceStart())

	leaver := players[1] // blue
	deps.World.RemovePlayer(leaver.SessionID)
	tvt.OnDisconnect(leaver)

	require.True(t, tvt.IsRunning()) // blue still has char 4
	require.False(t, tvt.IsParticipant(leaver.CharID))
	require.Equal(t, 1, leaver.Match.Deaths)
	require.Equal(t, "", leaver.Match.OrigTitle)
	require.Equal(t, leaver.Match.OrigTitle, leaver.Title)
}

func TestWinnerByTeamScore(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.9.0.1", 40) // red
	b := addPlayer(deps, 2, "10.9.0.2", 40) // blue
	require.Equal(t, RegisterOK, tvt.Register(a))
	require.Equal(t, RegisterOK, tvt.Register(b))
	require.NoError(t, tvt.ForceStart())

	kill(deps, a, b)
	require.NoError(t, tvt.ForceEnd())

	// Red won: a gets the winner amount, b the loser amount.
	require.Equal(t, int32(200), a.Inv.GetAdena())
	require.Equal(t, int32(100), b.Inv.GetAdena())
}

func TestTieRewardsBothTeams(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.10.0.1", 40)
	b := addPlayer(deps, 2, "10.10.0.2", 40)
	require.Equal(t, RegisterOK, tvt.Register(a))
	require.Equal(t, RegisterOK, tvt.Register(b))
	require.NoError(t, tvt.ForceStart())
	require.NoError(t, tvt.ForceEnd())

	// 0:0 tie falls back to the loser bracket for both.
	require.Equal(t, int32(100), a.Inv.GetAdena())
	require.Equal(t, int32(100), b.Inv.GetAdena())
}

func TestRewardDedupPerAddress(t *testing.T) {
	tvt, deps := newTestSystem(t, func(c *config.TvTConfig) { c.MaxPerIP = 2 })
	require.NoError(t, tvt.ForceOpen())

	// chars 1 and 3 share an address and both land on red.
	a := addPlayer(deps, 1, "10.11.0.1", 40)
	b := addPlayer(deps, 2, "10.11.0.2", 40)
	c := addPlayer(deps, 3, "10.11.0.1", 40)
	d := addPlayer(deps, 4, "10.11.0.3", 40)
	for _, p := range []*world.PlayerInfo{a, b, c, d} {
		require.Equal(t, RegisterOK, tvt.Register(p))
	}
	require.NoError(t, tvt.ForceStart())

	kill(deps, a, b)
	require.NoError(t, tvt.ForceEnd())

	// First eligible in split order wins the address slot.
	require.Equal(t, int32(200), a.Inv.GetAdena())
	require.Zero(t, c.Inv.GetAdena())
	// Distinct addresses are unaffected.
	require.Equal(t, int32(100), b.Inv.GetAdena())
	require.Equal(t, int32(100), d.Inv.GetAdena())
}

func TestOverIPLimitDenialBeatsDedup(t *testing.T) {
	tvt, deps := newTestSystem(t, func(c *config.TvTConfig) { c.MaxPerIP = 2 })
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.12.0.1", 40)
	b := addPlayer(deps, 2, "10.12.0.2", 40)
	c := addPlayer(deps, 3, "10.12.0.1", 40)
	d := addPlayer(deps, 4, "10.12.0.3", 40)
	for _, p := range []*world.PlayerInfo{a, b, c, d} {
		require.Equal(t, RegisterOK, tvt.Register(p))
	}
	require.NoError(t, tvt.ForceStart())

	// Tighten the address limit mid-match: the shared address is now over.
	next := deps.Config.TvT
	next.MaxPerIP = 1
	next.OverIPLimitNoReward = true
	tvt.ReloadConfig(next)

	require.NoError(t, tvt.ForceEnd())

	// Denial hits every holder of the over-limit address, not just the second.
	require.Zero(t, a.Inv.GetAdena())
	require.Zero(t, c.Inv.GetAdena())
	require.NotZero(t, b.Inv.GetAdena())
	require.NotZero(t, d.Inv.GetAdena())
}

func TestMinKillThreshold(t *testing.T) {
	tvt, deps := newTestSystem(t, func(c *config.TvTConfig) { c.KillRewardMinKills = 2 })
	require.NoError(t, tvt.ForceOpen())

	a := addPlayer(deps, 1, "10.13.0.1", 40)
	b := addPlayer(deps, 2, "10.13.0.2", 40)
	require.Equal(t, RegisterOK, tvt.Register(a))
	require.Equal(t, RegisterOK, tvt.Register(b))
	require.NoError(t, tvt.ForceStart())

	kill(deps, a, b)
	require.Eventually(t, func() bool { return !b.Dead }, time.Second, 5*time.Millisecond)
	require.NoError(t, tvt.ForceEnd())

	// One kill is below the threshold; nobody collects.
	require.Zero(t, a.Inv.GetAdena())
	require.Zero(t, b.Inv.GetAdena())
}

func TestCleanupIdempotent(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)

	tvt.Cleanup()
	tvt.Cleanup()
	require.Equal(t, PhaseIdle, tvt.CurrentPhase())

	require.NoError(t, tvt.ForceOpen())
	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 1, "10.14.0.1", 40)))
	tvt.Cleanup()
	tvt.Cleanup()
	require.Equal(t, PhaseIdle, tvt.CurrentPhase())
	require.Equal(t, 0, tvt.RegisteredCount())

	// Cleanup from RUNNING as well.
	require.NoError(t, tvt.ForceOpen())
	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 2, "10.14.0.2", 40)))
	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 3, "10.14.0.3", 40)))
	require.NoError(t, tvt.ForceStart())
	tvt.Cleanup()
	tvt.Cleanup()
	require.Equal(t, PhaseIdle, tvt.CurrentPhase())
}

func TestRemainingClocks(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)

	require.Zero(t, tvt.RegistrationRemaining())
	require.Zero(t, tvt.MatchRemaining())

	require.NoError(t, tvt.ForceOpen())
	require.Greater(t, tvt.RegistrationRemaining(), 50*time.Second)
	require.Zero(t, tvt.MatchRemaining())

	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 1, "10.15.0.1", 40)))
	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 2, "10.15.0.2", 40)))
	require.NoError(t, tvt.ForceStart())
	require.Zero(t, tvt.RegistrationRemaining())
	require.Greater(t, tvt.MatchRemaining(), 50*time.Second)
}

func TestScheduleTestRegistration(t *testing.T) {
	tvt, _ := newTestSystem(t, nil)

	tvt.ScheduleTestRegistrationIn(10 * time.Millisecond)
	require.Eventually(t, func() bool {
		return tvt.CurrentPhase() == PhaseRegistration
	}, time.Second, 5*time.Millisecond)
}

func TestExclusiveActivityAbortsStart(t *testing.T) {
	tvt, deps := newTestSystem(t, nil)
	deps.ExclusiveActivity = func() bool { return true }

	require.NoError(t, tvt.ForceOpen())
	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 1, "10.16.0.1", 40)))
	require.Equal(t, RegisterOK, tvt.Register(addPlayer(deps, 2, "10.16.0.2", 40)))
	require.NoError(t, tvt.ForceStart())

	require.Equal(t, PhaseIdle, tvt.CurrentPhase())
}

func TestEndToEndScheduledMatch(t *testing.T) {
	tvt, deps := newTestSystem(t, func(c *config.TvTConfig) {
		c.Schedules = []string{"20:00"}
	})
	tvt.Init()

	scheds := tvt.Schedules()
	require.Len(t, scheds, 1)
	fireAt, ok := scheds["20:00"]
	require.True(t, ok)
	require.Equal(t, 20, fireAt.Hour())
	require.Equal(t, 0, fireAt.Minute())
	require.True(t, fireAt.After(time.Now()))

	// Run the round via the force path instead of waiting for the clock.
	a := addPlayer(deps, 1, "192.168.0.10", 40)
	b := addPlayer(deps, 2, "192.168.0.20", 40)
	require.NoError(t, tvt.ForceOpen())
	require.Equal(t, RegisterOK, tvt.Register(a))
	require.Equal(t, RegisterOK, tvt.Register(b))
	require.NoError(t, tvt.ForceStart())

	kill(deps, a, b)
	require.NoError(t, tvt.ForceEnd())

	require.Equal(t, PhaseIdle, tvt.CurrentPhase())
	require.Equal(t, int32(200), a.Inv.GetAdena())
	require.Equal(t, int32(100), b.Inv.GetAdena())

	// The daily trigger survives the match.
	require.Len(t, tvt.Schedules(), 1)
}

func TestOpenRefusedWhenDisabled(t *testing.T) {
	tvt, _ := newTestSystem(t, func(c *config.TvTConfig) { c.Enabled = false })

	require.Error(t, tvt.ForceOpen())
	require.Equal(t, PhaseIdle, tvt.CurrentPhase())
}

func TestOpenRefusedWithoutTeamSpawns(t *testing.T) {
	tvt, _ := newTestSystem(t, func(c *config.TvTConfig) {
		c.Team1Spawn = ""
		c.Team2Spawn = ""
	})

	require.Error(t, tvt.ForceOpen())
	require.Equal(t, PhaseIdle, tvt.CurrentPhase())

	// One configured spawn is not enough.
	tvt2, _ := newTestSystem(t, func(c *config.TvTConfig) { c.Team2Spawn = "" })
	require.Error(t, tvt2.ForceOpen())
	require.Equal(t, PhaseIdle, tvt2.CurrentPhase())
}

func TestOfflineLeaverFreesAddressSlot(t *testing.T) {
	tvt, deps := newTestSystem(t, func(c *config.TvTConfig) { c.MaxPerIP = 2 })
	require.NoError(t, tvt.ForceOpen())

	// chars 1 and 3 share an address and both land on red.
	a := addPlayer(deps, 1, "10.17.0.1", 40)
	b := addPlayer(deps, 2, "10.17.0.2", 40)
	c := addPlayer(deps, 3, "10.17.0.1", 40)
	d := addPlayer(deps, 4, "10.17.0.3", 40)
	for _, p := range []*world.PlayerInfo{a, b, c, d} {
		require.Equal(t, RegisterOK, tvt.Register(p))
	}
	require.NoError(t, tvt.ForceStart())

	// The earlier holder of the shared address leaves mid-match.
	deps.World.RemovePlayer(a.SessionID)
	tvt.OnDisconnect(a)
	require.True(t, tvt.IsRunning())

	kill(deps, c, b)
	require.NoError(t, tvt.ForceEnd())

	// The leaver collects nothing and does not block the still-online
	// holder of the same address.
	require.Zero(t, a.Inv.GetAdena())
	require.Equal(t, int32(200), c.Inv.GetAdena())
	require.Equal(t, int32(100), b.Inv.GetAdena())
	require.Equal(t, int32(100), d.Inv.GetAdena())
}

func watchdogArmed(s *TvTSystem) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watchdog != nil
}

func TestWatchdogRearmedOnOpen(t *testing.T) {
	tvt, _ := newTestSystem(t, nil)
	tvt.Init()
	require.True(t, watchdogArmed(tvt))

	tvt.Cleanup()
	require.False(t, watchdogArmed(tvt))

	// The next open brings the watchdog back.
	require.NoError(t, tvt.ForceOpen())
	require.True(t, watchdogArmed(tvt))
}

func TestRearmCycleSurvivesCleanup(t *testing.T) {
	tvt, _ := newTestSystem(t, func(c *config.TvTConfig) {
		c.Schedules = []string{"20:00"}
	})
	tvt.Init()

	tvt.mu.RLock()
	armed := tvt.rearmTask != nil
	tvt.mu.RUnlock()
	require.True(t, armed)

	// Cleanup tears down the current round only; the daily cycle keeps
	// running.
	tvt.Cleanup()
	tvt.mu.RLock()
	armed = tvt.rearmTask != nil
	tvt.mu.RUnlock()
	require.True(t, armed)
	require.Len(t, tvt.Schedules(), 1)
}
