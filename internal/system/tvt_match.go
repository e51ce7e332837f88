package system

// 開賽流程：報名截止、人數審核、分隊、外觀快照與套用、傳送進場。
// Java: TvTManager.startEvent()、TvTManager.splitTeams()

import (
	"fmt"
	"sort"
	"time"

	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

// closeRegistrationLocked 報名截止：人數不足則流局，否則開賽。
func (s *TvTSystem) closeRegistrationLocked() {
	c := s.conf()

	s.closeTask.Cancel()
	s.closeTask = nil
	s.despawnRegNpcLocked()

	if len(s.registered) < c.MinPlayers {
		s.deps.Notify.Announce(fmt.Sprintf("[TvT] 報名人數不足（%d/%d），賽事取消。",
			len(s.registered), c.MinPlayers))
		s.deps.Log.Info("TvT 流局",
			zap.Int("registered", len(s.registered)), zap.Int("min", c.MinPlayers))
		event.Emit(s.deps.Bus, event.MatchEnded{Aborted: true})
		s.cleanupLocked()
		return
	}
	s.startMatchLocked()
}

// ForceStart 由 GM 跳過剩餘報名時間立即開賽（仍套用人數下限）。
func (s *TvTSystem) ForceStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRegistration {
		return fmt.Errorf("賽事狀態為 %s，無法開賽", s.phase)
	}
	s.closeRegistrationLocked()
	return nil
}

// startMatchLocked 進入 RUNNING。
// 分隊規則：報名者依角色編號排序後 1,2,1,2 交錯，確保兩隊人數差最多 1
// 且同一份名單必得同一種分法。
func (s *TvTSystem) startMatchLocked() {
	c := s.conf()

	// 攻城等獨占性活動進行中不開賽。
	if s.deps.ExclusiveActivity != nil && s.deps.ExclusiveActivity() {
		s.deps.Notify.Announce("[TvT] 因其他全域活動進行中，賽事取消。")
		s.deps.Log.Warn("TvT 因獨占活動取消")
		event.Emit(s.deps.Bus, event.MatchEnded{Aborted: true})
		s.cleanupLocked()
		return
	}

	// 報名期間斷線者自名單剔除後重驗人數下限。
	roster := make([]*world.PlayerInfo, 0, len(s.registered))
	for charID, p := range s.registered {
		if s.deps.World.GetByCharID(charID) == nil {
			continue
		}
		roster = append(roster, p)
	}
	if len(roster) < c.MinPlayers {
		s.deps.Notify.Announce("[TvT] 有效報名人數不足，賽事取消。")
		event.Emit(s.deps.Bus, event.MatchEnded{Aborted: true})
		s.cleanupLocked()
		return
	}

	sort.Slice(roster, func(i, j int) bool { return roster[i].CharID < roster[j].CharID })

	s.phase = PhaseRunning
	s.participants = s.participants[:0]
	clear(s.live)
	clear(s.protected)
	s.team1Kills = 0
	s.team2Kills = 0
	s.matchDeadline = time.Now().Add(c.EventTime)

	team1, team2 := 0, 0
	for i, p := range roster {
		team := world.TeamRed
		if i%2 == 1 {
			team = world.TeamBlue
		}
		s.enterArenaLocked(p, team)
		if team == world.TeamRed {
			team1++
		} else {
			team2++
		}
	}

	clear(s.registered)
	clear(s.ipCounts)

	s.spawnBufferNpcsLocked()

	s.deps.Notify.Announce(fmt.Sprintf("[TvT] 比賽開始！紅隊 %d 人 vs 藍隊 %d 人，時限 %d 秒。",
		team1, team2, int(c.EventTime.Seconds())))
	event.Emit(s.deps.Bus, event.MatchStarted{Team1: team1, Team2: team2})
	s.deps.Log.Info("TvT 開賽",
		zap.Int("team1", team1), zap.Int("team2", team2),
		zap.Duration("duration", c.EventTime))

	s.endTask.Cancel()
	s.endTask = s.deps.Sched.Schedule("tvt-end-match", c.EventTime, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// 提前終結或 ForceEnd 先行時本計時器作廢。
		if s.phase != PhaseRunning {
			return
		}
		s.endMatchLocked(false)
	})
}

// enterArenaLocked 把一名成員編入隊伍：快照原始外觀與位置、套用隊伍
// 顏色/稱號/光環、傳送至隊伍出生點。重生保護只在排程重生後給予，
// 入場時不給。
func (s *TvTSystem) enterArenaLocked(p *world.PlayerInfo, team int) {
	c := s.conf()

	p.Match = &world.MatchData{
		Team:          team,
		OrigX:         p.X,
		OrigY:         p.Y,
		OrigMapID:     p.MapID,
		OrigHeading:   p.Heading,
		OrigTitle:     p.Title,
		OrigNameColor: p.NameColor,
		OrigAura:      p.Aura,
		IP:            p.IP,
	}
	s.participants = append(s.participants, p)
	s.live[p.CharID] = p

	if team == world.TeamRed {
		p.Title = "紅隊"
		p.NameColor = c.Team1NameColor
		if c.UseTeamAuras {
			p.Aura = c.AuraRedMask
		}
	} else {
		p.Title = "藍隊"
		p.NameColor = c.Team2NameColor
		if c.UseTeamAuras {
			p.Aura = c.AuraBlueMask
		}
	}
	s.deps.Notify.UpdateVisuals(p)

	handler.TeleportPlayer(s.deps, p, s.teamSpawn(team))

	if c.ShowPersonalStatusOnJoin {
		side := "紅隊"
		if team == world.TeamBlue {
			side = "藍隊"
		}
		s.tell(p, fmt.Sprintf("[TvT] 你被編入%s！擊殺敵隊得分，陣亡 %d 秒後復活。",
			side, int(c.RespawnDelay.Seconds())))
	}
}

// grantProtectionLocked 給予重生保護並武裝到期計時器。
// 計時器到期時重新驗證成員仍在場上，避免清場後殘留旗標誤清下一場。
func (s *TvTSystem) grantProtectionLocked(p *world.PlayerInfo) {
	c := s.conf()
	if c.SpawnProtection <= 0 {
		return
	}
	charID := p.CharID
	s.protected[charID] = struct{}{}
	if p.Match != nil {
		p.Match.Protected = true
	}
	s.deps.Sched.Schedule("tvt-protection-expire", c.SpawnProtection, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.protected, charID)
		if lp, ok := s.live[charID]; ok && lp.Match != nil {
			lp.Match.Protected = false
		}
	})
}

// spawnBufferNpcsLocked 在兩隊出生點生成補助 NPC。
func (s *TvTSystem) spawnBufferNpcsLocked() {
	c := s.conf()
	if c.BufferNpcID == 0 {
		return
	}
	if !c.Buffer1Loc.IsZero() {
		if npc := s.spawnEventNpcLocked(c.BufferNpcID, c.Buffer1Loc); npc != nil {
			s.bufferNpcs = append(s.bufferNpcs, npc)
		}
	}
	if !c.Buffer2Loc.IsZero() {
		if npc := s.spawnEventNpcLocked(c.BufferNpcID, c.Buffer2Loc); npc != nil {
			s.bufferNpcs = append(s.bufferNpcs, npc)
		}
	}
}
