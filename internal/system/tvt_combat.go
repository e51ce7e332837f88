package system

// 戰鬥仲裁與擊殺/重生處理。
// Java: TvTManager.isCombatAllowed()、TvTManager.onKill()、TvTManager.onLogout()

import (
	"fmt"

	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

// IsCombatAllowed 回傳雙方是否可互相攻擊。
// 比賽外一律放行（由一般 PvP 規則決定）；比賽中場內成員只能打敵隊，
// 場內外混打一律禁止。
func (s *TvTSystem) IsCombatAllowed(attacker, target *world.PlayerInfo) bool {
	if attacker == nil || target == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase != PhaseRunning {
		return true
	}
	a, aIn := s.live[attacker.CharID]
	t, tIn := s.live[target.CharID]
	if !aIn && !tIn {
		return true
	}
	if aIn != tIn {
		return false
	}
	return a.Match.Team != t.Match.Team
}

// IsFriendlyFire 回傳這次攻擊是否屬於隊友誤擊（僅比賽中、雙方同隊時成立）。
func (s *TvTSystem) IsFriendlyFire(attacker, target *world.PlayerInfo) bool {
	if attacker == nil || target == nil || attacker.CharID == target.CharID {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase != PhaseRunning {
		return false
	}
	a, aIn := s.live[attacker.CharID]
	t, tIn := s.live[target.CharID]
	return aIn && tIn && a.Match.Team == t.Match.Team
}

// OnKill 記分並安排重生。非比賽中、非雙方在場、同隊或自殺一律不記分。
// Java: TvTManager.onKill()
func (s *TvTSystem) OnKill(killer, victim *world.PlayerInfo) {
	if killer == nil || victim == nil || killer.CharID == victim.CharID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return
	}
	k, kIn := s.live[killer.CharID]
	v, vIn := s.live[victim.CharID]
	if !kIn || !vIn || k.Match.Team == v.Match.Team {
		return
	}

	k.Match.Kills++
	v.Match.Deaths++
	if k.Match.Team == world.TeamRed {
		s.team1Kills++
	} else {
		s.team2Kills++
	}
	delete(s.protected, v.CharID)
	v.Match.Protected = false

	event.Emit(s.deps.Bus, event.PlayerKilled{
		KillerID: k.CharID,
		VictimID: v.CharID,
		Team:     k.Match.Team,
	})
	s.deps.Log.Info("TvT 擊殺",
		zap.String("killer", k.Name), zap.String("victim", v.Name),
		zap.Int("team1", s.team1Kills), zap.Int("team2", s.team2Kills))

	s.scheduleReviveLocked(v.CharID)
	// 陣亡者仍佔場上名額等待重生，此檢查平時不觸發；與斷線路徑共用
	// 同一道防線。
	s.checkEarlyEndLocked()
}

// scheduleReviveLocked 在重生延遲後把陣亡成員送回隊伍出生點復活。
// 回呼執行時重新驗證：比賽仍在進行、成員仍在場上、且仍是陣亡狀態
// （GM 先復活或賽事先結束時放棄）。
func (s *TvTSystem) scheduleReviveLocked(charID int32) {
	c := s.conf()
	s.deps.Sched.Schedule("tvt-revive", c.RespawnDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.phase != PhaseRunning {
			return
		}
		p, ok := s.live[charID]
		if !ok || !p.Dead {
			return
		}

		s.deps.Death.RevivePlayer(p)
		handler.TeleportPlayer(s.deps, p, s.teamSpawn(p.Match.Team))
		s.grantProtectionLocked(p)
	})
}

// OnDisconnect 處理成員斷線。
// 報名期：自名單剔除並釋放位址名額。
// 比賽期：還原外觀、記一次死亡、自場上與結算名單剔除（不再入排行榜、
// 不佔位址名額）並檢查隊伍是否被清空。
// Java: TvTManager.onLogout()、TvTManager.removeParticipant()
func (s *TvTSystem) OnDisconnect(p *world.PlayerInfo) {
	if p == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseRegistration:
		if _, ok := s.registered[p.CharID]; !ok {
			return
		}
		delete(s.registered, p.CharID)
		if s.ipCounts[p.IP] <= 1 {
			delete(s.ipCounts, p.IP)
		} else {
			s.ipCounts[p.IP]--
		}
		s.deps.Log.Info("TvT 報名者斷線", zap.String("name", p.Name))

	case PhaseRunning:
		lp, ok := s.live[p.CharID]
		if !ok {
			return
		}
		lp.Match.Deaths++
		s.restoreParticipantLocked(lp)
		delete(s.live, p.CharID)
		delete(s.protected, p.CharID)
		s.removeParticipantLocked(p.CharID)
		s.deps.Log.Info("TvT 成員斷線", zap.String("name", p.Name),
			zap.Int("remaining", len(s.live)))
		s.checkEarlyEndLocked()
	}
}

// removeParticipantLocked 把成員自結算名單剔除。
func (s *TvTSystem) removeParticipantLocked(charID int32) {
	for i, x := range s.participants {
		if x.CharID == charID {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			return
		}
	}
}

// restoreParticipantLocked 還原成員的外觀並傳回賽前位置或出口。
// 斷線與結算共用；還原後 Match 指標保留供結算名單讀取。
func (s *TvTSystem) restoreParticipantLocked(p *world.PlayerInfo) {
	m := p.Match
	if m == nil {
		return
	}
	p.Title = m.OrigTitle
	p.NameColor = m.OrigNameColor
	p.Aura = m.OrigAura
	s.deps.Notify.UpdateVisuals(p)

	c := s.conf()
	if !c.ExitLocation.IsZero() {
		handler.TeleportPlayer(s.deps, p, c.ExitLocation)
	} else {
		handler.TeleportPlayer(s.deps, p, config.Loc{
			X: m.OrigX, Y: m.OrigY, MapID: m.OrigMapID, Heading: m.OrigHeading,
		})
	}
}

// checkEarlyEndLocked 一隊在場人數歸零時提前終結比賽。
func (s *TvTSystem) checkEarlyEndLocked() {
	if s.phase != PhaseRunning {
		return
	}
	red, blue := 0, 0
	for _, p := range s.live {
		if p.Match.Team == world.TeamRed {
			red++
		} else {
			blue++
		}
	}
	if red > 0 && blue > 0 {
		return
	}
	s.deps.Notify.Announce("[TvT] 一方隊伍已無人在場，比賽提前結束！")
	s.deps.Log.Info("TvT 提前終結", zap.Int("red", red), zap.Int("blue", blue))
	s.endMatchLocked(true)
}

// ForceEnd 由 GM 立即結束比賽並照常結算。
func (s *TvTSystem) ForceEnd() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRunning {
		return fmt.Errorf("賽事狀態為 %s，無法結束", s.phase)
	}
	s.endMatchLocked(true)
	return nil
}
