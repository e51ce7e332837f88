package system

// TvT 陣營對抗賽事系統（紅隊 vs 藍隊）
// Java 參考：TvTManager.java、TvTConfig.java、TvTPlayerData.java
//
// 狀態機：IDLE → REGISTRATION(報名期) → RUNNING(比賽期) → ENDING(結算) → IDLE
// 所有階段轉換共用一把互斥鎖；排程回呼在執行時重新驗證階段與成員狀態。

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/sched"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

// Phase 表示賽事目前的生命週期階段。
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRegistration
	PhaseRunning
	PhaseEnding
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseRegistration:
		return "REGISTRATION"
	case PhaseRunning:
		return "RUNNING"
	case PhaseEnding:
		return "ENDING"
	}
	return "UNKNOWN"
}

// TvTSystem 是賽事協調器本體。
// 實作 handler.MatchManager 介面。
type TvTSystem struct {
	deps *handler.Deps
	cfg  atomic.Pointer[config.TvTConfig] // 不可變設定快照，ReloadConfig 原子替換

	mu    sync.RWMutex
	phase Phase

	// 報名帳冊（僅 REGISTRATION 期間有效）
	registered map[int32]*world.PlayerInfo // CharID → 報名者
	ipCounts   map[string]int              // 來源位址 → 報名人數

	// 比賽名冊
	participants []*world.PlayerInfo          // 結算名單，分隊順序；斷線者於離場時剔除
	live         map[int32]*world.PlayerInfo  // CharID → 仍在場成員
	protected    map[int32]struct{}           // 重生保護中的 CharID
	team1Kills   int
	team2Kills   int

	regDeadline   time.Time
	matchDeadline time.Time

	// 計時器握把（supersede 時取消）
	closeTask *sched.Task
	endTask   *sched.Task
	watchdog  *sched.Task
	rearmTask *sched.Task
	entries   []*scheduleEntry

	// 賽事專屬 NPC
	regNpc     *world.NpcInfo
	bufferNpcs []*world.NpcInfo
}

// NewTvTSystem 建立賽事系統；設定快照取自啟動時的組態。
func NewTvTSystem(deps *handler.Deps) *TvTSystem {
	s := &TvTSystem{
		deps:       deps,
		phase:      PhaseIdle,
		registered: make(map[int32]*world.PlayerInfo),
		ipCounts:   make(map[string]int),
		live:       make(map[int32]*world.PlayerInfo),
		protected:  make(map[int32]struct{}),
	}
	snap := deps.Config.TvT
	s.cfg.Store(&snap)
	return s
}

// conf 回傳目前的設定快照。
func (s *TvTSystem) conf() *config.TvTConfig {
	return s.cfg.Load()
}

// ReloadConfig 原子替換設定快照並重新安排每日排程。
func (s *TvTSystem) ReloadConfig(snap config.TvTConfig) {
	snap.Resolve()
	s.cfg.Store(&snap)
	s.mu.Lock()
	s.armSchedulesLocked()
	s.mu.Unlock()
	s.deps.Log.Info("TvT 設定已重新載入", zap.Int("schedules", len(snap.Schedules)))
}

// ==================== 唯讀查詢 ====================

// CurrentPhase 回傳目前階段。
func (s *TvTSystem) CurrentPhase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// IsRunning 回傳比賽是否進行中。
func (s *TvTSystem) IsRunning() bool {
	return s.CurrentPhase() == PhaseRunning
}

// IsRegistered 回傳玩家是否在本輪報名名單中。
func (s *TvTSystem) IsRegistered(charID int32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registered[charID]
	return ok
}

// IsParticipant implements handler.MatchManager。
func (s *TvTSystem) IsParticipant(charID int32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.live[charID]
	return ok
}

// ParticipantData 回傳成員的比賽資料快照（kills/deaths/team），非成員回傳零值。
func (s *TvTSystem) ParticipantData(charID int32) (world.MatchData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.live[charID]
	if !ok || p.Match == nil {
		return world.MatchData{}, false
	}
	return *p.Match, true
}

// IsProtected 回傳玩家是否在重生保護期內（戰鬥系統於套用傷害前查詢）。
func (s *TvTSystem) IsProtected(charID int32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.protected[charID]
	return ok
}

// RegisteredCount 回傳目前報名人數。
func (s *TvTSystem) RegisteredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registered)
}

// RegistrationRemaining 回傳報名期剩餘時間（非報名期回傳 0）。
func (s *TvTSystem) RegistrationRemaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phase != PhaseRegistration {
		return 0
	}
	d := time.Until(s.regDeadline)
	if d < 0 {
		return 0
	}
	return d
}

// MatchRemaining 回傳比賽剩餘時間（非比賽期回傳 0）。
func (s *TvTSystem) MatchRemaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phase != PhaseRunning {
		return 0
	}
	d := time.Until(s.matchDeadline)
	if d < 0 {
		return 0
	}
	return d
}

// BuildStatus 組出目前賽況的文字快照（.tvtstatus 指令）。
// Java: TvTVoiced.buildStatus()
func (s *TvTSystem) BuildStatus(requester *world.PlayerInfo) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.phase {
	case PhaseRegistration:
		return fmt.Sprintf("[TvT] 報名中：%d 人已報名，剩餘 %d 秒。",
			len(s.registered), int(time.Until(s.regDeadline).Seconds()))
	case PhaseRunning, PhaseEnding:
		msg := fmt.Sprintf("[TvT] 比賽中：紅隊 %d / 藍隊 %d，剩餘 %d 秒。",
			s.team1Kills, s.team2Kills, int(time.Until(s.matchDeadline).Seconds()))
		if requester != nil {
			if p, ok := s.live[requester.CharID]; ok && p.Match != nil {
				msg += fmt.Sprintf(" 你：%d 殺 %d 死（第 %d 隊）。",
					p.Match.Kills, p.Match.Deaths, p.Match.Team)
			}
		}
		return msg
	default:
		if len(s.entries) == 0 {
			return "[TvT] 目前無賽事，未設定排程。"
		}
		labels := make([]string, 0, len(s.entries))
		for _, e := range s.entries {
			labels = append(labels, e.label)
		}
		sort.Strings(labels)
		return fmt.Sprintf("[TvT] 目前無賽事。每日排程：%v", labels)
	}
}

// teamKills 回傳指定隊伍的累計擊殺。
func (s *TvTSystem) teamKills(team int) int {
	if team == world.TeamRed {
		return s.team1Kills
	}
	return s.team2Kills
}

// teamSpawn 回傳隊伍出生點。
func (s *TvTSystem) teamSpawn(team int) config.Loc {
	c := s.conf()
	if team == world.TeamRed {
		return c.Team1SpawnLoc
	}
	return c.Team2SpawnLoc
}

// ==================== 清理 ====================

// Cleanup 冪等清場：取消本場計時器（關閉報名、結束比賽、看門狗）、
// 移除賽事 NPC、清空全部帳冊。每日排程與 24 小時循環不受影響；看門狗
// 由下一次開啟報名重新武裝。任何階段、任何次數呼叫都安全。
// 不負責還原玩家外觀（由 ENDING 與斷線路徑處理）。
// Java: TvTManager.cleanUp()
func (s *TvTSystem) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
}

func (s *TvTSystem) cleanupLocked() {
	s.closeTask.Cancel()
	s.closeTask = nil
	s.endTask.Cancel()
	s.endTask = nil
	s.watchdog.Cancel()
	s.watchdog = nil

	s.despawnRegNpcLocked()
	s.despawnBufferNpcsLocked()

	clear(s.registered)
	clear(s.ipCounts)
	clear(s.live)
	clear(s.protected)
	s.participants = nil
	s.team1Kills = 0
	s.team2Kills = 0
	s.regDeadline = time.Time{}
	s.matchDeadline = time.Time{}
	s.phase = PhaseIdle
}
