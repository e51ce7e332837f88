package system

// 報名期：開啟、報名審核、取消報名、報名 NPC。
// Java: TvTManager.openRegistration()、TvTManager.registerPlayer()

import (
	"fmt"
	"time"

	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

// RegisterResult 是報名審核的結果代碼。
type RegisterResult int

const (
	RegisterOK RegisterResult = iota
	RegNotInRegistrationPhase
	RegLevelOutOfRange
	RegKarmaNotAllowed
	RegCapacityReached
	RegAddressLimitReached
	RegAlreadyRegistered
	RegAutomatedNotAllowed
	RegNotRegistered // Unregister 專用
)

func (r RegisterResult) String() string {
	switch r {
	case RegisterOK:
		return "OK"
	case RegNotInRegistrationPhase:
		return "NOT_IN_REGISTRATION"
	case RegLevelOutOfRange:
		return "LEVEL_OUT_OF_RANGE"
	case RegKarmaNotAllowed:
		return "KARMA_NOT_ALLOWED"
	case RegCapacityReached:
		return "CAPACITY_REACHED"
	case RegAddressLimitReached:
		return "ADDRESS_LIMIT_REACHED"
	case RegAlreadyRegistered:
		return "ALREADY_REGISTERED"
	case RegAutomatedNotAllowed:
		return "AUTOMATED_NOT_ALLOWED"
	case RegNotRegistered:
		return "NOT_REGISTERED"
	}
	return "UNKNOWN"
}

// Register 審核並登記一名報名者。審核全數通過前不改動任何帳冊。
// Java: TvTManager.registerPlayer()
func (s *TvTSystem) Register(p *world.PlayerInfo) RegisterResult {
	c := s.conf()

	// 伺服器操控的角色（商店、測試人偶）不得參賽。
	if p.Automated {
		return RegAutomatedNotAllowed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRegistration {
		s.tell(p, "[TvT] 目前不在報名時間。")
		return RegNotInRegistrationPhase
	}
	if _, dup := s.registered[p.CharID]; dup {
		s.tell(p, "[TvT] 你已經報名過了。")
		return RegAlreadyRegistered
	}
	if int(p.Level) < c.MinLevel || int(p.Level) > c.MaxLevel {
		s.tell(p, fmt.Sprintf("[TvT] 等級需介於 %d ~ %d。", c.MinLevel, c.MaxLevel))
		return RegLevelOutOfRange
	}
	// 正義值為負 = 紅人（PK 標記）。
	if !c.AllowPKPlayers && p.Lawful < 0 {
		s.tell(p, "[TvT] 紅人無法報名。")
		return RegKarmaNotAllowed
	}
	if c.MaxPlayers > 0 && len(s.registered) >= c.MaxPlayers {
		s.tell(p, "[TvT] 報名人數已滿。")
		return RegCapacityReached
	}
	if c.MaxPerIP > 0 && s.ipCounts[p.IP] >= c.MaxPerIP {
		s.tell(p, "[TvT] 同一連線位址的報名人數已達上限。")
		return RegAddressLimitReached
	}

	s.registered[p.CharID] = p
	s.ipCounts[p.IP]++
	s.tell(p, fmt.Sprintf("[TvT] 報名成功！目前 %d 人。", len(s.registered)))
	s.deps.Log.Info("TvT 報名",
		zap.String("name", p.Name), zap.Int32("char_id", p.CharID),
		zap.Int("total", len(s.registered)))
	return RegisterOK
}

// Unregister 取消報名並釋放該位址的名額。
func (s *TvTSystem) Unregister(p *world.PlayerInfo) RegisterResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRegistration {
		s.tell(p, "[TvT] 目前不在報名時間。")
		return RegNotInRegistrationPhase
	}
	if _, ok := s.registered[p.CharID]; !ok {
		s.tell(p, "[TvT] 你尚未報名。")
		return RegNotRegistered
	}

	delete(s.registered, p.CharID)
	if s.ipCounts[p.IP] <= 1 {
		delete(s.ipCounts, p.IP)
	} else {
		s.ipCounts[p.IP]--
	}
	s.tell(p, "[TvT] 已取消報名。")
	return RegisterOK
}

// ForceOpen 由 GM 立即開啟報名期。已有賽事進行中則失敗。
func (s *TvTSystem) ForceOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle {
		return fmt.Errorf("賽事狀態為 %s，無法開啟報名", s.phase)
	}
	return s.openRegistrationLocked()
}

// openRegistrationLocked 進入 REGISTRATION：清空帳冊、生成報名 NPC、
// 全服公告、武裝關閉計時器與看門狗。呼叫端必須已確認 phase == IDLE。
// 功能停用或隊伍出生點未設定時拒絕開啟。
// Java: TvTManager.openRegistration()
func (s *TvTSystem) openRegistrationLocked() error {
	c := s.conf()

	if !c.Enabled {
		s.deps.Log.Warn("TvT 功能停用，拒絕開啟報名")
		return fmt.Errorf("賽事功能停用")
	}
	if c.Team1SpawnLoc.IsZero() || c.Team2SpawnLoc.IsZero() {
		s.deps.Notify.Announce("[TvT] 隊伍出生點未設定，賽事無法開啟。")
		s.deps.Log.Error("TvT 隊伍出生點未設定，拒絕開啟報名")
		return fmt.Errorf("隊伍出生點未設定")
	}

	clear(s.registered)
	clear(s.ipCounts)
	s.phase = PhaseRegistration
	s.regDeadline = time.Now().Add(c.RegistrationTime)

	s.spawnRegNpcLocked()

	secs := int(c.RegistrationTime.Seconds())
	s.deps.Notify.Announce(fmt.Sprintf("[TvT] 陣營對抗賽報名開始！輸入 .tvt 報名，時限 %d 秒。", secs))
	event.Emit(s.deps.Bus, event.MatchOpened{RegSeconds: secs})
	s.deps.Log.Info("TvT 報名開始", zap.Int("seconds", secs))

	s.closeTask.Cancel()
	s.closeTask = s.deps.Sched.Schedule("tvt-close-registration", c.RegistrationTime, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// ForceStart / Cleanup 先行時本計時器作廢。
		if s.phase != PhaseRegistration {
			return
		}
		s.closeRegistrationLocked()
	})

	// Cleanup 會取消看門狗，下次開啟時在此重新武裝。
	s.armWatchdogLocked()
	return nil
}

// spawnRegNpcLocked 在設定地點生成報名 NPC。地點或模板缺漏時僅記錄。
func (s *TvTSystem) spawnRegNpcLocked() {
	c := s.conf()
	if c.RegistrationNpcID == 0 || c.RegNpcLoc.IsZero() {
		return
	}
	npc := s.spawnEventNpcLocked(c.RegistrationNpcID, c.RegNpcLoc)
	if npc != nil {
		s.regNpc = npc
	}
}

// spawnEventNpcLocked 依 NPC 模板在指定地點生成一隻賽事 NPC。
func (s *TvTSystem) spawnEventNpcLocked(npcID int32, loc config.Loc) *world.NpcInfo {
	tpl := s.deps.Npcs.Get(npcID)
	if tpl == nil {
		s.deps.Log.Warn("TvT NPC 模板不存在", zap.Int32("npc_id", npcID))
		return nil
	}
	npc := &world.NpcInfo{
		ID:      world.NextNpcID(),
		NpcID:   tpl.NpcID,
		Impl:    tpl.Impl,
		GfxID:   tpl.GfxID,
		Name:    tpl.Name,
		NameID:  tpl.NameID,
		Level:   tpl.Level,
		X:       loc.X,
		Y:       loc.Y,
		MapID:   loc.MapID,
		Heading: loc.Heading,
		HP:      tpl.HP,
		MaxHP:   tpl.HP,
		Lawful:  tpl.Lawful,
	}
	s.deps.World.AddNpc(npc)
	return npc
}

func (s *TvTSystem) despawnRegNpcLocked() {
	if s.regNpc != nil {
		s.deps.World.RemoveNpc(s.regNpc.ID)
		s.regNpc = nil
	}
}

func (s *TvTSystem) despawnBufferNpcsLocked() {
	for _, npc := range s.bufferNpcs {
		s.deps.World.RemoveNpc(npc.ID)
	}
	s.bufferNpcs = nil
}

// ForceSpawnRegNpc 由 GM 在任意地點生成報名 NPC（賽事外除錯用）。
func (s *TvTSystem) ForceSpawnRegNpc(loc config.Loc) error {
	c := s.conf()
	if c.RegistrationNpcID == 0 {
		return fmt.Errorf("未設定報名 NPC 編號")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.despawnRegNpcLocked()
	npc := s.spawnEventNpcLocked(c.RegistrationNpcID, loc)
	if npc == nil {
		return fmt.Errorf("報名 NPC 模板 %d 不存在", c.RegistrationNpcID)
	}
	s.regNpc = npc
	return nil
}

// ForceDespawnRegNpc 移除現存的報名 NPC。
func (s *TvTSystem) ForceDespawnRegNpc() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.despawnRegNpcLocked()
}

// tell 是 Notify.Tell 的 nil 安全包裝。
func (s *TvTSystem) tell(p *world.PlayerInfo, msg string) {
	if p != nil {
		s.deps.Notify.Tell(p, msg)
	}
}
