package system

// 每日排程引擎：HH:MM 觸發點、24 小時重新武裝、30 秒看門狗。
// Java: TvTManager.scheduleEvents()、TvTManager.Watchdog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/l1jgo/arena/internal/core/sched"
	"go.uber.org/zap"
)

// watchdogInterval 看門狗固定週期；lookahead 多抓 1 秒避免
// ticker 抖動漏掉剛好壓線的觸發點。
const (
	watchdogInterval  = 30 * time.Second
	watchdogLookahead = watchdogInterval + time.Second
)

// scheduleEntry 是一個已武裝的每日觸發點。
type scheduleEntry struct {
	label     string // 原始 "HH:MM" 字串
	fireAt    time.Time
	createdAt time.Time
	fired     bool
	task      *sched.Task
}

// ParseClock 解析 "HH:MM" 為當日時刻（0<=HH<=23, 0<=MM<=59）。
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("排程格式錯誤 %q（需為 HH:MM）", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("排程時數錯誤 %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("排程分數錯誤 %q", s)
	}
	return hour, minute, nil
}

// NextFireTime 回傳 now 之後最近一次 hour:minute 的時刻。
// 今日該時刻已過（或正好等於 now）則取明日。
func NextFireTime(now time.Time, hour, minute int) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !fire.After(now) {
		fire = fire.Add(24 * time.Hour)
	}
	return fire
}

// Init 啟動賽事系統：武裝每日排程並啟動看門狗。
// 設定停用時不做任何事。
func (s *TvTSystem) Init() {
	c := s.conf()
	if !c.Enabled {
		s.deps.Log.Info("TvT 系統停用")
		return
	}

	s.mu.Lock()
	s.armSchedulesLocked()
	s.armWatchdogLocked()
	// 24 小時循環：整批重建觸發點，設定熱載入最遲一個週期內生效。
	if s.rearmTask == nil {
		s.rearmTask = s.deps.Sched.ScheduleAtFixedRate("tvt-rearm-cycle", 24*time.Hour, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.armSchedulesLocked()
		})
	}
	s.mu.Unlock()

	s.deps.Log.Info("TvT 系統啟動",
		zap.Strings("schedules", c.Schedules),
		zap.Duration("registration", c.RegistrationTime),
		zap.Duration("event", c.EventTime))
}

// armWatchdogLocked 啟動看門狗（已在跑則不重複）。Cleanup 取消後由
// 下一次開啟報名重新武裝。
func (s *TvTSystem) armWatchdogLocked() {
	if s.watchdog == nil {
		s.watchdog = s.deps.Sched.ScheduleAtFixedRate("tvt-watchdog", watchdogInterval, s.watchdogTick)
	}
}

// armSchedulesLocked 取消既有觸發點並依目前設定重建。
// 格式錯誤的項目記錄後略過，不影響其餘項目。
func (s *TvTSystem) armSchedulesLocked() {
	for _, e := range s.entries {
		e.task.Cancel()
	}
	s.entries = nil

	now := time.Now()
	for _, label := range s.conf().Schedules {
		hour, minute, err := ParseClock(label)
		if err != nil {
			s.deps.Log.Warn("TvT 排程項目無效，略過", zap.String("entry", label), zap.Error(err))
			continue
		}
		s.armEntryLocked(label, NextFireTime(now, hour, minute))
	}
}

// armEntryLocked 武裝單一觸發點；觸發後自動以 +24h 重新武裝。
func (s *TvTSystem) armEntryLocked(label string, fireAt time.Time) {
	e := &scheduleEntry{label: label, fireAt: fireAt, createdAt: time.Now()}
	e.task = s.deps.Sched.Schedule("tvt-open-"+label, time.Until(fireAt), func() {
		s.mu.Lock()
		e.fired = true
		// 連續賽程重疊時後到的觸發點讓路，隔日再試。
		if s.phase == PhaseIdle {
			if err := s.openRegistrationLocked(); err != nil {
				s.deps.Log.Warn("TvT 排程開啟報名失敗",
					zap.String("entry", label), zap.Error(err))
			}
		} else {
			s.deps.Log.Warn("TvT 排程觸發時賽事尚未結束，本次略過",
				zap.String("entry", label), zap.String("phase", s.phase.String()))
		}
		s.removeEntryLocked(e)
		s.armEntryLocked(label, fireAt.Add(24*time.Hour))
		s.mu.Unlock()
	})
	s.entries = append(s.entries, e)
	s.deps.Log.Info("TvT 排程已武裝",
		zap.String("entry", label), zap.Time("fire_at", fireAt))
}

func (s *TvTSystem) removeEntryLocked(e *scheduleEntry) {
	for i, x := range s.entries {
		if x == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// watchdogTick 每 30 秒掃描一次，把即將（31 秒內）觸發的排程寫進日誌，
// 方便比對排程是否如期發動。
func (s *TvTSystem) watchdogTick() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	for _, e := range s.entries {
		if e.fired {
			continue
		}
		until := e.fireAt.Sub(now)
		if until <= watchdogLookahead {
			s.deps.Log.Info("TvT 排程即將觸發",
				zap.String("entry", e.label),
				zap.Duration("in", until))
		}
	}
}

// Schedules 回傳已武裝觸發點的快照（label → 下次觸發時刻）。
func (s *TvTSystem) Schedules() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]time.Time, len(s.entries))
	for _, e := range s.entries {
		out[e.label] = e.fireAt
	}
	return out
}

// ScheduleTestRegistrationIn 在 delay 後開啟一次性的報名期（GM 測試用，
// 不進入每日循環）。
// Java: TvTManager.scheduleTestEvent()
func (s *TvTSystem) ScheduleTestRegistrationIn(delay time.Duration) {
	s.deps.Sched.Schedule("tvt-test-open", delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.phase != PhaseIdle {
			s.deps.Log.Warn("TvT 測試排程觸發時非閒置，略過",
				zap.String("phase", s.phase.String()))
			return
		}
		if err := s.openRegistrationLocked(); err != nil {
			s.deps.Log.Warn("TvT 測試排程開啟報名失敗", zap.Error(err))
		}
	})
	s.deps.Log.Info("TvT 測試排程已建立", zap.Duration("delay", delay))
}
