package system

// 聊天指令分派："." 開頭的賽事指令。
// Java: TvTVoiced.useVoicedCommand()、AdminTvT.useAdminCommand()

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/world"
)

// CommandSystem 把玩家與 GM 的文字指令導向賽事系統。
type CommandSystem struct {
	tvt *TvTSystem
}

func NewCommandSystem(tvt *TvTSystem) *CommandSystem {
	return &CommandSystem{tvt: tvt}
}

// Handle 處理一則 "." 開頭的指令。回傳 true 表示已被本系統消化。
func (s *CommandSystem) Handle(player *world.PlayerInfo, text string, isGM bool) bool {
	if !strings.HasPrefix(text, ".") {
		return false
	}
	parts := strings.Fields(text[1:])
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "tvt":
		s.tvt.Register(player)
	case "tvtleave":
		s.tvt.Unregister(player)
	case "tvtstatus":
		s.tvt.tell(player, s.tvt.BuildStatus(player))
	default:
		if !isGM {
			return false
		}
		return s.handleGM(player, cmd, args)
	}
	return true
}

func (s *CommandSystem) handleGM(player *world.PlayerInfo, cmd string, args []string) bool {
	t := s.tvt
	switch cmd {
	case "tvtopen":
		if err := t.ForceOpen(); err != nil {
			t.tell(player, "[TvT] "+err.Error())
		}
	case "tvtstart":
		if err := t.ForceStart(); err != nil {
			t.tell(player, "[TvT] "+err.Error())
		}
	case "tvtend":
		if err := t.ForceEnd(); err != nil {
			t.tell(player, "[TvT] "+err.Error())
		}
	case "tvtnpc":
		// .tvtnpc spawn [x,y[,map]] / .tvtnpc despawn
		if len(args) == 0 {
			t.tell(player, "[TvT] 用法：.tvtnpc spawn|despawn")
			return true
		}
		switch strings.ToLower(args[0]) {
		case "spawn":
			loc := config.Loc{X: player.X, Y: player.Y, MapID: player.MapID}
			if len(args) > 1 {
				parsed, ok := config.ParseLoc(args[1])
				if !ok {
					t.tell(player, "[TvT] 座標格式錯誤（x,y[,map[,heading]]）。")
					return true
				}
				loc = parsed
			}
			if err := t.ForceSpawnRegNpc(loc); err != nil {
				t.tell(player, "[TvT] "+err.Error())
			}
		case "despawn":
			t.ForceDespawnRegNpc()
		default:
			t.tell(player, "[TvT] 用法：.tvtnpc spawn|despawn")
		}
	case "tvttest":
		secs := 10
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
				secs = n
			}
		}
		t.ScheduleTestRegistrationIn(time.Duration(secs) * time.Second)
		t.tell(player, fmt.Sprintf("[TvT] %d 秒後開啟測試報名。", secs))
	case "tvtschedules":
		scheds := t.Schedules()
		if len(scheds) == 0 {
			t.tell(player, "[TvT] 未武裝任何排程。")
			return true
		}
		var sb strings.Builder
		sb.WriteString("[TvT] 排程：")
		first := true
		for label, at := range scheds {
			if !first {
				sb.WriteString("、")
			}
			fmt.Fprintf(&sb, "%s（%s）", label, at.Format("01-02 15:04"))
			first = false
		}
		t.tell(player, sb.String())
	case "tvtcleanup":
		t.Cleanup()
		t.tell(player, "[TvT] 已強制清場。")
	default:
		return false
	}
	return true
}
