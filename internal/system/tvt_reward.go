package system

// 結算：勝負判定、排行榜、MVP、獎勵發放與玩家還原。
// Java: TvTManager.endEvent()、TvTManager.rewardPlayers()

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/persist"
	"github.com/l1jgo/arena/internal/scripting"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

const leaderboardSize = 5

// endMatchLocked 進入 ENDING 並完整結算。forced 表示提前終結
//（隊伍清空或 GM 強制），流程相同，勝負一律看累計隊伍擊殺。
func (s *TvTSystem) endMatchLocked(forced bool) {
	s.phase = PhaseEnding
	s.endTask.Cancel()
	s.endTask = nil

	winner := world.TeamNone
	switch {
	case s.team1Kills > s.team2Kills:
		winner = world.TeamRed
	case s.team2Kills > s.team1Kills:
		winner = world.TeamBlue
	}

	switch winner {
	case world.TeamRed:
		s.deps.Notify.Announce(fmt.Sprintf("[TvT] 比賽結束！紅隊獲勝（%d : %d）！",
			s.team1Kills, s.team2Kills))
	case world.TeamBlue:
		s.deps.Notify.Announce(fmt.Sprintf("[TvT] 比賽結束！藍隊獲勝（%d : %d）！",
			s.team2Kills, s.team1Kills))
	default:
		s.deps.Notify.Announce(fmt.Sprintf("[TvT] 比賽結束！雙方平手（%d : %d）。",
			s.team1Kills, s.team2Kills))
	}

	s.announceLeaderboardLocked()
	mvps := s.selectMvpsLocked()
	s.handOutRewardsLocked(winner, mvps)
	s.restoreAllLocked()

	event.Emit(s.deps.Bus, event.MatchEnded{
		WinnerTeam: winner,
		Team1Kills: s.team1Kills,
		Team2Kills: s.team2Kills,
	})
	s.deps.Log.Info("TvT 結算完成",
		zap.Int("winner", winner), zap.Bool("forced", forced),
		zap.Int("team1", s.team1Kills), zap.Int("team2", s.team2Kills))

	s.cleanupLocked()
}

// announceLeaderboardLocked 公告前五名：擊殺降冪，同殺數死亡升冪，
// 再同以角色編號決定順序確保結果穩定。
func (s *TvTSystem) announceLeaderboardLocked() {
	ranked := make([]*world.PlayerInfo, len(s.participants))
	copy(ranked, s.participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Match, ranked[j].Match
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Deaths != b.Deaths {
			return a.Deaths < b.Deaths
		}
		return ranked[i].CharID < ranked[j].CharID
	})

	n := len(ranked)
	if n > leaderboardSize {
		n = leaderboardSize
	}
	var sb strings.Builder
	sb.WriteString("[TvT] 排行榜：")
	for i := 0; i < n; i++ {
		p := ranked[i]
		if i > 0 {
			sb.WriteString("、")
		}
		fmt.Fprintf(&sb, "%d. %s（%d殺/%d死）", i+1, p.Name, p.Match.Kills, p.Match.Deaths)
	}
	s.deps.Notify.Announce(sb.String())
}

// selectMvpsLocked 選出擊殺最高者。零擊殺不選。多人同殺數時依設定：
// 允許並列則全數為 MVP，否則從缺。
func (s *TvTSystem) selectMvpsLocked() map[int32]struct{} {
	c := s.conf()
	best := 0
	for _, p := range s.participants {
		if p.Match.Kills > best {
			best = p.Match.Kills
		}
	}
	if best == 0 {
		return nil
	}

	mvps := make(map[int32]struct{})
	for _, p := range s.participants {
		if p.Match.Kills == best {
			mvps[p.CharID] = struct{}{}
		}
	}
	if len(mvps) > 1 && !c.MvpTieEnabled {
		return nil
	}

	if c.BroadcastMvp {
		for _, p := range s.participants {
			if _, ok := mvps[p.CharID]; ok {
				s.deps.Notify.Announce(fmt.Sprintf(c.MvpMessageFormat, p.Name, p.Match.Kills))
			}
		}
	}
	return mvps
}

// handOutRewardsLocked 依分隊順序走訪結算名單逐人發獎。
// 審核順序固定：
//  1. 離線者跳過（不發獎、不占位址名額；中途斷線者已在離場時剔除）
//  2. 位址超額拒發（整個位址報名數超過上限時全數拒發，不占名額）
//  3. 同位址一人領獎（先到先得）
//  4. 最低擊殺門檻（0 = 不設限）
//  5. 敗方獎勵須有設定才發
// 單人發放失敗只記錄，不中斷其他人。
// Java: TvTManager.rewardPlayers()
func (s *TvTSystem) handOutRewardsLocked(winner int, mvps map[int32]struct{}) {
	c := s.conf()

	ipTotals := make(map[string]int)
	for _, p := range s.participants {
		ipTotals[p.Match.IP]++
	}

	rewardedIPs := make(map[string]struct{})
	var walEntries []persist.WALEntry
	var winners, losers, ties, deniedIP int

	for _, p := range s.participants {
		if s.deps.World.GetByCharID(p.CharID) == nil {
			continue
		}
		outcome, itemID, baseAmount := rewardBracket(c, winner, p.Match.Team)

		if c.OverIPLimitNoReward && c.MaxPerIP > 0 && ipTotals[p.Match.IP] > c.MaxPerIP {
			deniedIP++
			s.tell(p, "[TvT] 同位址報名人數超額，本場不發獎。")
			continue
		}
		if _, taken := rewardedIPs[p.Match.IP]; taken {
			s.tell(p, "[TvT] 同位址已有人領獎。")
			continue
		}
		if c.KillRewardMinKills > 0 && p.Match.Kills < c.KillRewardMinKills {
			s.tell(p, fmt.Sprintf("[TvT] 擊殺未達 %d，無法領獎。", c.KillRewardMinKills))
			continue
		}
		if itemID == 0 || baseAmount <= 0 {
			continue
		}

		_, isMvp := mvps[p.CharID]
		res := s.deps.Scripting.CalcReward(scripting.RewardContext{
			Kills:      p.Match.Kills,
			Deaths:     p.Match.Deaths,
			Team:       p.Match.Team,
			Winner:     winner != world.TeamNone && p.Match.Team == winner,
			Tie:        winner == world.TeamNone,
			MVP:        isMvp,
			BaseAmount: int(baseAmount),
		})
		amount := int32(res.Amount)

		rewardedIPs[p.Match.IP] = struct{}{}
		switch outcome {
		case "winner":
			winners++
		case "loser":
			losers++
		default:
			ties++
		}
		walOutcome := outcome
		if isMvp {
			walOutcome = "mvp"
		}

		granted := s.grantReward(p, itemID, amount)
		if granted || !c.InventoryFullDropsReward {
			// 發不進背包且設定不沒收時仍留存紀錄，事後補發。
			e := persist.WALEntry{
				CharID:   p.CharID,
				CharName: p.Name,
				Outcome:  walOutcome,
				Kills:    int32(p.Match.Kills),
				ItemID:   itemID,
				Count:    amount,
			}
			if !granted {
				e.Outcome = "owed"
			}
			walEntries = append(walEntries, e)
		}
	}

	s.deps.Notify.Announce(fmt.Sprintf(
		"[TvT] 發獎完成：勝方 %d、敗方 %d、平手 %d，位址超額拒發 %d（共 %d 個位址）。",
		winners, losers, ties, deniedIP, len(ipTotals)))

	if s.deps.WALRepo != nil && len(walEntries) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.WALRepo.WriteWAL(ctx, walEntries); err != nil {
			s.deps.Log.Error("TvT 獎勵 WAL 寫入失敗", zap.Error(err))
		}
	}
}

// rewardBracket 回傳成員所屬獎勵級距。
func rewardBracket(c *config.TvTConfig, winner, team int) (outcome string, itemID, amount int32) {
	switch {
	case winner == world.TeamNone:
		return "tie", c.RewardTieItem, c.RewardTieAmount
	case team == winner:
		return "winner", c.RewardWinnerItem, c.RewardWinnerAmount
	default:
		return "loser", c.RewardLoserItem, c.RewardLoserAmount
	}
}

// grantReward 對在線成員進行容量預檢後入包。離線者視同發放失敗。
// 發放中任何恐慌只影響該名成員。
func (s *TvTSystem) grantReward(p *world.PlayerInfo, itemID, amount int32) (granted bool) {
	defer func() {
		if r := recover(); r != nil {
			s.deps.Log.Error("TvT 發獎失敗", zap.String("name", p.Name), zap.Any("panic", r))
			granted = false
		}
	}()

	if s.deps.World.GetByCharID(p.CharID) == nil {
		return false
	}
	switch handler.GiveItem(s.deps, p, itemID, amount) {
	case handler.GiveOK:
		return true
	case handler.GiveInventoryFull, handler.GiveOverWeight:
		s.tell(p, "[TvT] 背包已滿，無法放入獎勵。")
		return false
	default:
		s.deps.Log.Warn("TvT 獎勵物品未知", zap.Int32("item_id", itemID))
		return false
	}
}

// restoreAllLocked 還原所有仍在場成員：復活、還原外觀、送回出口，
// 並在資料庫可用時落地位置與外觀。
func (s *TvTSystem) restoreAllLocked() {
	for _, p := range s.live {
		if p.Dead {
			s.deps.Death.RevivePlayer(p)
		}
		s.restoreParticipantLocked(p)
		s.persistRestored(p)
	}
}

// persistRestored 把還原後的位置與外觀寫回資料庫（未接資料庫時跳過）。
func (s *TvTSystem) persistRestored(p *world.PlayerInfo) {
	if s.deps.CharRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	row := &persist.CharacterRow{
		ID:        p.CharID,
		Name:      p.Name,
		Level:     p.Level,
		Lawful:    p.Lawful,
		Title:     p.Title,
		NameColor: p.NameColor,
		X:         p.X,
		Y:         p.Y,
		MapID:     p.MapID,
		Heading:   p.Heading,
	}
	if err := s.deps.CharRepo.SaveRestoredState(ctx, row); err != nil {
		s.deps.Log.Error("TvT 還原狀態落地失敗",
			zap.String("name", p.Name), zap.Error(err))
	}
}
