package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/core/sched"
	"github.com/l1jgo/arena/internal/data"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/persist"
	"github.com/l1jgo/arena/internal/scripting"
	"github.com/l1jgo/arena/internal/system"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 載入設定
	cfgPath := "config/arena.toml"
	if p := os.Getenv("ARENA_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. 初始化日誌
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("Arena 啟動", zap.String("server", cfg.Server.Name), zap.Int("id", cfg.Server.ID))

	// 3. 資料庫（可停用；停用時獎勵稽核與角色落地直接跳過）
	var charRepo *persist.CharacterRepo
	var walRepo *persist.WALRepo
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		cancel()
		charRepo = persist.NewCharacterRepo(db)
		walRepo = persist.NewWALRepo(db)
		log.Info("PostgreSQL 連線成功，遷移完成")
	} else {
		log.Info("資料庫停用，以純記憶體模式執行")
	}

	// 4. 靜態資料表
	npcTable, err := data.LoadNpcTable("data/yaml/npc_list.yaml")
	if err != nil {
		return fmt.Errorf("load npc table: %w", err)
	}
	itemTable, err := data.LoadItemTable("data/yaml/item_list.yaml")
	if err != nil {
		return fmt.Errorf("load item table: %w", err)
	}
	log.Info("資料載入完成",
		zap.Int("npc_templates", npcTable.Count()),
		zap.Int("item_templates", itemTable.Count()))

	// 5. Lua 腳本引擎
	luaEngine, err := scripting.NewEngine("scripts", log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()

	// 6. 世界狀態、事件匯流排、排程器
	worldState := world.NewState()
	bus := event.NewBus()
	scheduler := sched.New(log)

	deps := &handler.Deps{
		Config:    cfg,
		Log:       log,
		World:     worldState,
		Bus:       bus,
		Sched:     scheduler,
		Scripting: luaEngine,
		Items:     itemTable,
		Npcs:      npcTable,
		CharRepo:  charRepo,
		WALRepo:   walRepo,
		Notify:    &handler.LogNotifier{Log: log},
	}

	// 7. 系統組裝
	tvt := system.NewTvTSystem(deps)
	deps.Match = tvt
	deps.Death = system.NewDeathSystem(deps)
	pvp := system.NewPvPSystem(deps, tvt)
	commands := system.NewCommandSystem(tvt)

	// 無客戶端協定，指令由標準輸入的管理主控台進入。
	go runConsole(deps, commands, pvp, log)

	event.Subscribe(bus, func(ev event.MatchEnded) {
		log.Info("賽事事件",
			zap.Int("winner", ev.WinnerTeam),
			zap.Int("team1_kills", ev.Team1Kills),
			zap.Int("team2_kills", ev.Team2Kills),
			zap.Bool("aborted", ev.Aborted))
	})

	tvt.Init()

	// 8. 主迴圈：tick 翻轉事件緩衝；SIGHUP 重載設定；SIGINT/SIGTERM 關閉
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	log.Info("主迴圈啟動", zap.Duration("tick", 200*time.Millisecond))

	for {
		select {
		case <-ticker.C:
			bus.SwapBuffers()
			bus.DispatchAll()
		case <-reloadCh:
			next, err := config.Load(cfgPath)
			if err != nil {
				log.Error("設定重載失敗", zap.Error(err))
				continue
			}
			tvt.ReloadConfig(next.TvT)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			tvt.Cleanup()
			log.Info("伺服器已停止")
			return nil
		}
	}
}

// runConsole 讀取標準輸入，把每一行當作 GM 指令執行。
// 另支援 "hit <攻擊者> <目標>" 在無客戶端時驅動一次攻擊。
func runConsole(deps *handler.Deps, commands *system.CommandSystem, pvp *system.PvPSystem, log *zap.Logger) {
	operator := &world.PlayerInfo{
		CharID:    -1,
		Name:      "console",
		Automated: true,
	}
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "hit" && len(fields) == 3 {
			attacker := deps.World.GetByName(fields[1])
			target := deps.World.GetByName(fields[2])
			if attacker == nil || target == nil {
				log.Warn("console: 找不到角色", zap.Strings("args", fields[1:]))
				continue
			}
			pvp.HandlePvPAttack(attacker, target)
			continue
		}
		if !commands.Handle(operator, line, true) {
			log.Warn("console: 未知指令", zap.String("line", line))
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
