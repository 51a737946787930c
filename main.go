package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lcc-go/deposits"
	"lcc-go/games/coinflip"
	"lcc-go/games/mines"
	"lcc-go/games/penalty"
	"lcc-go/games/plinko"
	"lcc-go/games/pump"
	"lcc-go/games/slots"
	"lcc-go/games/wheel"
	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var poller *deposits.Poller

var adminIDs = map[int64]bool{}

func main() {
	cfg := utils.LoadConfig()

	logger, err := utils.SetupLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.BotToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	for _, raw := range strings.Split(cfg.AdminUserIDs, ",") {
		if id, err := utils.ParseUserID(strings.TrimSpace(raw)); err == nil {
			adminIDs[id] = true
		}
	}

	if err := utils.SetupDatabase(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to set up database", zap.Error(err))
	}
	defer utils.CloseDatabase()
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, running on the in-memory store")
	}

	utils.InitializeCache(30 * time.Second)
	defer utils.CloseCache()

	registry := utils.NewMemoryRegistry()
	if cfg.RedisAddr != "" {
		registry = utils.NewRedisRegistry(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}
	utils.InitializeRounds(registry)
	defer utils.CloseRounds()

	utils.InitializeEvents(cfg)
	defer utils.CloseEvents()

	mines.Setup()
	plinko.Setup()
	pump.Setup()

	poller = deposits.NewPoller(cfg)
	if err := poller.Start(cfg.DepositSweepSpec); err != nil {
		logger.Fatal("failed to start deposit poller", zap.Error(err))
	}
	defer poller.Stop()

	utils.StartMetricsServer(cfg.MetricsPort, logger)
	startHealthServer(cfg.HTTPPort, logger)

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info("bot ready", zap.String("username", s.State.User.Username))
	})
	session.AddHandler(handleInteraction)

	if err := session.Open(); err != nil {
		logger.Fatal("failed to open discord connection", zap.Error(err))
	}
	defer session.Close()

	if err := registerCommands(session); err != nil {
		logger.Fatal("failed to register commands", zap.Error(err))
	}

	logger.Info("bot is running, press ctrl+c to exit")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
}

func registerCommands(s *discordgo.Session) error {
	commands := []*discordgo.ApplicationCommand{
		coinflip.RegisterCoinflipCommand(),
		wheel.RegisterWheelCommand(),
		penalty.RegisterPenaltyCommand(),
		slots.RegisterSlotsCommand(),
		mines.RegisterMinesCommand(),
		plinko.RegisterPlinkoCommand(),
		pump.RegisterPumpCommand(),
		deposits.RegisterDepositCommand(),
		registerBalanceCommand(),
		registerProfileCommand(),
		registerHistoryCommand(),
		registerCashoutCommand(),
		registerCurseCommand(),
	}

	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", commands)
	if err != nil {
		return fmt.Errorf("failed to overwrite commands: %w", err)
	}
	return nil
}

func handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "coinflip":
			coinflip.HandleCoinflipCommand(s, i)
		case "wheel":
			wheel.HandleWheelCommand(s, i)
		case "penalty":
			penalty.HandlePenaltyCommand(s, i)
		case "slots":
			slots.HandleSlotsCommand(s, i)
		case "mines":
			mines.HandleMinesCommand(s, i)
		case "plinko":
			plinko.HandlePlinkoCommand(s, i)
		case "pump":
			pump.HandlePumpCommand(s, i)
		case "deposit":
			deposits.HandleDepositCommand(s, i, poller)
		case "balance":
			handleBalanceCommand(s, i)
		case "profile":
			handleProfileCommand(s, i)
		case "history":
			handleHistoryCommand(s, i)
		case "cashout":
			handleCashoutCommand(s, i)
		case "curse":
			handleCurseCommand(s, i)
		}
	case discordgo.InteractionMessageComponent:
		parts := strings.Split(i.MessageComponentData().CustomID, ":")
		if len(parts) == 0 {
			return
		}
		switch parts[0] {
		case "mines":
			mines.HandleMinesComponent(s, i, parts)
		case "plinko":
			plinko.HandlePlinkoComponent(s, i, parts)
		case "pump":
			pump.HandlePumpComponent(s, i, parts)
		}
	}
}

func startHealthServer(port string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server stopped", zap.Error(err))
		}
	}()
}
