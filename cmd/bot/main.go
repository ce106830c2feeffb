package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"postqueue/internal/config"
	"postqueue/internal/database"
	"postqueue/internal/domain/service"
	"postqueue/internal/media"
	"postqueue/internal/scheduler"
	"postqueue/internal/telegram"
	"postqueue/migrator/sqlite"
	"postqueue/pkg/logx"

	"github.com/joho/godotenv"
	tele "gopkg.in/telebot.v4"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.LogLevel, cfg.LogFormat)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if err := sqlite.Migrate(db.DB()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations completed")

	store, err := media.NewStore(cfg.UploadsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize media store")
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.TelegramBotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create telegram bot")
	}

	dm := database.NewInstance(db)
	services := service.NewInstance(dm, store, log, loc)
	sender := telegram.NewSender(bot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := scheduler.New(dm, services.Schedule, sender, store, log, loc)
	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start delivery worker")
	}
	defer worker.Stop()

	handler := telegram.NewHandler(bot, services, store, worker.Notify, log, loc)
	handler.Register()

	go bot.Start()
	defer bot.Stop()
	log.Info().Str("timezone", cfg.Timezone).Msg("bot started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")
}
