package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rea_rating_bot/internal/app"
	"rea_rating_bot/internal/infra/config"
	idb "rea_rating_bot/internal/infra/database"
	"rea_rating_bot/internal/infra/logger"
	"rea_rating_bot/internal/infra/portal"
	"rea_rating_bot/internal/infra/scheduler"
	itg "rea_rating_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Could not load application configuration")
	}

	logger.Init(cfg)
	log := logger.Get().WithField("component", "main")
	log.WithField("environment", cfg.Environment).Info("Rating notification bot starting")

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	log.Info("Database connection established")

	studentRepo := idb.NewPostgresStudentRepository(db)
	ratingRepo := idb.NewPostgresRatingRepository(db)

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.WithError(err).Fatal("Could not create Telegram bot")
	}

	accountService := app.NewAccountService(studentRepo, ratingRepo)

	session := portal.NewSession(cfg.PortalBaseURL, cfg.FetchTimeout)
	fetcher := app.NewFetcher(session, cfg.FetchConcurrency, logger.Get().WithField("component", "fetcher"))
	dispatcher := app.NewDispatcher(itg.NewTelebotAdapter(bot), cfg.SendConcurrency, logger.Get().WithField("component", "dispatcher"))
	reconcileService := app.NewReconcileService(
		studentRepo,
		ratingRepo,
		fetcher,
		dispatcher,
		logger.Get().WithField("component", "reconciler"),
	)

	reconciliationScheduler := scheduler.NewReconciliationScheduler(
		reconcileService,
		logger.Get().WithField("component", "scheduler"),
		cfg.PollInterval,
		cfg.RetryInterval,
		cfg.CycleTimeout,
	)
	reconciliationScheduler.Start()

	handlerCtx, cancelHandlers := context.WithCancel(context.Background())
	itg.RegisterBotCommands(handlerCtx, bot, accountService, logger.Get().WithField("component", "telegram"))
	log.Info("Bot command handlers registered")

	go bot.Start()
	log.Info("Application setup complete")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	reconciliationScheduler.Stop()
	bot.Stop()
	cancelHandlers()
	log.Info("Shut down gracefully")
}
